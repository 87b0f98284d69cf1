package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type doc string

func (d doc) ID() string { return string(d) }

// declining overrides Activate the way module authors do.
type declining struct {
	Base
}

func (d *declining) Activate(Document) bool { return false }

var (
	_ Module           = (*Base)(nil)
	_ Surfaces         = (*Base)(nil)
	_ Module           = (*declining)(nil)
	_ DocumentProvider = fixedProvider{}
)

type fixedProvider struct{ d Document }

func (f fixedProvider) CurrentDocument() Document { return f.d }

func TestBase_Lifecycle(t *testing.T) {
	var b Base
	assert.Nil(t, b.Context())

	b.SetIdentity("GEOM", "Geometry")
	assert.Equal(t, "GEOM", b.Name())
	assert.Equal(t, "Geometry", b.Title())

	ctx := NewContext(zap.NewNop(), "/etc/modulehost", fixedProvider{d: doc("s1")})
	b.Initialize(ctx)
	assert.Same(t, ctx, b.Context())
	assert.Equal(t, doc("s1"), b.Context().Documents.CurrentDocument())

	b.ConnectToDocument(doc("s1"))
	assert.Equal(t, doc("s1"), b.Document())

	assert.True(t, b.Activate(doc("s1")))
	assert.True(t, b.MenuShown())
	assert.True(t, b.ToolShown())

	assert.True(t, b.Deactivate(doc("s1")))
	assert.False(t, b.MenuShown())
	assert.False(t, b.ToolShown())

	assert.False(t, b.HandleOperation(OperationByID(1)))
	assert.True(t, b.AbortPendingOperations())
}

func TestBase_Embedded(t *testing.T) {
	var m Module = &declining{}
	m.SetIdentity("SMESH", "Mesh")

	assert.False(t, m.Activate(doc("s1")))
	assert.Equal(t, "Mesh", m.Title())
}

func TestOperations(t *testing.T) {
	assert.Equal(t, Operation{ID: 7}, OperationByID(7))
	assert.Equal(t, Operation{Name: "MakeBox", Plugin: "BasicGUI"}, OperationByName("MakeBox", "BasicGUI"))
}
