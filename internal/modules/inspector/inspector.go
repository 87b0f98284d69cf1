// Package inspector is a compiled-in module that reports on the documents
// it is activated in. It is mostly useful to check a host installation.
package inspector

import (
	"sync"

	"go.uber.org/zap"

	"modulehost/pkg/module"
)

// Operation identifiers handled by the inspector.
const (
	OpInspect = 1
	OpReset   = 2
)

// Report summarizes what the inspector has seen.
type Report struct {
	Activations int      `json:"activations"`
	Documents   []string `json:"documents"`
	Inspections int      `json:"inspections"`
}

// Inspector implements module.Module.
type Inspector struct {
	module.Base

	mu          sync.Mutex
	logger      *zap.Logger
	activations int
	inspections int
	documents   []string
}

// New creates an inspector.
func New() *Inspector {
	return &Inspector{logger: zap.NewNop()}
}

// Initialize keeps the host logger.
func (i *Inspector) Initialize(ctx *module.Context) {
	i.Base.Initialize(ctx)
	if ctx != nil && ctx.Logger != nil {
		i.mu.Lock()
		i.logger = ctx.Logger.Named("inspector")
		i.mu.Unlock()
	}
}

// Activate accepts any document and remembers it.
func (i *Inspector) Activate(doc module.Document) bool {
	if doc == nil {
		return false
	}
	i.mu.Lock()
	i.activations++
	i.remember(doc.ID())
	i.mu.Unlock()
	return i.Base.Activate(doc)
}

func (i *Inspector) remember(id string) {
	for _, d := range i.documents {
		if d == id {
			return
		}
	}
	i.documents = append(i.documents, id)
}

// HandleOperation runs OpInspect (also by name "inspect") and OpReset
// ("reset").
func (i *Inspector) HandleOperation(op module.Operation) bool {
	id := op.ID
	switch op.Name {
	case "inspect":
		id = OpInspect
	case "reset":
		id = OpReset
	case "":
	default:
		return false
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	switch id {
	case OpInspect:
		i.inspections++
		var current string
		if ctx := i.Context(); ctx != nil && ctx.Documents != nil {
			if doc := ctx.Documents.CurrentDocument(); doc != nil {
				current = doc.ID()
			}
		}
		i.logger.Info("Inspection",
			zap.String("module", i.Name()),
			zap.String("document", current),
			zap.Int("activations", i.activations),
			zap.Strings("documents", i.documents))
		return true
	case OpReset:
		i.activations = 0
		i.inspections = 0
		i.documents = nil
		return true
	}
	return false
}

// DocumentClosed forgets the closed document.
func (i *Inspector) DocumentClosed(doc module.Document) {
	if doc == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	for idx, d := range i.documents {
		if d == doc.ID() {
			i.documents = append(i.documents[:idx], i.documents[idx+1:]...)
			return
		}
	}
}

// Report returns a snapshot of the inspector counters.
func (i *Inspector) Report() Report {
	i.mu.Lock()
	defer i.mu.Unlock()
	return Report{
		Activations: i.activations,
		Documents:   append([]string(nil), i.documents...),
		Inspections: i.inspections,
	}
}
