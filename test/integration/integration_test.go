package integration

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"modulehost/internal/activation"
	"modulehost/internal/api"
	"modulehost/internal/config"
	"modulehost/internal/events"
	"modulehost/internal/journal"
	"modulehost/internal/loader"
	"modulehost/internal/modules/inspector"
	"modulehost/internal/registry"
	"modulehost/internal/session"
	"modulehost/pkg/module"
)

const testCatalog = `launch:
  modules: [KERNEL, GEOM, SMESH, INSPECTOR, YACS, BROKEN]
modules:
  GEOM:
    name: Geometry
    gui: true
    library: libGEOM.so
    version: "9.12"
  SMESH:
    name: Mesh
    gui: true
  INSPECTOR:
    name: Inspector
    gui: true
  YACS:
    version: "1.0"
  BROKEN:
    gui: true
`

// callLog records module callbacks across modules in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// recordingModule logs its lifecycle callbacks.
type recordingModule struct {
	module.Base
	log *callLog
}

func (m *recordingModule) Initialize(ctx *module.Context) {
	m.Base.Initialize(ctx)
	m.log.add(m.Name() + ".initialize")
}

func (m *recordingModule) Activate(doc module.Document) bool {
	m.log.add(m.Name() + ".activate")
	return m.Base.Activate(doc)
}

func (m *recordingModule) Deactivate(doc module.Document) bool {
	m.log.add(m.Name() + ".deactivate")
	return m.Base.Deactivate(doc)
}

type testHost struct {
	registry   *registry.Registry
	controller *activation.Controller
	session    *session.Session
	journal    *journal.File
	server     *api.Server
	log        *callLog
}

func setupTest(t *testing.T) *testHost {
	t.Helper()
	logger := zap.NewNop()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.CatalogFile), []byte(testCatalog), 0644))

	cfg := config.NewLoader(dir, logger)
	require.NoError(t, cfg.Load())
	catalog := cfg.Catalog()

	reg := registry.NewRegistry(logger)
	config.Populate(reg, config.LaunchModules(nil, "", catalog), catalog, logger)

	log := &callLog{}
	static := loader.NewStaticLoader()
	for _, id := range []string{"GEOM", "SMESH"} {
		require.NoError(t, static.Register(id, func() module.Module {
			return &recordingModule{log: log}
		}, ""))
	}
	require.NoError(t, static.Register(inspector.Library, func() module.Module { return inspector.New() }, inspector.Version))
	plugins := loader.NewPluginLoader(logger, t.TempDir())
	reg.SetAvailabilityPredicate(loader.NewLibrarySearch(reg.Library, static, plugins.Dirs()).Available)

	file, err := journal.OpenFile(filepath.Join(dir, "gui.log"), nil)
	require.NoError(t, err)

	bus := events.NewBus(nil)
	journal.Attach(bus, file, logger)

	sess := session.New(logger, nil)
	ctrl := activation.NewController(reg, loader.Chain{static, loader.Static, plugins}, sess, bus, logger, dir)
	sess.SetListener(ctrl)

	// The inspector registers itself with the process-wide loader as well.
	require.True(t, loader.Static.Has(inspector.Library))

	return &testHost{
		registry:   reg,
		controller: ctrl,
		session:    sess,
		journal:    file,
		server:     api.NewServer(ctrl, sess, file, logger, 0),
		log:        log,
	}
}

func inspectorOp() module.Operation {
	return module.OperationByID(inspector.OpInspect)
}
