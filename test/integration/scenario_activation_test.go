package integration

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modulehost/internal/activation"
	"modulehost/internal/modules/inspector"
	"modulehost/internal/registry"
)

// TestScenario_Startup validates registry population and availability
// resolution from the catalog.
func TestScenario_Startup(t *testing.T) {
	host := setupTest(t)

	t.Log("GIVEN: A catalog listing KERNEL, GEOM, SMESH, INSPECTOR, YACS and BROKEN")
	assert.Equal(t, []string{"GEOM", "SMESH", "INSPECTOR", "YACS", "BROKEN"}, host.registry.Names(),
		"KERNEL is reserved and skipped")

	t.Log("WHEN: The host starts without auto-loading")
	require.NoError(t, host.controller.Start(false))

	t.Log("THEN: Statuses are resolved and nothing is loaded")
	statuses := map[string]registry.Status{}
	for _, d := range host.registry.List() {
		statuses[d.Name] = d.Status
	}
	assert.Equal(t, map[string]registry.Status{
		"GEOM":      registry.StatusReady,
		"SMESH":     registry.StatusReady,
		"INSPECTOR": registry.StatusReady,
		"YACS":      registry.StatusHeadlessOnly,
		"BROKEN":    registry.StatusInvalid,
	}, statuses)
	assert.Equal(t, []string{"Geometry", "Mesh", "Inspector"}, host.controller.ModuleNames(false))
	assert.Empty(t, host.controller.ModuleNames(true))
}

// TestScenario_GeomThenMesh validates the activation hand-over between two
// modules and the user event journal.
func TestScenario_GeomThenMesh(t *testing.T) {
	host := setupTest(t)
	require.NoError(t, host.controller.Start(false))

	t.Log("GIVEN: No study is open")
	t.Log("WHEN: Mesh is activated")
	err := host.controller.ActivateModule("Mesh")

	t.Log("THEN: The request is rejected without any module callback")
	assert.True(t, errors.Is(err, activation.ErrNoDocument))
	assert.Empty(t, host.log.snapshot())

	t.Log("WHEN: A study is opened and Geometry then Mesh are activated")
	_, err = host.session.OpenDocument("Box")
	require.NoError(t, err)
	require.NoError(t, host.controller.ActivateModule("Geometry"))
	host.log.reset()
	require.NoError(t, host.controller.ActivateModule("Mesh"))

	t.Log("THEN: Geometry is deactivated once, then Mesh is activated once")
	var transitions []string
	for _, c := range host.log.snapshot() {
		if c != "SMESH.initialize" {
			transitions = append(transitions, c)
		}
	}
	assert.Equal(t, []string{"GEOM.deactivate", "SMESH.activate"}, transitions)
	assert.Equal(t, "SMESH", host.controller.ActiveModule().Name())

	t.Log("THEN: Versions from the catalog are kept")
	d, _ := host.registry.Lookup("GEOM")
	assert.Equal(t, "9.12", d.Version)

	t.Log("WHEN: The study is closed")
	require.NoError(t, host.session.CloseDocument(false))

	t.Log("THEN: Mesh is deactivated and the journal holds every transition")
	assert.Nil(t, host.controller.ActiveModule())
	entries, err := host.journal.Entries(0)
	require.NoError(t, err)
	var lines []string
	for _, e := range entries {
		lines = append(lines, e.Event)
	}
	assert.Equal(t, []string{
		"MODULE_ACTIVATED: GEOM",
		"MODULE_DEACTIVATED: GEOM",
		"MODULE_ACTIVATED: SMESH",
		"MODULE_DEACTIVATED: SMESH",
	}, lines)
}

// TestScenario_CompiledInModule validates the inspector end to end.
func TestScenario_CompiledInModule(t *testing.T) {
	host := setupTest(t)
	_, err := host.session.OpenDocument("Box")
	require.NoError(t, err)

	require.NoError(t, host.controller.ActivateModule("Inspector"))
	mod := host.controller.ModuleByName("INSPECTOR")
	require.IsType(t, &inspector.Inspector{}, mod)

	require.NoError(t, host.controller.ActivateOperation("INSPECTOR", inspectorOp()))
	report := mod.(*inspector.Inspector).Report()
	assert.Equal(t, 1, report.Activations)
	assert.Equal(t, 1, report.Inspections)

	d, _ := host.registry.Lookup("INSPECTOR")
	assert.Equal(t, inspector.Version, d.Version, "version reported by the library")
}

// TestScenario_ConcurrentRequests validates that parallel activation
// requests never leave more than one module active.
func TestScenario_ConcurrentRequests(t *testing.T) {
	host := setupTest(t)
	_, err := host.session.OpenDocument("Box")
	require.NoError(t, err)

	names := []string{"GEOM", "SMESH", "Inspector", ""}
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			err := host.controller.ActivateModule(name)
			if err != nil {
				assert.True(t, errors.Is(err, activation.ErrReentrant) || errors.Is(err, activation.ErrLoadInProgress),
					"unexpected error: %v", err)
			}
		}(names[i%len(names)])
	}
	wg.Wait()

	shown := 0
	for _, mod := range host.controller.LoadedModules() {
		if rm, ok := mod.(*recordingModule); ok && rm.MenuShown() {
			shown++
		}
		if in, ok := mod.(*inspector.Inspector); ok && in.MenuShown() {
			shown++
		}
	}
	assert.LessOrEqual(t, shown, 1)
	if active := host.controller.ActiveModule(); active != nil {
		assert.Equal(t, 1, shown)
	}
}

// TestScenario_API drives the host over HTTP.
func TestScenario_API(t *testing.T) {
	host := setupTest(t)
	handler := host.server.Handler()

	post := func(path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, &buf))
		return w
	}

	assert.Equal(t, http.StatusConflict, post("/api/active", map[string]string{"module": "GEOM"}).Code)
	assert.Equal(t, http.StatusCreated, post("/api/document", map[string]string{"name": "Box"}).Code)
	assert.Equal(t, http.StatusOK, post("/api/active", map[string]string{"module": "GEOM"}).Code)
	assert.Equal(t, http.StatusConflict, post("/api/active", map[string]string{"module": "BROKEN"}).Code)
	assert.Equal(t, "GEOM", host.controller.ActiveModule().Name(), "a rejected request changes nothing")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/journal?limit=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "MODULE_ACTIVATED: GEOM")
}
