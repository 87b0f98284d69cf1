package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleCatalog = `launch:
  modules: [GEOM, SMESH, YACS]
modules:
  GEOM:
    name: Geometry
    gui: true
    icon: geom.png
    description: Geometry modeling
    library: libGeometryGUI.so
    version: "9.12"
  SMESH:
    name: Mesh
    gui: true
    displayer: Geometry
  YACS:
    version: "1.0"
  BROKEN:
    gui: true
`

func setupTestConfigDir(t *testing.T, content string) string {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, CatalogFile), []byte(content), 0644)
	require.NoError(t, err)
	return tmpDir
}

func TestLoader_Load(t *testing.T) {
	dir := setupTestConfigDir(t, sampleCatalog)
	loader := NewLoader(dir, zap.NewNop())

	require.NoError(t, loader.Load())

	catalog := loader.Catalog()
	assert.Equal(t, ModuleList{"GEOM", "SMESH", "YACS"}, catalog.Launch.Modules)
	assert.Len(t, catalog.Modules, 4)

	geom := catalog.Section("GEOM")
	assert.Equal(t, "Geometry", geom.Name)
	assert.True(t, geom.GUI)
	assert.Equal(t, "libGeometryGUI.so", geom.Library)
	assert.Equal(t, "9.12", geom.Version)

	assert.Equal(t, ModuleSection{}, catalog.Section("UNKNOWN"))
}

func TestLoader_LaunchModulesAsString(t *testing.T) {
	dir := setupTestConfigDir(t, "launch:\n  modules: \"GEOM, SMESH,,\"\n")
	loader := NewLoader(dir, zap.NewNop())

	require.NoError(t, loader.Load())
	assert.Equal(t, ModuleList{"GEOM", "SMESH"}, loader.Catalog().Launch.Modules)
}

func TestLoader_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		loader := NewLoader(t.TempDir(), zap.NewNop())
		err := loader.Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read module catalog")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		loader := NewLoader(setupTestConfigDir(t, "modules: [unclosed"), zap.NewNop())
		err := loader.Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse module catalog")
	})

	t.Run("launch modules wrong shape", func(t *testing.T) {
		loader := NewLoader(setupTestConfigDir(t, "launch:\n  modules:\n    a: b\n"), zap.NewNop())
		assert.Error(t, loader.Load())
	})
}

func TestLoader_CatalogBeforeLoad(t *testing.T) {
	loader := NewLoader(t.TempDir(), zap.NewNop())
	catalog := loader.Catalog()
	require.NotNil(t, catalog)
	assert.Empty(t, catalog.Launch.Modules)
}

func TestLoader_AutoReload(t *testing.T) {
	dir := setupTestConfigDir(t, "launch:\n  modules: [GEOM]\n")
	loader := NewLoader(dir, zap.NewNop())
	require.NoError(t, loader.Load())

	reloaded := make(chan *Catalog, 1)
	loader.StartAutoReload(10*time.Millisecond, func(c *Catalog) {
		select {
		case reloaded <- c:
		default:
		}
	})
	defer loader.Stop()

	require.NoError(t, os.WriteFile(loader.Path(), []byte("launch:\n  modules: [GEOM, SMESH]\n"), 0644))

	assert.Eventually(t, func() bool {
		select {
		case c := <-reloaded:
			return len(c.Launch.Modules) == 2
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	loader.Stop()
	loader.Stop()
}
