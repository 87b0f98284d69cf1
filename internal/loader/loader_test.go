package loader

import (
	"errors"
	"os"
	"path/filepath"
	"plugin"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"modulehost/pkg/module"
)

type testModule struct {
	module.Base
}

func newTestModule() module.Module { return &testModule{} }

type fakeLibrary map[string]plugin.Symbol

func (f fakeLibrary) Lookup(name string) (plugin.Symbol, error) {
	if sym, ok := f[name]; ok {
		return sym, nil
	}
	return nil, errors.New("undefined symbol: " + name)
}

func newFakePluginLoader(libs map[string]fakeLibrary) *PluginLoader {
	return &PluginLoader{
		logger: zap.NewNop(),
		open: func(path string) (symbolTable, error) {
			lib, ok := libs[path]
			if !ok {
				return nil, errors.New(path + ": cannot open shared object file")
			}
			return lib, nil
		},
	}
}

func TestPluginLoader_Load(t *testing.T) {
	var nilFactory func() module.Module
	var typedNil *testModule

	tests := []struct {
		name        string
		lib         fakeLibrary
		wantKind    ErrorKind
		wantVersion string
	}{
		{
			name:        "factory and version",
			lib:         fakeLibrary{module.FactorySymbol: newTestModule, module.VersionSymbol: func() string { return "9.12" }},
			wantVersion: "9.12",
		},
		{
			name: "version symbol is optional",
			lib:  fakeLibrary{module.FactorySymbol: newTestModule},
		},
		{
			name: "version symbol with wrong type is ignored",
			lib:  fakeLibrary{module.FactorySymbol: newTestModule, module.VersionSymbol: "9.12"},
		},
		{
			name: "panicking version symbol reports no version",
			lib:  fakeLibrary{module.FactorySymbol: newTestModule, module.VersionSymbol: func() string { panic("boom") }},
		},
		{
			name:     "missing factory",
			lib:      fakeLibrary{module.VersionSymbol: func() string { return "1" }},
			wantKind: MissingFactorySymbol,
		},
		{
			name:     "factory with wrong signature",
			lib:      fakeLibrary{module.FactorySymbol: func() int { return 1 }},
			wantKind: MissingFactorySymbol,
		},
		{
			name:     "nil factory value",
			lib:      fakeLibrary{module.FactorySymbol: nilFactory},
			wantKind: MissingFactorySymbol,
		},
		{
			name:     "factory returns nil",
			lib:      fakeLibrary{module.FactorySymbol: func() module.Module { return nil }},
			wantKind: FactoryReturnedNull,
		},
		{
			name:     "factory returns typed nil",
			lib:      fakeLibrary{module.FactorySymbol: func() module.Module { return typedNil }},
			wantKind: FactoryReturnedNull,
		},
		{
			name:     "factory panics",
			lib:      fakeLibrary{module.FactorySymbol: func() module.Module { panic("boom") }},
			wantKind: FactoryReturnedNull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newFakePluginLoader(map[string]fakeLibrary{"/lib/libGEOM.so": tt.lib})

			mod, version, err := l.Load("/lib/libGEOM.so")

			if tt.wantKind != 0 {
				require.Error(t, err)
				var loadErr *LoadError
				require.ErrorAs(t, err, &loadErr)
				assert.Equal(t, tt.wantKind, loadErr.Kind)
				assert.True(t, errors.Is(err, tt.wantKind.sentinel()))
				assert.Nil(t, mod)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, mod)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestPluginLoader_CannotOpen(t *testing.T) {
	l := newFakePluginLoader(nil)

	_, _, err := l.Load("MISSING")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCannotOpenLibrary))
	assert.False(t, errors.Is(err, ErrMissingFactorySymbol))
	assert.Contains(t, err.Error(), "cannot open shared object file")
}

func TestPluginLoader_SearchesDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LibraryFileName("GEOM"))
	require.NoError(t, os.WriteFile(path, []byte("elf"), 0o644))

	l := newFakePluginLoader(map[string]fakeLibrary{path: {module.FactorySymbol: newTestModule}})
	l.dirs = []string{t.TempDir(), dir}

	mod, _, err := l.Load("GEOM")
	require.NoError(t, err)
	assert.NotNil(t, mod)
}

func TestStaticLoader(t *testing.T) {
	s := NewStaticLoader()
	require.NoError(t, s.Register("GEOM", newTestModule, "1.0"))
	require.NoError(t, s.Register("SMESH", newTestModule, ""))

	assert.Error(t, s.Register("GEOM", newTestModule, "2.0"), "duplicate id")
	assert.Error(t, s.Register("", newTestModule, ""), "empty id")
	assert.Error(t, s.Register("X", nil, ""), "nil factory")

	mod, version, err := s.Load("GEOM")
	require.NoError(t, err)
	assert.NotNil(t, mod)
	assert.Equal(t, "1.0", version)

	_, version, err = s.Load("SMESH")
	require.NoError(t, err)
	assert.Empty(t, version)

	first, _, _ := s.Load("GEOM")
	second, _, _ := s.Load("GEOM")
	assert.NotSame(t, first, second, "each load runs the factory")

	_, _, err = s.Load("PARAVIS")
	assert.True(t, errors.Is(err, ErrCannotOpenLibrary))

	assert.Equal(t, []string{"GEOM", "SMESH"}, s.IDs())
	assert.True(t, s.Has("SMESH"))
}

func TestChain(t *testing.T) {
	static := NewStaticLoader()
	require.NoError(t, static.Register("GEOM", newTestModule, "static"))

	broken := newFakePluginLoader(map[string]fakeLibrary{"SMESH": {}})
	chain := Chain{static, broken}

	_, version, err := chain.Load("GEOM")
	require.NoError(t, err)
	assert.Equal(t, "static", version)

	_, _, err = chain.Load("SMESH")
	assert.True(t, errors.Is(err, ErrMissingFactorySymbol), "found-but-broken stops the chain")

	_, _, err = chain.Load("NOWHERE")
	assert.True(t, errors.Is(err, ErrCannotOpenLibrary))

	_, _, err = Chain{}.Load("GEOM")
	assert.True(t, errors.Is(err, ErrCannotOpenLibrary))
}

func TestLibraryNames(t *testing.T) {
	assert.Equal(t, "libGEOM.so", libraryFileName("linux", "GEOM"))
	assert.Equal(t, "libGEOM.so", libraryFileName("darwin", "GEOM"))
	assert.Equal(t, "GEOM.dll", libraryFileName("windows", "GEOM"))
	assert.Equal(t, "libGEOM.so", libraryFileName("windows", "libGEOM.so"))

	assert.Equal(t, "GEOM", LibraryID("libGEOM.so"))
	assert.Equal(t, "GEOM", LibraryID("/opt/salome/lib/libGEOM.so"))
	assert.Equal(t, "GEOM", LibraryID("GEOM.dll"))
	assert.Equal(t, "GEOM", LibraryID(" GEOM "))
	assert.Equal(t, "", LibraryID(""))
}

func TestSearchPath(t *testing.T) {
	env := map[string]string{
		"LD_LIBRARY_PATH":   "/a" + string(os.PathListSeparator) + "/b",
		"DYLD_LIBRARY_PATH": "/mac",
		"PATH":              "/win",
	}
	getenv := func(k string) string { return env[k] }

	assert.Equal(t, []string{"/a", "/b"}, searchPath("linux", getenv))
	assert.Equal(t, []string{"/mac"}, searchPath("darwin", getenv))
	assert.Equal(t, []string{"/win"}, searchPath("windows", getenv))
}

func TestLibrarySearch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LibraryFileName("MeshLib")), nil, 0o644))

	static := NewStaticLoader()
	require.NoError(t, static.Register("InspectorLib", newTestModule, ""))

	libraries := map[string]string{"Mesh": "MeshLib", "Geometry": "GeomLib", "Inspector": "InspectorLib"}
	search := NewLibrarySearch(func(title string) string { return libraries[title] }, static, []string{dir})

	assert.True(t, search.Available("Mesh"))
	assert.True(t, search.Available("Inspector"))
	assert.False(t, search.Available("Geometry"))
	assert.False(t, search.Available("Unknown"))
	assert.False(t, search.Available(""))
}
