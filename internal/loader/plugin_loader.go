package loader

import (
	"plugin"

	"go.uber.org/zap"

	"modulehost/pkg/module"
)

// PluginLoader loads modules built with -buildmode=plugin. Opened plugins
// stay resident for the life of the process.
type PluginLoader struct {
	logger *zap.Logger
	dirs   []string
	open   func(path string) (symbolTable, error)
}

// NewPluginLoader creates a loader that searches dirs and then the platform
// library search path.
func NewPluginLoader(logger *zap.Logger, dirs ...string) *PluginLoader {
	return &PluginLoader{
		logger: logger.Named("loader"),
		dirs:   append(append([]string{}, dirs...), SearchPath()...),
		open:   openPlugin,
	}
}

func openPlugin(path string) (symbolTable, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Dirs returns the directories searched for module libraries.
func (l *PluginLoader) Dirs() []string {
	return append([]string(nil), l.dirs...)
}

// Load implements Loader.
func (l *PluginLoader) Load(library string) (module.Module, string, error) {
	path, found := FindLibrary(library, l.dirs)
	l.logger.Debug("Opening module library",
		zap.String("library", library),
		zap.String("path", path),
		zap.Bool("found", found))

	lib, err := l.open(path)
	if err != nil {
		return nil, "", &LoadError{Library: library, Kind: CannotOpenLibrary, Diagnostic: err.Error()}
	}

	mod, version, err := instantiate(library, lib)
	if err != nil {
		return nil, "", err
	}

	l.logger.Info("Module library loaded",
		zap.String("library", library),
		zap.String("path", path),
		zap.String("version", version))
	return mod, version, nil
}
