package module

import "go.uber.org/zap"

// DocumentProvider gives modules read access to the host's current document.
type DocumentProvider interface {
	CurrentDocument() Document
}

// Context provides dependencies to modules during initialization.
type Context struct {
	// Logger is a structured logger for the module to use.
	// Modules should use Logger.Named(name) for namespacing.
	Logger *zap.Logger

	// ConfigDir is the path to the configuration directory.
	ConfigDir string

	// Documents returns the host's current document, if any.
	Documents DocumentProvider
}

// NewContext creates a new module context with all required dependencies.
func NewContext(logger *zap.Logger, configDir string, documents DocumentProvider) *Context {
	return &Context{
		Logger:    logger,
		ConfigDir: configDir,
		Documents: documents,
	}
}
