// Package module defines the contract between the host application and its
// pluggable feature modules. A module is either compiled into the host and
// registered with the static loader from an init() function, or built as a
// Go plugin that exports the factory and version symbols named below.
package module

// Symbol names resolved by the dynamic loader in a module library.
const (
	// FactorySymbol names the mandatory exported function that creates the
	// module instance. Its signature must be func() module.Module.
	FactorySymbol = "CreateModule"

	// VersionSymbol names the optional exported function reporting the
	// library version. Its signature must be func() string.
	VersionSymbol = "ModuleVersion"
)

// Document is the study the active module operates on. The host owns it;
// modules only receive it as the activation context.
type Document interface {
	// ID returns a stable identifier for the document.
	ID() string
}

// Operation identifies a module operation requested by another part of the
// host. Either ID or Name is set; Plugin optionally names the module plugin
// that implements a named operation.
type Operation struct {
	ID     int
	Name   string
	Plugin string
}

// OperationByID builds a numeric operation request.
func OperationByID(id int) Operation {
	return Operation{ID: id}
}

// OperationByName builds a named operation request, optionally scoped to a plugin.
func OperationByName(name, plugin string) Operation {
	return Operation{Name: name, Plugin: plugin}
}

// Module is the core interface that every loadable module implements.
type Module interface {
	// Name returns the internal module name assigned by SetIdentity.
	Name() string

	// Title returns the user-visible module title assigned by SetIdentity.
	// Headless modules have an empty title.
	Title() string

	// SetIdentity is called by the host right after the module is created
	// and before any other callback.
	SetIdentity(name, title string)

	// Initialize is called exactly once when the module is added to the host.
	Initialize(ctx *Context)

	// ConnectToDocument binds the module to the document it is about to be
	// activated in.
	ConnectToDocument(doc Document)

	// Activate makes the module current in doc. Returning false means the
	// module cannot work with this document; its UI surfaces must stay hidden.
	Activate(doc Document) bool

	// Deactivate is called when another module replaces this one. The return
	// value only controls whether a lifecycle event is logged.
	Deactivate(doc Document) bool

	// HandleOperation runs an operation on behalf of another module.
	HandleOperation(op Operation) bool

	// AbortPendingOperations returns false when the module has unfinished
	// work that cannot be safely interrupted.
	AbortPendingOperations() bool
}

// Surfaces is an optional interface for modules that contribute menus and
// toolbars. The host hides both when activation is declined.
type Surfaces interface {
	SetMenuShown(shown bool)
	SetToolShown(shown bool)
}

// DocumentObserver is an optional interface for modules that need to release
// per-document state when a document is closed.
type DocumentObserver interface {
	DocumentClosed(doc Document)
}

// Factory creates a new module instance. It is the type of the exported
// FactorySymbol in plugin libraries and of static registrations.
type Factory func() Module

// VersionFunc reports a library version string.
type VersionFunc func() string
