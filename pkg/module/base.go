package module

import "sync"

// Base is an embeddable partial Module implementation. It keeps the module
// identity, the connected document and the visibility of its UI surfaces.
// Embedders override Activate, Deactivate and HandleOperation as needed.
type Base struct {
	mu        sync.RWMutex
	name      string
	title     string
	ctx       *Context
	document  Document
	menuShown bool
	toolShown bool
}

// Name returns the internal module name.
func (b *Base) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.name
}

// Title returns the user-visible title.
func (b *Base) Title() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.title
}

// SetIdentity stores the name and title assigned by the host.
func (b *Base) SetIdentity(name, title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.name = name
	b.title = title
}

// Initialize stores the host context.
func (b *Base) Initialize(ctx *Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctx = ctx
}

// Context returns the context passed to Initialize, or nil before it.
func (b *Base) Context() *Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

// ConnectToDocument records the document the module works with.
func (b *Base) ConnectToDocument(doc Document) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.document = doc
}

// Document returns the connected document.
func (b *Base) Document() Document {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.document
}

// Activate shows the module surfaces and accepts any document.
func (b *Base) Activate(doc Document) bool {
	b.SetMenuShown(true)
	b.SetToolShown(true)
	return true
}

// Deactivate hides the module surfaces.
func (b *Base) Deactivate(doc Document) bool {
	b.SetMenuShown(false)
	b.SetToolShown(false)
	return true
}

// HandleOperation rejects every operation.
func (b *Base) HandleOperation(op Operation) bool {
	return false
}

// AbortPendingOperations reports that nothing is pending.
func (b *Base) AbortPendingOperations() bool {
	return true
}

// SetMenuShown shows or hides the module menus.
func (b *Base) SetMenuShown(shown bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.menuShown = shown
}

// SetToolShown shows or hides the module toolbars.
func (b *Base) SetToolShown(shown bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toolShown = shown
}

// MenuShown reports whether the module menus are visible.
func (b *Base) MenuShown() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.menuShown
}

// ToolShown reports whether the module toolbars are visible.
func (b *Base) ToolShown() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.toolShown
}
