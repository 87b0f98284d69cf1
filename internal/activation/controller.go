// Package activation owns the set of loaded modules and the single active
// module. Every activation request runs under a busy flag: a request that
// arrives while another one is in flight, including one issued from inside
// a module callback, is rejected immediately rather than queued.
package activation

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"modulehost/internal/events"
	"modulehost/internal/loader"
	"modulehost/internal/registry"
	"modulehost/pkg/module"
)

// Host is the application shell the controller works for.
type Host interface {
	// CurrentDocument returns the active document, or nil when none is open.
	CurrentDocument() module.Document

	// SurfaceError shows a diagnostic to the user (dialog or log window).
	SurfaceError(title, message string)
}

// Controller loads modules on demand and switches the active module.
type Controller struct {
	logger   *zap.Logger
	registry *registry.Registry
	loader   loader.Loader
	host     Host
	bus      *events.Bus
	ctx      *module.Context

	// mu guards the fields below. It is never held while a module callback
	// runs, so callbacks may query the controller freely.
	mu      sync.Mutex
	store   *Store
	active  module.Module
	busy    bool
	loading map[string]bool
	adding  map[module.Module]bool
}

// NewController creates a controller. bus may be nil.
func NewController(
	reg *registry.Registry,
	ld loader.Loader,
	host Host,
	bus *events.Bus,
	logger *zap.Logger,
	configDir string,
) *Controller {
	if bus == nil {
		bus = events.NewBus(nil)
	}
	logger = logger.Named("activation")
	return &Controller{
		logger:   logger,
		registry: reg,
		loader:   ld,
		host:     host,
		bus:      bus,
		ctx:      module.NewContext(logger.Named("module"), configDir, host),
		store:    newStore(),
		loading:  make(map[string]bool),
		adding:   make(map[module.Module]bool),
	}
}

// Registry returns the descriptor registry the controller resolves names in.
func (c *Controller) Registry() *registry.Registry {
	return c.registry
}

// Events returns the lifecycle event bus.
func (c *Controller) Events() *events.Bus {
	return c.bus
}

// Start resolves the availability of every registered module and, when
// autoLoad is set, loads all of them. Load failures are surfaced and
// returned together; the remaining modules are still loaded.
func (c *Controller) Start(autoLoad bool) error {
	c.registry.CheckAll()
	if !autoLoad {
		return nil
	}
	return c.LoadModules()
}

// LoadModules loads and adds every valid registered module.
func (c *Controller) LoadModules() error {
	var errs error
	for _, d := range c.registry.List() {
		if d.Status == registry.StatusInvalid {
			continue
		}
		if _, err := c.LoadModule(d.Name, false); err != nil {
			msg := fmt.Sprintf("Can not load module %s", displayName(d))
			c.host.SurfaceError("Loading modules", msg)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", msg, err))
		}
	}
	return errs
}

// LoadModule returns the module registered under name (internal name or
// title), loading its library and adding it to the store on first use.
// Later calls return the same instance, even once the descriptor has been
// unregistered. With showErrors, loader failures are surfaced to the user;
// otherwise they are only logged.
func (c *Controller) LoadModule(name string, showErrors bool) (module.Module, error) {
	if mod := c.ModuleByName(name); mod != nil {
		return mod, nil
	}

	d, err := c.descriptor(name)
	if err != nil {
		c.logger.Warn("Cannot load module", zap.String("module", name), zap.Error(err))
		return nil, err
	}

	c.mu.Lock()
	if mod := c.store.Get(d.Name); mod != nil {
		c.mu.Unlock()
		return mod, nil
	}
	if c.loading[d.Name] {
		c.mu.Unlock()
		return nil, &RejectedError{Module: d.Name, Err: ErrLoadInProgress}
	}
	c.loading[d.Name] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.loading, d.Name)
		c.mu.Unlock()
	}()

	mod, version, err := c.loader.Load(d.Library)
	if err != nil {
		c.bus.Publish(events.ModuleLoadFailed, d.Name, err.Error())
		if showErrors {
			c.host.SurfaceError("Error", err.Error())
		}
		c.logger.Warn("Failed to load module",
			zap.String("module", d.Name),
			zap.String("library", d.Library),
			zap.Error(err))
		return nil, err
	}

	mod.SetIdentity(d.Name, d.Title)
	if version != "" && c.registry.MergeVersion(d.Name, version) {
		c.logger.Debug("Module version recorded",
			zap.String("module", d.Name),
			zap.String("version", version))
	}
	c.bus.Publish(events.ModuleLoaded, d.Name, version)
	c.logger.Info("Module loaded",
		zap.String("module", d.Name),
		zap.String("library", d.Library))

	c.AddModule(mod)
	return mod, nil
}

// AddModule initializes mod and adds it to the store. It does nothing when
// mod is nil, already added or being added by another caller.
func (c *Controller) AddModule(mod module.Module) {
	if mod == nil {
		return
	}
	c.mu.Lock()
	if c.store.Contains(mod) || c.adding[mod] {
		c.mu.Unlock()
		return
	}
	c.adding[mod] = true
	c.mu.Unlock()

	mod.Initialize(c.ctx)

	c.mu.Lock()
	delete(c.adding, mod)
	added := c.store.Add(mod, c.registry.Names())
	c.mu.Unlock()

	if !added {
		c.logger.Warn("Module with the same name already added", zap.String("module", mod.Name()))
		return
	}
	c.bus.Publish(events.ModuleAdded, mod.Name(), "")
}

// ActivateModule makes the module named by name (internal name or title)
// the active one, loading it first when needed. An empty name deactivates
// the current module and is allowed without a document. On any failure the
// host is left with no active module.
func (c *Controller) ActivateModule(name string) error {
	doc := c.host.CurrentDocument()

	c.mu.Lock()
	if name != "" && doc == nil {
		c.mu.Unlock()
		return &RejectedError{Module: name, Err: ErrNoDocument}
	}
	if c.busy {
		c.mu.Unlock()
		c.logger.Warn("Nested module activation rejected", zap.String("module", name))
		return &RejectedError{Module: name, Err: ErrReentrant}
	}
	guard := lockBusy(&c.busy)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		guard.release()
		c.mu.Unlock()
	}()

	if name == "" {
		return c.activate(nil, doc)
	}

	mod, err := c.LoadModule(name, true)
	if err != nil {
		return err
	}
	return c.activate(mod, doc)
}

// activate swaps the active module for mod. Callers hold the busy flag.
func (c *Controller) activate(mod module.Module, doc module.Document) error {
	if mod != nil && doc == nil {
		return &RejectedError{Module: mod.Name(), Err: ErrNoDocument}
	}

	c.mu.Lock()
	prev := c.active
	c.mu.Unlock()

	if prev == mod {
		return nil
	}

	if prev != nil {
		deactivated := prev.Deactivate(doc)
		c.mu.Lock()
		c.active = nil
		c.mu.Unlock()
		if deactivated {
			c.bus.Publish(events.ModuleDeactivated, prev.Name(), "")
		}
		c.logger.Info("Module deactivated",
			zap.String("module", prev.Name()),
			zap.Bool("confirmed", deactivated))
	}

	if mod == nil {
		return nil
	}

	mod.ConnectToDocument(doc)
	if !mod.Activate(doc) {
		if s, ok := mod.(module.Surfaces); ok {
			s.SetMenuShown(false)
			s.SetToolShown(false)
		}
		c.host.SurfaceError("Error", fmt.Sprintf("Error activating module %s", mod.Name()))
		c.bus.Publish(events.ActivationFailed, mod.Name(), "module declined activation")
		c.logger.Warn("Module declined activation", zap.String("module", mod.Name()))
		return &DeclinedError{Module: mod.Name()}
	}

	c.mu.Lock()
	c.active = mod
	c.mu.Unlock()
	c.bus.Publish(events.ModuleActivated, mod.Name(), "")
	c.logger.Info("Module activated", zap.String("module", mod.Name()))
	return nil
}

// ActivateOperation loads the named module without activating it and asks
// it to run op. It is meant for modules that invoke each other's commands.
func (c *Controller) ActivateOperation(name string, op module.Operation) error {
	mod, err := c.LoadModule(name, false)
	if err != nil {
		return err
	}
	if !mod.HandleOperation(op) {
		return fmt.Errorf("%w: %s %s", ErrOperationDeclined, mod.Name(), describeOperation(op))
	}
	return nil
}

func describeOperation(op module.Operation) string {
	switch {
	case op.Name != "" && op.Plugin != "":
		return fmt.Sprintf("%s/%s", op.Plugin, op.Name)
	case op.Name != "":
		return op.Name
	}
	return fmt.Sprintf("#%d", op.ID)
}

// ActiveModule returns the active module, or nil.
func (c *Controller) ActiveModule() module.Module {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// ModuleByName returns the loaded module with the given internal name or
// title, or nil when it is not loaded.
func (c *Controller) ModuleByName(name string) module.Module {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mod := c.store.Get(name); mod != nil {
		return mod
	}
	if internal, ok := c.registry.NameByTitle(name); ok {
		return c.store.Get(internal)
	}
	return nil
}

// LoadedModules returns all loaded modules in registry order.
func (c *Controller) LoadedModules() []module.Module {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.List()
}

// ModuleNames returns the internal names of loaded modules when loaded is
// set, otherwise the titles of all user-selectable registered modules.
func (c *Controller) ModuleNames(loaded bool) []string {
	if !loaded {
		return c.registry.Selectable()
	}
	mods := c.LoadedModules()
	names := make([]string, 0, len(mods))
	for _, m := range mods {
		names = append(names, m.Name())
	}
	return names
}

// AbortAllOperations asks every loaded module to abort pending work and
// stops at the first module that refuses.
func (c *Controller) AbortAllOperations() bool {
	for _, mod := range c.LoadedModules() {
		if !mod.AbortPendingOperations() {
			c.logger.Info("Module has operations that cannot be aborted", zap.String("module", mod.Name()))
			return false
		}
	}
	return true
}

// DocumentClosed tells every loaded module that doc is being closed.
func (c *Controller) DocumentClosed(doc module.Document) {
	for _, mod := range c.LoadedModules() {
		if obs, ok := mod.(module.DocumentObserver); ok {
			obs.DocumentClosed(doc)
		}
	}
	if doc != nil {
		c.bus.Publish(events.DocumentClosed, "", doc.ID())
	}
}

// Close deactivates the active module and releases every loaded module,
// closing those that implement io.Closer in reverse load order.
func (c *Controller) Close() error {
	var errs error
	if err := c.ActivateModule(""); err != nil {
		errs = multierr.Append(errs, err)
	}

	c.mu.Lock()
	mods := c.store.List()
	c.store.clear()
	c.mu.Unlock()

	for i := len(mods) - 1; i >= 0; i-- {
		if closer, ok := mods[i].(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("close module %s: %w", mods[i].Name(), err))
			}
		}
	}
	return errs
}

func (c *Controller) descriptor(name string) (registry.Descriptor, error) {
	if c.registry.Len() == 0 {
		return registry.Descriptor{}, &RejectedError{Module: name, Err: ErrNoModules}
	}
	d, ok := c.registry.Lookup(name)
	if !ok {
		return registry.Descriptor{}, &RejectedError{Module: name, Err: ErrUnknownModule}
	}
	if d.Status == registry.StatusInvalid {
		return registry.Descriptor{}, &RejectedError{Module: d.Name, Err: ErrInvalidModule}
	}
	return d, nil
}

func displayName(d registry.Descriptor) string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// IsRejected reports whether err means the request was refused before any
// module callback ran.
func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}

// IsDeclined reports whether err means the module itself declined activation.
func IsDeclined(err error) bool {
	var declined *DeclinedError
	return errors.As(err, &declined)
}
