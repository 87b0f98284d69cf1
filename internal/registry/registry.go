// Package registry holds the canonical list of module descriptors and answers
// lookups by internal name or by user-visible title.
package registry

import (
	"sync"

	"go.uber.org/zap"
)

// ReservedNames are host-internal component names that can never be
// registered as modules.
var ReservedNames = []string{"KERNEL", "GUI"}

// AvailabilityFunc reports whether the module with the given title can be used.
type AvailabilityFunc func(title string) bool

// AlwaysAvailable is the default availability predicate.
func AlwaysAvailable(string) bool { return true }

// Registry manages module descriptors in declaration order. Lookups by name
// and by title are both indexed.
type Registry struct {
	mu          sync.RWMutex
	logger      *zap.Logger
	descriptors map[string]*Descriptor
	byTitle     map[string]string
	order       []string
	reserved    map[string]struct{}

	// checkMu serializes availability checks so the predicate runs at most
	// once per descriptor without holding mu.
	checkMu   sync.Mutex
	available AvailabilityFunc
}

// NewRegistry creates an empty registry using the AlwaysAvailable predicate.
func NewRegistry(logger *zap.Logger) *Registry {
	reserved := make(map[string]struct{}, len(ReservedNames))
	for _, name := range ReservedNames {
		reserved[name] = struct{}{}
	}
	return &Registry{
		logger:      logger.Named("registry"),
		descriptors: make(map[string]*Descriptor),
		byTitle:     make(map[string]string),
		order:       make([]string, 0),
		reserved:    reserved,
		available:   AlwaysAvailable,
	}
}

// SetAvailabilityPredicate replaces the predicate used to resolve Unknown
// statuses. A nil predicate restores AlwaysAvailable.
func (r *Registry) SetAvailabilityPredicate(fn AvailabilityFunc) {
	r.checkMu.Lock()
	defer r.checkMu.Unlock()
	if fn == nil {
		fn = AlwaysAvailable
	}
	r.available = fn
}

// Register appends a descriptor. It fails without mutating the registry when
// the name is empty, reserved, or already known, or when a non-empty title
// is already used by another module.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.Name == "" {
		return &RegistrationError{Name: d.Name, Err: ErrEmptyName}
	}
	if _, ok := r.reserved[d.Name]; ok {
		return &RegistrationError{Name: d.Name, Err: ErrReservedName}
	}
	if _, exists := r.descriptors[d.Name]; exists {
		return &RegistrationError{Name: d.Name, Err: ErrDuplicateName}
	}
	if d.Title != "" {
		if _, taken := r.byTitle[d.Title]; taken {
			return &RegistrationError{Name: d.Name, Err: ErrDuplicateTitle}
		}
	}

	if d.Library == "" {
		d.Library = d.Name
	}
	if d.Title == "" && d.Status == StatusUnknown {
		d.Status = StatusHeadlessOnly
	}

	r.descriptors[d.Name] = &d
	if d.Title != "" {
		r.byTitle[d.Title] = d.Name
	}
	r.order = append(r.order, d.Name)

	r.logger.Debug("Module registered",
		zap.String("name", d.Name),
		zap.String("title", d.Title),
		zap.String("library", d.Library),
		zap.Stringer("status", d.Status))
	return nil
}

// Unregister removes the descriptor with the given internal name. Unknown
// names are ignored. Loaded module instances are not affected.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.descriptors[name]
	if !ok {
		return
	}
	delete(r.descriptors, name)
	if d.Title != "" {
		delete(r.byTitle, d.Title)
	}
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Debug("Module unregistered", zap.String("name", name))
}

// NameByTitle returns the internal name of the module with the given title.
func (r *Registry) NameByTitle(title string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if title == "" {
		return "", false
	}
	name, ok := r.byTitle[title]
	return name, ok
}

// TitleByName returns the title of the module with the given internal name.
// Headless modules have no title and report false.
func (r *Registry) TitleByName(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	if !ok || d.Title == "" {
		return "", false
	}
	return d.Title, true
}

// Lookup returns a copy of the descriptor matching key, which may be either
// an internal name or a title. Names take precedence over titles.
func (r *Registry) Lookup(key string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d := r.lookupLocked(key)
	if d == nil {
		return Descriptor{}, false
	}
	return *d, true
}

func (r *Registry) lookupLocked(key string) *Descriptor {
	if key == "" {
		return nil
	}
	if d, ok := r.descriptors[key]; ok {
		return d
	}
	if name, ok := r.byTitle[key]; ok {
		return r.descriptors[name]
	}
	return nil
}

// Availability returns the cached status of the module named by key. An
// Unknown status is resolved once through the availability predicate and
// cached for the life of the registry. Unregistered keys report StatusInvalid.
func (r *Registry) Availability(key string) Status {
	r.checkMu.Lock()
	defer r.checkMu.Unlock()

	r.mu.RLock()
	d := r.lookupLocked(key)
	if d == nil {
		r.mu.RUnlock()
		return StatusInvalid
	}
	name, title, status := d.Name, d.Title, d.Status
	r.mu.RUnlock()

	if status != StatusUnknown {
		return status
	}

	ok := r.available(title)

	r.mu.Lock()
	defer r.mu.Unlock()
	d, exists := r.descriptors[name]
	if !exists {
		return StatusInvalid
	}
	if d.Status == StatusUnknown {
		if ok {
			d.Status = StatusReady
		} else {
			d.Status = StatusInaccessible
		}
		r.logger.Debug("Module availability resolved",
			zap.String("name", name),
			zap.Stringer("status", d.Status))
	}
	return d.Status
}

// CheckAll resolves the availability of every registered module.
func (r *Registry) CheckAll() {
	for _, name := range r.Names() {
		r.Availability(name)
	}
}

// MergeVersion records version for the named module unless it already has
// one. It reports whether the descriptor changed.
func (r *Registry) MergeVersion(key, version string) bool {
	if version == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.lookupLocked(key)
	if d == nil || d.Version != "" {
		return false
	}
	d.Version = version
	return true
}

// Names returns the internal names of all modules in declaration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}

// List returns copies of all descriptors in declaration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, *r.descriptors[name])
	}
	return result
}

// Selectable returns the titles of modules a user may pick. Headless and
// invalid modules are excluded.
func (r *Registry) Selectable() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]string, 0, len(r.order))
	for _, name := range r.order {
		d := r.descriptors[name]
		if d.Status == StatusHeadlessOnly || d.Status == StatusInvalid {
			continue
		}
		result = append(result, d.Title)
	}
	return result
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
