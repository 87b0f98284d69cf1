package loader

import (
	"fmt"
	"plugin"
	"sort"
	"sync"

	"modulehost/pkg/module"
)

// StaticLoader serves modules compiled into the host. Module packages
// register their factory from an init() function, and the loader resolves
// them through the same symbol table protocol as plugin libraries.
type StaticLoader struct {
	mu   sync.RWMutex
	libs map[string]staticLibrary
}

type staticLibrary map[string]plugin.Symbol

func (s staticLibrary) Lookup(name string) (plugin.Symbol, error) {
	sym, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found", name)
	}
	return sym, nil
}

// NewStaticLoader creates an empty static loader.
func NewStaticLoader() *StaticLoader {
	return &StaticLoader{libs: make(map[string]staticLibrary)}
}

// Register makes factory available under the library identifier id.
// version may be empty.
func (s *StaticLoader) Register(id string, factory module.Factory, version string) error {
	if id == "" {
		return fmt.Errorf("static library id cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("static library %s: factory cannot be nil", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.libs[id]; exists {
		return fmt.Errorf("static library %s already registered", id)
	}
	lib := staticLibrary{module.FactorySymbol: factory}
	if version != "" {
		lib[module.VersionSymbol] = module.VersionFunc(func() string { return version })
	}
	s.libs[id] = lib
	return nil
}

// Has reports whether id is served by this loader.
func (s *StaticLoader) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.libs[id]
	return ok
}

// IDs returns the registered library identifiers, sorted.
func (s *StaticLoader) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.libs))
	for id := range s.libs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Load implements Loader.
func (s *StaticLoader) Load(library string) (module.Module, string, error) {
	s.mu.RLock()
	lib, ok := s.libs[library]
	s.mu.RUnlock()
	if !ok {
		return nil, "", &LoadError{
			Library:    library,
			Kind:       CannotOpenLibrary,
			Diagnostic: "library is not linked into the host",
		}
	}
	return instantiate(library, lib)
}

// Static is the process-wide loader for compiled-in modules.
var Static = NewStaticLoader()

// Register adds a compiled-in module to Static.
// This is typically called from init() functions in module packages.
func Register(id string, factory module.Factory, version string) error {
	return Static.Register(id, factory, version)
}
