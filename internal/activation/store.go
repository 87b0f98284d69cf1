package activation

import "modulehost/pkg/module"

// Store owns every module loaded during the process lifetime. Order follows
// registry declaration order; modules unknown to the registry come last.
type Store struct {
	modules []module.Module
	byName  map[string]module.Module
}

func newStore() *Store {
	return &Store{byName: make(map[string]module.Module)}
}

// Get returns the module with the given internal name, or nil.
func (s *Store) Get(name string) module.Module {
	return s.byName[name]
}

// Contains reports whether mod is already stored.
func (s *Store) Contains(mod module.Module) bool {
	for _, m := range s.modules {
		if m == mod {
			return true
		}
	}
	return false
}

// Add stores mod and reorders the list by declared. It returns false when
// mod, or another module with the same name, is already stored.
func (s *Store) Add(mod module.Module, declared []string) bool {
	if mod == nil || s.Contains(mod) {
		return false
	}
	name := mod.Name()
	if name != "" && s.byName[name] != nil {
		return false
	}

	ordered := make([]module.Module, 0, len(s.modules)+1)
	placed := make(map[module.Module]bool, len(s.modules)+1)
	place := func(m module.Module) {
		if m != nil && !placed[m] {
			ordered = append(ordered, m)
			placed[m] = true
		}
	}
	for _, n := range declared {
		if n == name {
			place(mod)
		} else {
			place(s.byName[n])
		}
	}
	for _, m := range s.modules {
		place(m)
	}
	place(mod)

	s.modules = ordered
	if name != "" {
		s.byName[name] = mod
	}
	return true
}

// List returns the stored modules in order.
func (s *Store) List() []module.Module {
	result := make([]module.Module, len(s.modules))
	copy(result, s.modules)
	return result
}

// Len returns the number of stored modules.
func (s *Store) Len() int {
	return len(s.modules)
}

func (s *Store) clear() {
	s.modules = nil
	s.byName = make(map[string]module.Module)
}
