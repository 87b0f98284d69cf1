package loader

// LibrarySearch decides module availability by looking for the module
// library on disk or among compiled-in modules.
type LibrarySearch struct {
	library func(title string) string
	static  *StaticLoader
	dirs    []string
}

// NewLibrarySearch builds an availability check. library maps a module title
// to its library identifier; static may be nil.
func NewLibrarySearch(library func(title string) string, static *StaticLoader, dirs []string) *LibrarySearch {
	return &LibrarySearch{library: library, static: static, dirs: dirs}
}

// Available reports whether the module with the given title can be loaded.
// Untitled modules are never reported available.
func (s *LibrarySearch) Available(title string) bool {
	if title == "" {
		return false
	}
	id := s.library(title)
	if id == "" {
		return false
	}
	if s.static != nil && s.static.Has(id) {
		return true
	}
	_, found := FindLibrary(id, s.dirs)
	return found
}
