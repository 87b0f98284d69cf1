package loader

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var librarySuffixes = []string{".so", ".dll", ".dylib"}

// LibraryFileName maps a platform-neutral library identifier to the file
// name of the library on the running platform.
func LibraryFileName(id string) string {
	return libraryFileName(runtime.GOOS, id)
}

func libraryFileName(goos, id string) string {
	if id == "" || hasLibrarySuffix(id) {
		return id
	}
	if goos == "windows" {
		return id + ".dll"
	}
	return "lib" + id + ".so"
}

// LibraryID normalizes a configured library reference to its
// platform-neutral identifier: "/opt/lib/libGEOM.so" and "GEOM.dll" both
// become "GEOM". Plain identifiers are returned unchanged.
func LibraryID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	base := filepath.Base(filepath.FromSlash(raw))
	if !hasLibrarySuffix(base) {
		return base
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimPrefix(base, "lib")
}

func hasLibrarySuffix(name string) bool {
	ext := filepath.Ext(name)
	for _, s := range librarySuffixes {
		if ext == s {
			return true
		}
	}
	return false
}

// SearchPath returns the directories the platform dynamic linker searches.
func SearchPath() []string {
	return searchPath(runtime.GOOS, os.Getenv)
}

func searchPath(goos string, getenv func(string) string) []string {
	variable := "LD_LIBRARY_PATH"
	switch goos {
	case "windows":
		variable = "PATH"
	case "darwin":
		variable = "DYLD_LIBRARY_PATH"
	}
	var dirs []string
	for _, dir := range filepath.SplitList(getenv(variable)) {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// FindLibrary looks for the library file of id in dirs. An id that already
// names a path is checked as is.
func FindLibrary(id string, dirs []string) (string, bool) {
	if id == "" {
		return "", false
	}
	if strings.ContainsRune(id, os.PathSeparator) || strings.ContainsRune(id, '/') {
		return id, fileExists(id)
	}
	file := LibraryFileName(id)
	for _, dir := range dirs {
		candidate := filepath.Join(dir, file)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return file, false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
