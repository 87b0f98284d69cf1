// Package loader turns a library identifier into a live module instance.
// All platform mechanics sit behind the Loader interface; the resolution of
// the factory and version symbols is shared by every implementation.
package loader

import (
	"errors"
	"fmt"
	"plugin"
	"reflect"

	"modulehost/pkg/module"
)

// Loader materializes modules from library identifiers.
type Loader interface {
	// Load opens the library, creates a module with its factory and returns
	// the version reported by the library, or "" when it reports none.
	Load(library string) (module.Module, string, error)
}

// symbolTable is the view of an opened library the loader needs.
// *plugin.Plugin satisfies it.
type symbolTable interface {
	Lookup(name string) (plugin.Symbol, error)
}

// instantiate runs the symbol-resolution part of the loading algorithm on an
// already opened library.
func instantiate(library string, lib symbolTable) (module.Module, string, error) {
	sym, err := lib.Lookup(module.FactorySymbol)
	if err != nil {
		return nil, "", &LoadError{Library: library, Kind: MissingFactorySymbol, Diagnostic: err.Error()}
	}
	factory, ok := asFactory(sym)
	if !ok {
		return nil, "", &LoadError{
			Library:    library,
			Kind:       MissingFactorySymbol,
			Diagnostic: fmt.Sprintf("symbol %s has type %T", module.FactorySymbol, sym),
		}
	}

	// The version symbol is optional.
	var version module.VersionFunc
	if vs, err := lib.Lookup(module.VersionSymbol); err == nil {
		version, _ = asVersion(vs)
	}

	mod, err := construct(library, factory)
	if err != nil {
		return nil, "", err
	}

	return mod, reportedVersion(version), nil
}

// reportedVersion treats a panicking version symbol as reporting no version.
func reportedVersion(version module.VersionFunc) (v string) {
	if version == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			v = ""
		}
	}()
	return version()
}

func construct(library string, factory module.Factory) (mod module.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			mod = nil
			err = &LoadError{Library: library, Kind: FactoryReturnedNull, Diagnostic: fmt.Sprintf("factory panicked: %v", r)}
		}
	}()

	mod = factory()
	if isNil(mod) {
		return nil, &LoadError{Library: library, Kind: FactoryReturnedNull, Diagnostic: "factory returned nil"}
	}
	return mod, nil
}

func asFactory(sym plugin.Symbol) (module.Factory, bool) {
	switch f := sym.(type) {
	case func() module.Module:
		return f, f != nil
	case module.Factory:
		return f, f != nil
	case *module.Factory:
		if f != nil && *f != nil {
			return *f, true
		}
	case *func() module.Module:
		if f != nil && *f != nil {
			return *f, true
		}
	}
	return nil, false
}

func asVersion(sym plugin.Symbol) (module.VersionFunc, bool) {
	switch f := sym.(type) {
	case func() string:
		return f, f != nil
	case module.VersionFunc:
		return f, f != nil
	case *module.VersionFunc:
		if f != nil && *f != nil {
			return *f, true
		}
	case *func() string:
		if f != nil && *f != nil {
			return *f, true
		}
	}
	return nil, false
}

func isNil(mod module.Module) bool {
	if mod == nil {
		return true
	}
	v := reflect.ValueOf(mod)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// Chain tries each loader in order. A loader that cannot open the library
// passes the request on; any other failure stops the chain because the
// library was found but is broken.
type Chain []Loader

// Load implements Loader.
func (c Chain) Load(library string) (module.Module, string, error) {
	lastErr := error(&LoadError{Library: library, Kind: CannotOpenLibrary, Diagnostic: "no loader configured"})
	for _, l := range c {
		mod, version, err := l.Load(library)
		if err == nil {
			return mod, version, nil
		}
		if !errors.Is(err, ErrCannotOpenLibrary) {
			return nil, "", err
		}
		lastErr = err
	}
	return nil, "", lastErr
}
