package loader

import (
	"errors"
	"fmt"

	"modulehost/pkg/module"
)

// ErrorKind classifies dynamic loading failures.
type ErrorKind int

const (
	// CannotOpenLibrary means the library could not be found or opened.
	CannotOpenLibrary ErrorKind = iota + 1
	// MissingFactorySymbol means the library has no usable factory symbol.
	MissingFactorySymbol
	// FactoryReturnedNull means the factory ran but produced no module.
	FactoryReturnedNull
)

// Sentinels for errors.Is matching against a *LoadError.
var (
	ErrCannotOpenLibrary    = errors.New("cannot open library")
	ErrMissingFactorySymbol = errors.New("missing factory symbol")
	ErrFactoryReturnedNull  = errors.New("factory returned no module")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case CannotOpenLibrary:
		return ErrCannotOpenLibrary
	case MissingFactorySymbol:
		return ErrMissingFactorySymbol
	case FactoryReturnedNull:
		return ErrFactoryReturnedNull
	}
	return nil
}

func (k ErrorKind) String() string {
	if err := k.sentinel(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("load error kind %d", int(k))
}

// LoadError reports a failure of the loader before any module callback ran.
type LoadError struct {
	Library    string
	Kind       ErrorKind
	Diagnostic string
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case CannotOpenLibrary:
		return fmt.Sprintf("can not load library %s: %s", e.Library, e.Diagnostic)
	case MissingFactorySymbol:
		return fmt.Sprintf("failed to find function %s in %s: %s", module.FactorySymbol, e.Library, e.Diagnostic)
	case FactoryReturnedNull:
		return fmt.Sprintf("module factory in %s returned no module: %s", e.Library, e.Diagnostic)
	}
	return fmt.Sprintf("load %s: %s", e.Library, e.Diagnostic)
}

// Is reports whether target is the sentinel for this error's kind.
func (e *LoadError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}
