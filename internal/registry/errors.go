package registry

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyName      = errors.New("module name cannot be empty")
	ErrDuplicateName  = errors.New("module already registered")
	ErrDuplicateTitle = errors.New("module title already in use")
	ErrReservedName   = errors.New("module name is reserved by the host")
)

// RegistrationError reports why a descriptor was refused.
type RegistrationError struct {
	Name string
	Err  error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register module %q: %v", e.Name, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}
