package activation

import (
	"errors"
	"fmt"
)

var (
	ErrNoDocument        = errors.New("no active document")
	ErrReentrant         = errors.New("module activation already in progress")
	ErrUnknownModule     = errors.New("unknown module")
	ErrInvalidModule     = errors.New("module configuration is invalid")
	ErrNoModules         = errors.New("modules configuration is not defined")
	ErrLoadInProgress    = errors.New("module load already in progress")
	ErrOperationDeclined = errors.New("module declined the operation")
)

// RejectedError is returned when the controller refuses a request without
// invoking any module callback.
type RejectedError struct {
	Module string
	Err    error
}

func (e *RejectedError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("activation rejected: %v", e.Err)
	}
	return fmt.Sprintf("activation of %s rejected: %v", e.Module, e.Err)
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// DeclinedError is returned when a module's own Activate returned false.
// It is not a system failure; the host simply has no active module.
type DeclinedError struct {
	Module string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("module %s could not be activated in the current document", e.Module)
}
