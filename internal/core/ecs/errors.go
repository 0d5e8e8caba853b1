package ecs

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	ErrTypeRegistration          = eris.New("component type registration failed")
	ErrInvalidComponentKind      = eris.New("component is not a fixed-size value type")
	ErrEntityNotFound            = eris.New("entity not found")
	ErrComponentAlreadyPresent   = eris.New("component already present")
	ErrComponentNotRegistered    = eris.New("component not registered")
	ErrUndeclaredComponentAccess = eris.New("component not declared by system query")
	ErrUnknownSystem             = eris.New("dispatch for unknown system")
	ErrUnknownTag                = eris.New("unknown tag")
	ErrSlotMismatch              = eris.New("query slot does not hold requested component")
	ErrCursorClosed              = eris.New("query cursor used after its callback returned")
	ErrSystemRegistration        = eris.New("system registration failed")
	ErrHookExists                = eris.New("component already has hooks")
	ErrClosed                    = eris.New("world is closed")
)

// TypeRegistrationError reports a type the registry refused. It matches
// ErrTypeRegistration as well as its cause.
type TypeRegistrationError struct {
	Type string
	Err  error
}

func (e *TypeRegistrationError) Error() string {
	return fmt.Sprintf("register component %s: %v", e.Type, e.Err)
}

func (e *TypeRegistrationError) Unwrap() error { return e.Err }

func (e *TypeRegistrationError) Is(target error) bool {
	return target == ErrTypeRegistration
}

// fatal reports errors that mean the managed and native sides disagree about
// their own bookkeeping; dispatch panics on them instead of logging.
func fatal(err error) bool {
	return errors.Is(err, ErrUnknownSystem) || errors.Is(err, ErrSlotMismatch)
}
