package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidContext is returned for a nil LoadContext or one without a
	// package name.
	ErrInvalidContext = errors.New("dispatch: invalid load context")
	// ErrNoClassLoader is returned by the Deoptimizer when the LoadContext
	// carries no class loader to resolve targets with.
	ErrNoClassLoader = errors.New("dispatch: load context has no class loader")
)

// ClassResolutionError reports a class that could not be resolved.
type ClassResolutionError struct {
	Class string
	Err   error
}

func (e *ClassResolutionError) Error() string {
	return fmt.Sprintf("no class definition found for %s: %v", e.Class, e.Err)
}

func (e *ClassResolutionError) Unwrap() error {
	return e.Err
}

// PrepareError wraps a failure of the preparatory phase. No callback has run
// when it is returned.
type PrepareError struct {
	Phase string
	Err   error
}

func (e *PrepareError) Error() string {
	return fmt.Sprintf("dispatch: %s phase failed: %v", e.Phase, e.Err)
}

func (e *PrepareError) Unwrap() error {
	return e.Err
}

// IsClassResolution reports whether err carries a *ClassResolutionError.
func IsClassResolution(err error) bool {
	var cre *ClassResolutionError
	return errors.As(err, &cre)
}
