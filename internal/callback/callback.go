package callback

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Callback priorities. Higher runs earlier.
const (
	PriorityLowest  = -10000
	PriorityDefault = 50
	PriorityHighest = 10000
)

// LoadHandler is implemented by modules that want to observe package loads.
type LoadHandler interface {
	HandleLoad(ctx context.Context, lc *LoadContext) error
}

// HandlerFunc adapts a plain function to LoadHandler.
type HandlerFunc func(ctx context.Context, lc *LoadContext) error

// HandleLoad implements LoadHandler.
func (f HandlerFunc) HandleLoad(ctx context.Context, lc *LoadContext) error {
	return f(ctx, lc)
}

// Callback is a registered handler together with its ordering data.
type Callback struct {
	Name     string
	Priority int
	Handler  LoadHandler

	seq uint64
}

// Failure describes a callback that returned an error or panicked.
type Failure struct {
	Callback string
	Package  string
	Err      error
	// Panic holds the recovered value when the callback panicked.
	Panic any
	Stack []byte
}

func (f *Failure) Error() string {
	if f.Panic != nil {
		return fmt.Sprintf("callback %s panicked handling %s: %v", f.Callback, f.Package, f.Panic)
	}
	return fmt.Sprintf("callback %s failed handling %s: %v", f.Callback, f.Package, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Invoke runs cb against lc and converts both returned errors and panics into
// a *Failure, so one misbehaving module cannot unwind its caller.
func Invoke(ctx context.Context, cb *Callback, lc *LoadContext) (failure *Failure) {
	defer func() {
		if r := recover(); r != nil {
			failure = &Failure{
				Callback: cb.Name,
				Package:  lc.PackageName,
				Panic:    r,
				Stack:    debug.Stack(),
			}
			if err, ok := r.(error); ok {
				failure.Err = err
			}
		}
	}()

	if err := cb.Handler.HandleLoad(ctx, lc); err != nil {
		return &Failure{Callback: cb.Name, Package: lc.PackageName, Err: err}
	}
	return nil
}
