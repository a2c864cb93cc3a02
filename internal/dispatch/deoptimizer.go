package dispatch

import (
	"context"

	"github.com/vk/patchloader/internal/callback"
	"github.com/vk/patchloader/internal/ctxlog"
)

// Preparer runs before any callback is invoked.
type Preparer interface {
	Prepare(ctx context.Context, lc *callback.LoadContext) error
}

// PreparerFunc adapts a function to Preparer.
type PreparerFunc func(ctx context.Context, lc *callback.LoadContext) error

// Prepare implements Preparer.
func (f PreparerFunc) Prepare(ctx context.Context, lc *callback.LoadContext) error {
	return f(ctx, lc)
}

// Deoptimizer resolves the classes whose methods must be deoptimized before
// modules hook them. Resolution goes through the loaded application's class
// loader, which is not always able to see framework classes during the
// earliest moments of process startup.
type Deoptimizer struct {
	targets []string
}

// NewDeoptimizer creates a Deoptimizer for the given class names.
func NewDeoptimizer(targets ...string) *Deoptimizer {
	t := make([]string, len(targets))
	copy(t, targets)
	return &Deoptimizer{targets: t}
}

// Targets returns the configured class names.
func (d *Deoptimizer) Targets() []string {
	t := make([]string, len(d.targets))
	copy(t, d.targets)
	return t
}

// Prepare implements Preparer.
func (d *Deoptimizer) Prepare(ctx context.Context, lc *callback.LoadContext) error {
	if len(d.targets) == 0 {
		return nil
	}
	if lc.ClassLoader == nil {
		return ErrNoClassLoader
	}

	logger := ctxlog.FromContext(ctx)
	for _, class := range d.targets {
		if err := lc.ClassLoader.Resolve(class); err != nil {
			return &ClassResolutionError{Class: class, Err: err}
		}
		logger.Debug("Deoptimized target.", "class", class)
	}
	return nil
}
