package dispatch

import (
	"context"
	"fmt"

	"github.com/vk/patchloader/internal/callback"
	"github.com/vk/patchloader/internal/ctxlog"
	"github.com/vk/patchloader/internal/failsink"
)

const phaseDeoptimize = "deoptimize"

// Dispatcher owns a callback Set and invokes it for package loads.
type Dispatcher struct {
	set  *callback.Set
	prep Preparer
	sink failsink.Sink
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPreparer sets the preparatory phase. A nil Preparer disables it.
func WithPreparer(p Preparer) Option {
	return func(d *Dispatcher) { d.prep = p }
}

// WithSink sets where callback failures are reported. The process-wide
// failsink.Default() is used otherwise.
func WithSink(s failsink.Sink) Option {
	return func(d *Dispatcher) { d.sink = s }
}

// New creates a Dispatcher over set.
func New(set *callback.Set, opts ...Option) *Dispatcher {
	d := &Dispatcher{set: set}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Callbacks returns the registered callbacks in dispatch order.
func (d *Dispatcher) Callbacks() []*callback.Callback {
	return d.set.Snapshot()
}

// DispatchAll prepares and then invokes every callback for lc.
func (d *Dispatcher) DispatchAll(ctx context.Context, lc *callback.LoadContext) error {
	if lc == nil {
		return fmt.Errorf("%w: nil", ErrInvalidContext)
	}
	if lc.PackageName == "" {
		return fmt.Errorf("%w: empty package name", ErrInvalidContext)
	}

	logger := ctxlog.FromContext(ctx)
	if d.prep != nil {
		if err := d.prep.Prepare(ctx, lc); err != nil {
			return &PrepareError{Phase: phaseDeoptimize, Err: err}
		}
	}

	callbacks := d.set.Snapshot()
	logger.Debug("Dispatching load callbacks.", "count", len(callbacks))
	failed := 0
	for _, cb := range callbacks {
		if f := callback.Invoke(ctx, cb, lc); f != nil {
			failed++
			d.report(ctx, f)
		}
	}
	logger.Debug("Load callbacks dispatched.", "count", len(callbacks), "failed", failed)
	return nil
}

func (d *Dispatcher) report(ctx context.Context, err error) {
	if d.sink != nil {
		d.sink.Report(ctx, err)
		return
	}
	failsink.Report(ctx, err)
}
