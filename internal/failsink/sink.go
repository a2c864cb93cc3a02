// Package failsink is the process-wide destination for failures that must be
// reported but never propagated, such as a module callback that errors or
// panics while a package is being initialized.
package failsink

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/vk/patchloader/internal/callback"
	"github.com/vk/patchloader/internal/ctxlog"
	"golang.org/x/time/rate"
)

// Sink receives contained failures.
type Sink interface {
	Report(ctx context.Context, err error)
}

type holder struct{ s Sink }

var global atomic.Pointer[holder]

func init() {
	global.Store(&holder{s: NewLogSink(rate.Inf, 0)})
}

// Default returns the process-wide sink.
func Default() Sink {
	return global.Load().s
}

// SetDefault replaces the process-wide sink. A nil sink is ignored.
func SetDefault(s Sink) {
	if s == nil {
		return
	}
	global.Store(&holder{s: s})
}

// Report forwards err to the process-wide sink.
func Report(ctx context.Context, err error) {
	Default().Report(ctx, err)
}

// LogSink logs reported failures at ERROR through the context logger. Bursts
// are throttled; throttled reports are counted and the count is attached to
// the next line that gets through.
type LogSink struct {
	limiter    *rate.Limiter
	total      atomic.Int64
	suppressed atomic.Int64
}

// NewLogSink creates a LogSink allowing limit lines per second with the given
// burst. rate.Inf disables throttling. A finite limit gets a burst of at least
// one; a zero burst would never let a line through.
func NewLogSink(limit rate.Limit, burst int) *LogSink {
	if limit != rate.Inf && burst < 1 {
		burst = 1
	}
	return &LogSink{limiter: rate.NewLimiter(limit, burst)}
}

// Report implements Sink.
func (s *LogSink) Report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	s.total.Add(1)
	if !s.limiter.Allow() {
		s.suppressed.Add(1)
		return
	}

	args := []any{"error", err}
	var f *callback.Failure
	if errors.As(err, &f) && f.Panic != nil && len(f.Stack) > 0 {
		args = append(args, "stack", string(f.Stack))
	}
	if n := s.suppressed.Swap(0); n > 0 {
		args = append(args, "suppressed_since_last", n)
	}
	ctxlog.FromContext(ctx).Error("Module failure.", args...)
}

// Total returns how many failures were reported, logged or not.
func (s *LogSink) Total() int64 { return s.total.Load() }

// Suppressed returns how many failures are waiting to be summarized.
func (s *LogSink) Suppressed() int64 { return s.suppressed.Load() }

// Recorder keeps every reported failure in memory and optionally forwards it.
type Recorder struct {
	mu   sync.Mutex
	errs []error
	next Sink
}

// NewRecorder returns a Recorder forwarding to next, which may be nil.
func NewRecorder(next Sink) *Recorder {
	return &Recorder{next: next}
}

// Report implements Sink.
func (r *Recorder) Report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()

	if r.next != nil {
		r.next.Report(ctx, err)
	}
}

// Errors returns a copy of the recorded failures in report order.
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

// Reset drops all recorded failures.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.errs = nil
	r.mu.Unlock()
}
