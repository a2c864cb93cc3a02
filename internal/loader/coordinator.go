package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/patchloader/internal/callback"
	"github.com/vk/patchloader/internal/ctxlog"
	"github.com/vk/patchloader/internal/dispatch"
	"github.com/vk/patchloader/internal/failsink"
	"github.com/vk/patchloader/internal/metrics"
	"github.com/vk/patchloader/internal/procinfo"
	"github.com/vk/patchloader/internal/resbind"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vk/patchloader/internal/loader"

// ErrEmptyPackageName is returned when InitModules is called without a
// package name. The registry is not touched.
var ErrEmptyPackageName = errors.New("loader: empty package name")

// Registry is the loaded-package bookkeeping the Coordinator updates.
type Registry interface {
	MarkLoaded(key string) bool
	Unmark(key string)
}

// Dispatcher invokes registered callbacks.
type Dispatcher interface {
	DispatchAll(ctx context.Context, lc *callback.LoadContext) error
	Callbacks() []*callback.Callback
}

// LoadedPackage describes the package the host has just loaded.
type LoadedPackage struct {
	PackageName string
	ResDir      string
	// ProcessName may be left empty; the current process name is used then.
	ProcessName string
	ClassLoader callback.ClassLoader
	AppInfo     *callback.AppInfo
}

// Coordinator runs module initialization for package-load events.
type Coordinator struct {
	registry    Registry
	dispatcher  Dispatcher
	binder      resbind.Binder
	sink        failsink.Sink
	processName func() string
	fallback    bool
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	hooks       []func(Transition)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBinder sets the resource binder. Without one, binding is skipped.
func WithBinder(b resbind.Binder) Option {
	return func(c *Coordinator) { c.binder = b }
}

// WithSink sets where fallback callback failures are reported. The
// process-wide failsink.Default() is used otherwise.
func WithSink(s failsink.Sink) Option {
	return func(c *Coordinator) { c.sink = s }
}

// WithProcessName overrides how the process name is found when a
// LoadedPackage does not carry one.
func WithProcessName(fn func() string) Option {
	return func(c *Coordinator) { c.processName = fn }
}

// WithFallback enables or disables fallback dispatch. It is enabled by
// default; when disabled, a class-resolution failure is treated as fatal.
func WithFallback(enabled bool) Option {
	return func(c *Coordinator) { c.fallback = enabled }
}

// WithMetrics sets the metrics to record into.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithTracer sets the tracer. The global otel tracer is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) { c.tracer = t }
}

// WithTransitionHook registers fn to be called on every state transition.
func WithTransitionHook(fn func(Transition)) Option {
	return func(c *Coordinator) { c.hooks = append(c.hooks, fn) }
}

// New creates a Coordinator.
func New(reg Registry, d Dispatcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry:    reg,
		dispatcher:  d,
		processName: procinfo.Name,
		fallback:    true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.New("patchloader", nil)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// InitModules initializes modules for pkg. It returns nil when dispatch
// succeeded or fallback dispatch ran; otherwise the dispatch error, wrapped.
// A panic raised by the dispatcher is re-raised after rollback.
func (c *Coordinator) InitModules(ctx context.Context, pkg LoadedPackage) error {
	start := time.Now()
	if pkg.PackageName == "" {
		c.metrics.ObserveLoad(metrics.OutcomeRejected, time.Since(start))
		return ErrEmptyPackageName
	}

	ctx, span := c.tracer.Start(ctx, "patchloader.InitModules",
		trace.WithAttributes(attribute.String("package", pkg.PackageName)))
	defer span.End()
	ctx, logger := ctxlog.With(ctx, "package", pkg.PackageName)

	run := &attempt{pkg: pkg.PackageName, state: Unmarked, hooks: c.hooks}
	run.advance(ctx, Marking)
	owned := c.registry.MarkLoaded(pkg.PackageName)
	run.advance(ctx, Marked)
	span.SetAttributes(attribute.Bool("owned_mark", owned))
	logger.Debug("Package marked as loaded.", "owned_mark", owned)

	c.bindResources(ctx, span, pkg)

	processName := pkg.ProcessName
	if processName == "" {
		processName = c.processName()
	}
	lc := callback.NewLoadContext(pkg.PackageName, processName, pkg.ClassLoader, pkg.AppInfo)
	lc.IsFirstApplication = true
	span.SetAttributes(attribute.String("process", processName))
	ctx, logger = ctxlog.With(ctx, "load_id", lc.ID)

	recovered, panicked, err := c.callDispatch(ctx, lc)
	switch {
	case panicked:
		c.abort(ctx, span, run, pkg.PackageName, owned, fmt.Errorf("dispatch panicked: %v", recovered))
		c.metrics.ObserveLoad(metrics.OutcomeFatal, time.Since(start))
		panic(recovered)

	case err == nil:
		run.advance(ctx, DispatchSucceeded)
		span.SetAttributes(attribute.String("outcome", metrics.OutcomeSucceeded))
		c.metrics.ObserveLoad(metrics.OutcomeSucceeded, time.Since(start))
		logger.Debug("Modules initialized.", "took", time.Since(start))
		return nil

	case c.fallback && dispatch.IsClassResolution(err):
		logger.Warn("Dispatch failed before callbacks, falling back to direct dispatch.", "error", err)
		span.AddEvent("fallback_dispatch", trace.WithAttributes(attribute.String("cause", err.Error())))
		failed := c.dispatchDirect(ctx, lc)
		run.advance(ctx, DispatchFailedFallback)
		span.SetAttributes(
			attribute.String("outcome", metrics.OutcomeFallback),
			attribute.Int("failed_callbacks", failed),
		)
		c.metrics.ObserveLoad(metrics.OutcomeFallback, time.Since(start))
		logger.Info("Modules initialized through fallback dispatch.", "failed_callbacks", failed)
		return nil

	default:
		c.abort(ctx, span, run, pkg.PackageName, owned, err)
		c.metrics.ObserveLoad(metrics.OutcomeFatal, time.Since(start))
		return fmt.Errorf("init modules for %s: %w", pkg.PackageName, err)
	}
}

// callDispatch runs DispatchAll, capturing a panic instead of unwinding so
// that the mark can be rolled back before the panic continues.
func (c *Coordinator) callDispatch(ctx context.Context, lc *callback.LoadContext) (recovered any, panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			recovered, panicked = r, true
		}
	}()
	return nil, false, c.dispatcher.DispatchAll(ctx, lc)
}

func (c *Coordinator) bindResources(ctx context.Context, span trace.Span, pkg LoadedPackage) {
	if c.binder == nil {
		return
	}
	if err := safeBind(c.binder, pkg.PackageName, pkg.ResDir); err != nil {
		ctxlog.FromContext(ctx).Warn("Resource directory binding failed, continuing without resource mapping.",
			"res_dir", pkg.ResDir, "error", err)
		span.AddEvent("resource_bind_failed", trace.WithAttributes(attribute.String("error", err.Error())))
		c.metrics.BindFailed()
	}
}

func safeBind(b resbind.Binder, packageName, resDir string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resource binder panicked: %v", r)
		}
	}()
	return b.Bind(packageName, resDir)
}

// dispatchDirect invokes every callback without the preparatory phase and
// returns how many failed.
func (c *Coordinator) dispatchDirect(ctx context.Context, lc *callback.LoadContext) int {
	failed := 0
	for _, cb := range c.dispatcher.Callbacks() {
		if f := callback.Invoke(ctx, cb, lc); f != nil {
			failed++
			c.metrics.CallbackFailed()
			c.report(ctx, f)
		}
	}
	return failed
}

func (c *Coordinator) abort(ctx context.Context, span trace.Span, run *attempt, pkg string, owned bool, cause error) {
	logger := ctxlog.FromContext(ctx)
	if owned {
		c.registry.Unmark(pkg)
		c.metrics.RolledBack()
		logger.Warn("Rolled back loaded mark so a later load can retry.")
	}
	run.advance(ctx, DispatchFailedFatal)

	span.RecordError(cause)
	span.SetStatus(codes.Error, cause.Error())
	span.SetAttributes(attribute.String("outcome", metrics.OutcomeFatal))
	logger.Error("Module initialization failed.", "error", cause, "rolled_back", owned)
}

func (c *Coordinator) report(ctx context.Context, err error) {
	if c.sink != nil {
		c.sink.Report(ctx, err)
		return
	}
	failsink.Report(ctx, err)
}

// attempt tracks the state of one InitModules call.
type attempt struct {
	pkg   string
	state State
	hooks []func(Transition)
}

func (a *attempt) advance(ctx context.Context, to State) {
	logger := ctxlog.FromContext(ctx)
	if err := ValidateTransition(a.state, to); err != nil {
		logger.Error("Unexpected load state transition.", "error", err)
	}
	from := a.state
	a.state = to
	logger.Debug("Load state changed.", "from", from, "to", to)
	for _, h := range a.hooks {
		h(Transition{Package: a.pkg, From: from, To: to})
	}
}
