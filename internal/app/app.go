package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/patchloader/internal/callback"
	"github.com/vk/patchloader/internal/config"
	"github.com/vk/patchloader/internal/ctxlog"
	"github.com/vk/patchloader/internal/dispatch"
	"github.com/vk/patchloader/internal/failsink"
	"github.com/vk/patchloader/internal/loaded"
	"github.com/vk/patchloader/internal/loader"
	"github.com/vk/patchloader/internal/metrics"
	"github.com/vk/patchloader/internal/resbind"
	"golang.org/x/time/rate"
)

// App encapsulates the loader's collaborators and configuration.
type App struct {
	logger      *slog.Logger
	config      *config.Config
	registry    *loaded.Registry
	binder      *resbind.Table
	callbacks   *callback.Set
	sink        *failsink.LogSink
	gatherer    *prometheus.Registry
	metrics     *metrics.Metrics
	coordinator *loader.Coordinator
}

// NewApp is the constructor used by hosts. It records loads in the
// process-wide registry and installs its failure sink as the process default.
// A nil cfg means config.Default().
func NewApp(outW io.Writer, cfg *config.Config, modules ...callback.Module) (*App, error) {
	a, err := newApp(outW, cfg, loaded.InProcess(), modules...)
	if err != nil {
		return nil, err
	}
	failsink.SetDefault(a.sink)
	return a, nil
}

// NewAppFromFile loads the HCL config at path and builds an App from it.
func NewAppFromFile(ctx context.Context, outW io.Writer, path string, modules ...callback.Module) (*App, error) {
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewApp(outW, cfg, modules...)
}

func newApp(outW io.Writer, cfg *config.Config, reg *loaded.Registry, modules ...callback.Module) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	set := callback.NewSet()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(set)
	}
	logger.Debug("All Go modules registered.", "modules", len(modules), "callbacks", set.Len())

	limit := rate.Limit(cfg.FailureSink.RatePerSecond)
	if cfg.FailureSink.RatePerSecond == 0 {
		limit = rate.Inf
	}
	sink := failsink.NewLogSink(limit, cfg.FailureSink.Burst)

	gatherer := prometheus.NewRegistry()
	m := metrics.New(cfg.Metrics.Namespace, gatherer)

	d := dispatch.New(set,
		dispatch.WithPreparer(dispatch.NewDeoptimizer(cfg.Dispatch.Deoptimize...)),
		dispatch.WithSink(sink),
	)

	opts := []loader.Option{
		loader.WithSink(sink),
		loader.WithFallback(cfg.Dispatch.Fallback),
		loader.WithMetrics(m),
	}
	var binder *resbind.Table
	if cfg.ResourceBinding.Enabled {
		binder = resbind.NewTable(resbind.WithVerifyDirs(cfg.ResourceBinding.VerifyDirs))
		opts = append(opts, loader.WithBinder(binder))
	}
	coord := loader.New(reg, d, opts...)
	logger.Debug("Coordinator ready.",
		"fallback", cfg.Dispatch.Fallback,
		"deoptimize", cfg.Dispatch.Deoptimize,
		"resource_binding", cfg.ResourceBinding.Enabled)

	return &App{
		logger:      logger,
		config:      cfg,
		registry:    reg,
		binder:      binder,
		callbacks:   set,
		sink:        sink,
		gatherer:    gatherer,
		metrics:     m,
		coordinator: coord,
	}, nil
}

// InitModules runs module initialization for pkg with the App's logger.
func (a *App) InitModules(ctx context.Context, pkg loader.LoadedPackage) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	return a.coordinator.InitModules(ctx, pkg)
}

// ResourcesReady opens the resource binder once the host's resource
// machinery is initialized. Loads before this only log a binding warning.
func (a *App) ResourcesReady() {
	if a.binder == nil {
		return
	}
	a.binder.MarkReady()
	a.logger.Debug("Resource binding enabled.")
}

// PackageForResDir returns the package bound to resDir, if any.
func (a *App) PackageForResDir(resDir string) (string, bool) {
	if a.binder == nil {
		return "", false
	}
	return a.binder.PackageForDir(resDir)
}

// Registry returns the loaded-package registry.
func (a *App) Registry() *loaded.Registry {
	return a.registry
}

// Callbacks returns the registered callbacks in dispatch order.
func (a *App) Callbacks() []*callback.Callback {
	return a.callbacks.Snapshot()
}

// Gatherer exposes the App's metrics for the host to scrape.
func (a *App) Gatherer() prometheus.Gatherer {
	return a.gatherer
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config {
	return a.config
}
