package config

import (
	"errors"
	"fmt"
	"slices"
)

// DefaultDeoptimizeTarget is the class resolved before dispatch when no
// deoptimize list is configured.
const DefaultDeoptimizeTarget = "android.app.Instrumentation"

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Config is the complete loader configuration.
type Config struct {
	LogLevel        string
	LogFormat       string
	ResourceBinding ResourceBinding
	Dispatch        Dispatch
	FailureSink     FailureSink
	Metrics         Metrics
}

// ResourceBinding configures the resource-directory binder.
type ResourceBinding struct {
	Enabled bool
	// VerifyDirs makes the binder stat the directory before recording it.
	VerifyDirs bool
}

// Dispatch configures callback dispatch.
type Dispatch struct {
	Fallback bool
	// Deoptimize lists the classes resolved before any callback runs.
	Deoptimize []string
}

// FailureSink configures the rate limit of logged callback failures. A
// RatePerSecond of zero disables throttling.
type FailureSink struct {
	RatePerSecond float64
	Burst         int
}

// Metrics configures Prometheus instrumentation.
type Metrics struct {
	Namespace string
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		ResourceBinding: ResourceBinding{
			Enabled: true,
		},
		Dispatch: Dispatch{
			Fallback:   true,
			Deoptimize: []string{DefaultDeoptimizeTarget},
		},
		FailureSink: FailureSink{
			RatePerSecond: 10,
			Burst:         20,
		},
		Metrics: Metrics{
			Namespace: "patchloader",
		},
	}
}

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(validLogLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level %q must be one of %v", c.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errs = append(errs, fmt.Errorf("log_format %q must be one of %v", c.LogFormat, validLogFormats))
	}
	if c.FailureSink.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("failure_sink.rate_per_second must not be negative, got %v", c.FailureSink.RatePerSecond))
	}
	if c.FailureSink.Burst < 0 {
		errs = append(errs, fmt.Errorf("failure_sink.burst must not be negative, got %d", c.FailureSink.Burst))
	} else if c.FailureSink.RatePerSecond > 0 && c.FailureSink.Burst < 1 {
		errs = append(errs, fmt.Errorf("failure_sink.burst must be at least 1 when rate_per_second is set, got %d", c.FailureSink.Burst))
	}
	for i, target := range c.Dispatch.Deoptimize {
		if target == "" {
			errs = append(errs, fmt.Errorf("dispatch.deoptimize[%d] is empty", i))
		}
	}
	if c.Metrics.Namespace == "" {
		errs = append(errs, errors.New("metrics.namespace must not be empty"))
	}
	return errors.Join(errs...)
}
