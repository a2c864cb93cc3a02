// Package metrics instruments package-load attempts with Prometheus
// collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFallback  = "fallback"
	OutcomeFatal     = "fatal"
	OutcomeRejected  = "rejected"
)

// Metrics groups the loader's collectors.
type Metrics struct {
	loads            *prometheus.CounterVec
	loadDuration     prometheus.Histogram
	bindFailures     prometheus.Counter
	callbackFailures prometheus.Counter
	rollbacks        prometheus.Counter
}

// New creates the collectors under namespace and registers them with reg.
// A nil reg leaves them unregistered, which is what tests and embedders
// without a metrics endpoint want.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "package_loads_total",
				Help:      "Package load events handled, by outcome",
			},
			[]string{"outcome"},
		),
		loadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "package_load_duration_seconds",
				Help:      "Time spent initializing modules for one package load",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		bindFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resource_bind_failures_total",
				Help:      "Resource directory bindings that failed and were skipped",
			},
		),
		callbackFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallback_callback_failures_total",
				Help:      "Callbacks that failed during fallback dispatch",
			},
		),
		rollbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loaded_mark_rollbacks_total",
				Help:      "Loaded-package marks removed after a fatal dispatch failure",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.loads, m.loadDuration, m.bindFailures, m.callbackFailures, m.rollbacks)
	}
	return m
}

// ObserveLoad records a finished load attempt.
func (m *Metrics) ObserveLoad(outcome string, took time.Duration) {
	m.loads.WithLabelValues(outcome).Inc()
	m.loadDuration.Observe(took.Seconds())
}

// BindFailed counts a skipped resource binding.
func (m *Metrics) BindFailed() { m.bindFailures.Inc() }

// CallbackFailed counts a callback failure absorbed by fallback dispatch.
func (m *Metrics) CallbackFailed() { m.callbackFailures.Inc() }

// RolledBack counts a removed loaded-package mark.
func (m *Metrics) RolledBack() { m.rollbacks.Inc() }

// Loads returns the counter for outcome, for inspection.
func (m *Metrics) Loads(outcome string) prometheus.Counter {
	return m.loads.WithLabelValues(outcome)
}
