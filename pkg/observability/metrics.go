package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by the engine's lifecycle hooks.
type Metrics struct {
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	inflight     *prometheus.GaugeVec
}

type metricsConfig struct {
	namespace string
	buckets   []float64
}

// MetricsOption configures NewMetrics.
type MetricsOption func(*metricsConfig)

// WithNamespace prefixes every metric name. Defaults to "signaltree".
func WithNamespace(ns string) MetricsOption {
	return func(c *metricsConfig) {
		c.namespace = ns
	}
}

// WithBuckets overrides the histogram buckets (seconds).
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *metricsConfig) {
		c.buckets = buckets
	}
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, opts ...MetricsOption) (*Metrics, error) {
	cfg := metricsConfig{
		namespace: "signaltree",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "runs_total",
			Help:      "Total number of signal runs by outcome.",
		}, []string{"signal", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of signal runs.",
			Buckets:   cfg.buckets,
		}, []string{"signal"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "steps_total",
			Help:      "Total number of step invocations by outcome.",
		}, []string{"signal", "action", "async", "status"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of step invocations.",
			Buckets:   cfg.buckets,
		}, []string{"signal", "action"}),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.namespace,
			Name:      "runs_in_flight",
			Help:      "Signal runs currently executing.",
		}, []string{"signal"}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.runDuration, m.steps, m.stepDuration, m.inflight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func status(err error, replayed bool) string {
	switch {
	case err != nil:
		return "error"
	case replayed:
		return "replayed"
	}
	return "ok"
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSignalStart: func(_ context.Context, e *domain.SignalEvent) {
			m.inflight.WithLabelValues(e.Signal).Inc()
		},
		OnSignalEnd: func(_ context.Context, e *domain.SignalEvent) {
			m.inflight.WithLabelValues(e.Signal).Dec()
			m.runs.WithLabelValues(e.Signal, status(e.Err, false)).Inc()
			m.runDuration.WithLabelValues(e.Signal).Observe(e.Duration.Seconds())
		},
		OnStepEnd: func(_ context.Context, e *domain.StepEvent) {
			m.steps.WithLabelValues(e.Signal, e.Action, strconv.FormatBool(e.Async), status(e.Err, e.Replayed)).Inc()
			if !e.Replayed {
				m.stepDuration.WithLabelValues(e.Signal, e.Action).Observe(e.Duration.Seconds())
			}
		},
	}
}
