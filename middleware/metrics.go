package middleware

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odvcencio/furry-store/state"
)

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "furry_store").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for transition duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collector.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "furry_store",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Transition results used as the "result" label.
const (
	ResultChanged   = "changed"
	ResultUnchanged = "unchanged"
	ResultError     = "error"
)

// MetricsCollector holds the store metrics. One collector serves any
// number of stores, labelled by store name.
type MetricsCollector struct {
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	listeners   *prometheus.GaugeVec
}

// NewMetricsCollector creates the metrics and registers them. Registering
// twice on the same registry reuses the metrics already there.
func NewMetricsCollector(opts ...MetricsOption) (*MetricsCollector, error) {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	transitions, err := register(config.Registry, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "transitions_total",
		Help:        "Total number of store transitions by result",
		ConstLabels: config.ConstLabels,
	}, []string{"store", "result"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(config.Registry, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "transition_duration_seconds",
		Help:        "Time spent applying a transition and notifying listeners",
		ConstLabels: config.ConstLabels,
		Buckets:     config.Buckets,
	}, []string{"store"}))
	if err != nil {
		return nil, err
	}
	listeners, err := register(config.Registry, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "listeners",
		Help:        "Listeners registered on the store after its last transition",
		ConstLabels: config.ConstLabels,
	}, []string{"store"}))
	if err != nil {
		return nil, err
	}

	return &MetricsCollector{
		transitions: transitions,
		duration:    duration,
		listeners:   listeners,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// Metrics records every transition of the store on c.
func Metrics[T any](c *MetricsCollector) state.Middleware[T] {
	return func(set state.SetFunc[T], get state.GetFunc[T], api *state.Store[T]) state.SetFunc[T] {
		name := api.Name()
		return func(partial state.Partial[T], replace bool) error {
			prev := get()
			start := time.Now()
			err := set(partial, replace)
			c.duration.WithLabelValues(name).Observe(time.Since(start).Seconds())

			result := ResultChanged
			switch {
			case err != nil:
				result = ResultError
			case get() == prev:
				result = ResultUnchanged
			}
			c.transitions.WithLabelValues(name, result).Inc()
			c.listeners.WithLabelValues(name).Set(float64(api.ListenerCount()))
			return err
		}
	}
}
