package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storyflow"

// Metrics holds the collectors fed by the engine hooks.
type Metrics struct {
	registry *prometheus.Registry

	Steps           *prometheus.CounterVec
	NodeVisits      *prometheus.CounterVec
	VariableChanges *prometheus.CounterVec
}

// MetricsOption configures Metrics.
type MetricsOption func(*metricsConfig)

type metricsConfig struct {
	registry       *prometheus.Registry
	runtimeMetrics bool
}

// WithRegistry registers the collectors on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) MetricsOption {
	return func(c *metricsConfig) {
		c.registry = reg
	}
}

// WithRuntimeMetrics adds the Go runtime and process collectors.
func WithRuntimeMetrics() MetricsOption {
	return func(c *metricsConfig) {
		c.runtimeMetrics = true
	}
}

// NewMetrics creates and registers the engine collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := &metricsConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.registry == nil {
		cfg.registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: cfg.registry,
		Steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Engine operations by result kind.",
			},
			[]string{"graph_id", "result"},
		),
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_visits_total",
				Help:      "Node evaluations by graph and node type.",
			},
			[]string{"graph_id", "node_type"},
		),
		VariableChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "variable_changes_total",
				Help:      "Applied variable changes.",
			},
			[]string{"variable"},
		),
	}

	m.registry.MustRegister(m.Steps, m.NodeVisits, m.VariableChanges)
	if cfg.runtimeMetrics {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.GraphID, string(e.NodeType)).Inc()
		},
		OnStep: func(_ context.Context, e *domain.StepEvent) {
			m.Steps.WithLabelValues(e.GraphID, string(e.Result)).Inc()
		},
		OnVariableChange: func(_ context.Context, e *domain.VariableEvent) {
			m.VariableChanges.WithLabelValues(e.Variable).Inc()
		},
	}
}
