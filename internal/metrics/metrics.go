// Package metrics exposes Prometheus instrumentation for resource operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records engine activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New creates the collectors and registers them on a dedicated registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backstack",
			Name:      "operations_total",
			Help:      "Resource operations by resource, action and outcome.",
		}, []string{"resource", "action", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backstack",
			Name:      "errors_total",
			Help:      "Structured errors returned to callers by resource, kind and code.",
		}, []string{"resource", "kind", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "backstack",
			Name:      "operation_duration_seconds",
			Help:      "Duration of resource operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource", "action"}),
	}
	m.registry.MustRegister(
		m.operations,
		m.errors,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOperation records one completed operation.
func (m *Metrics) ObserveOperation(resource, action string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.operations.WithLabelValues(resource, action, outcome).Inc()
	m.duration.WithLabelValues(resource, action).Observe(elapsed.Seconds())
}

// ObserveError records a structured error returned for resource.
func (m *Metrics) ObserveError(resource, kind, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(resource, kind, code).Inc()
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
