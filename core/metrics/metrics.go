// Package metrics exposes reconciliation and save counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "graph_store"

// Metrics holds the collectors of one process on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	records  *prometheus.CounterVec
	created  *prometheus.CounterVec
	queries  *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	saves    *prometheus.CounterVec
}

// New creates the collectors and registers them, along with the Go runtime
// collectors, on a new registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciled_records_total",
			Help:      "Records applied by the reconciler.",
		}, []string{"entity", "path"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "created_objects_total",
			Help:      "Objects inserted by the reconciler.",
		}, []string{"entity"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_queries_total",
			Help:      "Context fetches issued by the reconciler.",
		}, []string{"entity", "path"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_failures_total",
			Help:      "Reconciliation calls that returned an error.",
		}, []string{"entity", "path"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciliation calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity", "path"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Context save chains by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.records, m.created, m.queries, m.failures, m.duration, m.saves,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordReconcile implements reconcile.Recorder.
func (m *Metrics) RecordReconcile(entity, path string, records, created, queries int, elapsed time.Duration, err error) {
	m.records.WithLabelValues(entity, path).Add(float64(records))
	m.created.WithLabelValues(entity).Add(float64(created))
	m.queries.WithLabelValues(entity, path).Add(float64(queries))
	m.duration.WithLabelValues(entity, path).Observe(elapsed.Seconds())
	if err != nil {
		m.failures.WithLabelValues(entity, path).Inc()
	}
}

// RecordSave counts one save chain.
func (m *Metrics) RecordSave(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.saves.WithLabelValues(result).Inc()
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
