package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart operation outcomes. A nil receiver is a no-op so the
// cart package can run without a registry.
type CartMetrics struct {
	duration *prometheus.HistogramVec
	mutation *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_operation_duration_seconds",
		Help:    "Duration of cart operations in seconds, storage round-trips included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	mutation := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations applied, by operation.",
	}, []string{"op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_storage_failures_total",
		Help: "Cart storage reads/writes/parses that failed and were degraded.",
	}, []string{"op"})
	reg.MustRegister(duration, mutation, failure)
	return &CartMetrics{
		duration: duration,
		mutation: mutation,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named operation.
func (c *CartMetrics) ObserveDuration(op string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncMutation counts an applied mutation.
func (c *CartMetrics) IncMutation(op string) {
	if c == nil || c.mutation == nil {
		return
	}
	c.mutation.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncStorageFailure counts a degraded storage operation ("load", "parse", "save").
func (c *CartMetrics) IncStorageFailure(op string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(op)).Inc()
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
