package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpstreamAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_attempts_total",
			Help: "Upstream workflow engine call attempts by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	UpstreamRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Retried upstream attempts by operation",
		},
		[]string{"operation"},
	)

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_attempt_duration_seconds",
			Help:    "Per-attempt upstream call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	IdempotentReplays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "idempotency_replays_total",
			Help: "Requests answered from a stored idempotency record",
		},
	)

	IdempotencyConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "idempotency_conflicts_total",
			Help: "Concurrent duplicate submissions rejected while the first was in flight",
		},
	)

	QueueDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_queue_dropped_total",
			Help: "Background tasks dropped because the queue was full",
		},
		[]string{"kind"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "background_queue_depth",
			Help: "Tasks currently waiting in the background queue",
		},
	)
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(
		UpstreamAttempts,
		UpstreamRetries,
		UpstreamLatency,
		IdempotentReplays,
		IdempotencyConflicts,
		QueueDropped,
		QueueDepth,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
