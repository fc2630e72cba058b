package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Backend and workbench Prometheus metrics.
var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scbir",
			Name:      "backend_requests_total",
			Help:      "Total number of requests to the search backend",
		},
		[]string{"endpoint", "status"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scbir",
			Name:      "backend_request_duration_seconds",
			Help:      "Search backend request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	BackendErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scbir",
			Name:      "backend_errors_total",
			Help:      "Total search backend errors by kind",
		},
		[]string{"endpoint", "error_type"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scbir",
			Name:      "cache_total",
			Help:      "Cache hits and misses",
		},
		[]string{"cache", "result"}, // cache: search/thumbnail; result: hit/miss
	)

	SessionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scbir",
			Name:      "session_transitions_total",
			Help:      "Upload session transitions by target status",
		},
		[]string{"status"},
	)

	StaleResultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scbir",
			Name:      "stale_results_discarded_total",
			Help:      "Search completions discarded because a newer selection superseded them",
		},
	)

	PreviewHandlesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "scbir",
			Name:      "preview_handles_active",
			Help:      "Preview handles currently acquired",
		},
	)
)

var registerOnce sync.Once

// RegisterWorkbenchMetrics registers backend and session metrics. Safe to call more than once.
func RegisterWorkbenchMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(BackendRequestsTotal)
		prometheus.MustRegister(BackendRequestDuration)
		prometheus.MustRegister(BackendErrorsTotal)
		prometheus.MustRegister(CacheTotal)
		prometheus.MustRegister(SessionTransitionsTotal)
		prometheus.MustRegister(StaleResultsTotal)
		prometheus.MustRegister(PreviewHandlesActive)
	})
}
