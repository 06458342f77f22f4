// Package metrics exposes Prometheus instrumentation for the evaluation pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// sourceRequests counts evidence retrievals by source and result
	sourceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newscheck_source_requests_total",
		Help: "Evidence source retrievals by source and result",
	}, []string{"source", "result"})

	// sourceDuration tracks evidence retrieval latency
	sourceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newscheck_source_duration_seconds",
		Help:    "Evidence source retrieval duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 9), // 50ms to ~13s
	}, []string{"source"})

	// lateResults counts results discarded because they arrived after the aggregation deadline
	lateResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newscheck_source_late_results_total",
		Help: "Source results discarded after the aggregation deadline",
	}, []string{"source"})

	// backendAttempts counts reasoning backend calls by provider and result
	backendAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newscheck_backend_attempts_total",
		Help: "Reasoning backend calls by provider and result",
	}, []string{"provider", "result"})

	// verdicts counts final verdicts by label and outcome
	verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newscheck_verdicts_total",
		Help: "Verdicts by label and outcome",
	}, []string{"label", "outcome"})

	// evaluationDuration tracks end-to-end evaluation latency
	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newscheck_evaluation_duration_seconds",
		Help:    "End-to-end claim evaluation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
	})
)

// Call results
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultTimeout = "timeout"
)

// ObserveSource records one source retrieval.
func ObserveSource(source, result string, d time.Duration) {
	sourceRequests.WithLabelValues(source, result).Inc()
	sourceDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveLate records a straggler result that was discarded.
func ObserveLate(source string) {
	lateResults.WithLabelValues(source).Inc()
}

// ObserveBackend records one backend attempt.
func ObserveBackend(provider, result string) {
	backendAttempts.WithLabelValues(provider, result).Inc()
}

// ObserveVerdict records a finished evaluation.
func ObserveVerdict(label, outcome string, d time.Duration) {
	verdicts.WithLabelValues(label, outcome).Inc()
	evaluationDuration.Observe(d.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
