// Package metrics holds the prometheus collectors of the suggestion pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registry served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestion_submissions_total",
			Help: "Suggestion submissions by boundary outcome",
		},
		[]string{"result"}, // "accepted", "invalid", "rate_limited"
	)

	OutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestion_outcomes_total",
			Help: "Processed suggestions by terminal status",
		},
		[]string{"status"},
	)

	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestion_jobs_total",
			Help: "Suggestion job attempts by result",
		},
		[]string{"result"}, // "succeeded", "retried", "dead_lettered"
	)

	JobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "suggestion_job_duration_seconds",
			Help:    "Duration of one suggestion job attempt",
			Buckets: prometheus.DefBuckets,
		},
	)

	RollbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "revision_rollbacks_total",
			Help: "Revisions rolled back",
		},
	)

	PendingSuggestions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "suggestions_pending_stale",
			Help: "Suggestions still pending past the staleness threshold",
		},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	Registry.MustRegister(
		SubmissionsTotal,
		OutcomesTotal,
		JobsTotal,
		JobDuration,
		RollbacksTotal,
		PendingSuggestions,
		HTTPRequestDuration,
	)
}

// Handler serves the registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records the duration of a served request.
func RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(statusCode)).Observe(duration.Seconds())
}
