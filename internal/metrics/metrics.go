// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtweet_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidtweet_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtweet_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"route"},
	)

	// ViewPipelineDuration times each read-model pipeline.
	ViewPipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidtweet_view_pipeline_duration_seconds",
			Help:    "Duration of aggregation read pipelines in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"view"},
	)

	ViewPipelineErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtweet_view_pipeline_errors_total",
			Help: "Total number of failed aggregation read pipelines",
		},
		[]string{"view"},
	)

	// ToggleOutcomes counts toggle results. A "raced" outcome means the insert
	// lost to a concurrent request and the state was re-read.
	ToggleOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtweet_toggle_outcomes_total",
			Help: "Total number of like/subscription toggles by resulting state",
		},
		[]string{"relation", "outcome"},
	)

	BlobOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtweet_blob_operations_total",
			Help: "Total number of blob storage operations",
		},
		[]string{"operation", "result"},
	)

	BlobBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidtweet_blob_breaker_state",
			Help: "Blob storage circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	JanitorQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidtweet_janitor_queue_depth",
			Help: "Number of orphaned blobs waiting for deletion",
		},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordViewPipeline records the duration and failure of a read pipeline.
func RecordViewPipeline(view string, duration time.Duration, err error) {
	ViewPipelineDuration.WithLabelValues(view).Observe(duration.Seconds())
	if err != nil {
		ViewPipelineErrors.WithLabelValues(view).Inc()
	}
}

// RecordToggle records a toggle outcome.
func RecordToggle(relation, outcome string) {
	ToggleOutcomes.WithLabelValues(relation, outcome).Inc()
}

// RecordBlobOperation records a blob storage call.
func RecordBlobOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	BlobOperations.WithLabelValues(operation, result).Inc()
}
