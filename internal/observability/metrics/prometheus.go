package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Buckets for dispatch/job duration histograms (1ms to 30s).
	durationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

	// DispatchesAttempted counts channel dispatches handed to a sender.
	DispatchesAttempted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_dispatches_attempted_total",
			Help: "Total number of channel dispatches handed to a sender, by channel.",
		},
		[]string{"channel"},
	)

	// DispatchesDelivered counts channel dispatches the sender accepted.
	DispatchesDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_dispatches_delivered_total",
			Help: "Total number of channel dispatches accepted by the provider, by channel.",
		},
		[]string{"channel"},
	)

	// DispatchesFailed counts channel dispatches whose sender reported failure.
	DispatchesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_dispatches_failed_total",
			Help: "Total number of channel dispatches that failed at the sender, by channel.",
		},
		[]string{"channel"},
	)

	// RecipientsResolved counts recipients resolved per dispatch outcome.
	RecipientsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_recipients_resolved_total",
			Help: "Total number of recipient resolutions, by outcome (resolved, not_found, suppressed).",
		},
		[]string{"outcome"},
	)

	// InboxDedupHits counts chat inbox upserts that refreshed an existing
	// unread record instead of creating one.
	InboxDedupHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_inbox_dedup_hits_total",
			Help: "Total number of inbox upserts deduplicated against an unread record.",
		},
	)

	// JobsEnqueued counts jobs accepted by the enqueue edge.
	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_jobs_enqueued_total",
			Help: "Total number of jobs published to the broker, by queue and job.",
		},
		[]string{"queue", "job"},
	)

	// JobsProcessed counts successfully processed queue jobs.
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_jobs_processed_total",
			Help: "Total number of queue jobs processed successfully, by queue and job.",
		},
		[]string{"queue", "job"},
	)

	// JobsFailed counts jobs that failed on their first attempt.
	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_jobs_failed_total",
			Help: "Total number of queue jobs that failed on the initial attempt, by queue and job.",
		},
		[]string{"queue", "job"},
	)

	// JobsRetried counts jobs scheduled for retry.
	JobsRetried = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_jobs_retried_total",
			Help: "Total number of queue jobs scheduled for retry, by queue and job.",
		},
		[]string{"queue", "job"},
	)

	// JobsDLQ counts jobs moved to the Dead Letter Queue.
	JobsDLQ = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_jobs_dlq_total",
			Help: "Total number of queue jobs moved to the Dead Letter Queue, by queue and job.",
		},
		[]string{"queue", "job"},
	)

	// HTTPRequestsTotal counts API requests by endpoint and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_http_requests_total",
			Help: "Total number of HTTP requests, by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration measures API request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifier_http_request_duration_seconds",
			Help:    "Histogram of HTTP request duration in seconds, by endpoint.",
			Buckets: durationBuckets,
		},
		[]string{"endpoint"},
	)

	// JobDuration measures job processing duration.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifier_job_processing_duration_seconds",
			Help:    "Histogram of job processing duration in seconds, by queue, job and success status.",
			Buckets: durationBuckets,
		},
		[]string{"queue", "job", "success"},
	)
)

// MetricsHandler returns the HTTP handler for the Prometheus metrics endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// ObserveJobDuration simplifies observing job processing duration.
func ObserveJobDuration(queue, job string, success bool, start time.Time) {
	successStr := "false"
	if success {
		successStr = "true"
	}
	JobDuration.WithLabelValues(queue, job, successStr).Observe(time.Since(start).Seconds())
}
