package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Image upload metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "image_upload",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "image_upload",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	CredentialsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "image_upload",
			Name:      "credentials_issued_total",
			Help:      "Write credentials issued",
		},
		[]string{"content_type", "status"},
	)

	DuplicatesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "image_upload",
			Name:      "duplicates_detected_total",
			Help:      "Uploads that overwrite an existing object",
		},
		[]string{"tagged"},
	)

	TagQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "image_upload",
			Name:      "tag_queries_total",
			Help:      "Tag queries by outcome",
		},
		[]string{"outcome"},
	)

	EnrichmentJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "image_upload",
			Name:      "enrichment_jobs_total",
			Help:      "Background tagging jobs by status",
		},
		[]string{"status"},
	)

	// S3 operations counter
	S3OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "image_upload",
			Name:      "s3_operations_total",
			Help:      "Total S3 operations",
		},
		[]string{"operation", "status"},
	)

	// S3 operation duration
	S3Duration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "image_upload",
			Name:      "s3_duration_seconds",
			Help:      "S3 operation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordCredential records a presign attempt
func RecordCredential(contentType, status string) {
	CredentialsIssued.WithLabelValues(contentType, status).Inc()
}

func RecordDuplicate(tagged bool) {
	label := "false"
	if tagged {
		label = "true"
	}
	DuplicatesDetected.WithLabelValues(label).Inc()
}

func RecordTagQuery(outcome string) {
	TagQueries.WithLabelValues(outcome).Inc()
}

func RecordEnrichment(status string) {
	EnrichmentJobs.WithLabelValues(status).Inc()
}

// RecordS3Operation records an S3 operation
func RecordS3Operation(operation, status string, durationSec float64) {
	S3OperationsTotal.WithLabelValues(operation, status).Inc()
	S3Duration.WithLabelValues(operation).Observe(durationSec)
}
