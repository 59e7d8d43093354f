// Package metrics provides Prometheus metrics for the bot.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Job metrics
	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripbot_jobs_total",
			Help: "Total number of download jobs by outcome",
		},
		[]string{"outcome"},
	)

	jobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ripbot_job_duration_seconds",
			Help:    "Download job duration in seconds, from scratch dir creation to cleanup",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	jobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ripbot_jobs_in_flight",
			Help: "Number of download jobs currently running",
		},
	)

	// Delivery metrics
	filesDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ripbot_files_delivered_total",
			Help: "Total audio files uploaded to chats",
		},
	)

	bytesDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ripbot_bytes_delivered_total",
			Help: "Total bytes of audio uploaded to chats",
		},
	)

	filesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripbot_files_skipped_total",
			Help: "Total audio files not delivered",
		},
		[]string{"reason"},
	)

	// Search metrics
	searchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripbot_search_requests_total",
			Help: "Total catalog search requests",
		},
		[]string{"result"},
	)
)

// Skip reasons.
const (
	SkipTooLarge     = "too_large"
	SkipUploadFailed = "upload_failed"
)

// Search results.
const (
	SearchHit         = "hit"
	SearchEmpty       = "empty"
	SearchUnreachable = "unreachable"
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// JobStarted marks a job as in flight.
func JobStarted() {
	jobsInFlight.Inc()
}

// RecordJob records a finished job.
func RecordJob(outcome string, duration time.Duration) {
	jobsInFlight.Dec()
	jobsTotal.WithLabelValues(outcome).Inc()
	jobDuration.Observe(duration.Seconds())
}

// RecordFileDelivered records one uploaded file.
func RecordFileDelivered(bytes int64) {
	filesDeliveredTotal.Inc()
	bytesDeliveredTotal.Add(float64(bytes))
}

// RecordFileSkipped records a file that was not delivered.
func RecordFileSkipped(reason string) {
	filesSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordSearch records a catalog search.
func RecordSearch(result string) {
	searchRequestsTotal.WithLabelValues(result).Inc()
}
