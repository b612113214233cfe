package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transcode results used as the "result" label.
const (
	ResultSuccess   = "success"
	ResultToolError = "tool_error"
	ResultTimeout   = "timeout"
	ResultError     = "error"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediashrink_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediashrink_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Transcoding metrics
var (
	TranscodesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediashrink_transcodes_in_flight",
			Help: "Number of transcoder processes currently running",
		},
	)

	TranscodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediashrink_transcodes_total",
			Help: "Total number of transcode attempts by result",
		},
		[]string{"bitrate", "result"},
	)

	TranscodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediashrink_transcode_duration_seconds",
			Help:    "Transcoder run time in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"bitrate"},
	)

	UploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediashrink_upload_size_bytes",
			Help:    "Size of accepted uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 9),
		},
	)
)

// Janitor metrics
var (
	JanitorFilesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediashrink_janitor_files_removed_total",
			Help: "Total number of stale files removed from the uploads directory",
		},
	)

	JanitorBytesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediashrink_janitor_bytes_removed_total",
			Help: "Total bytes of stale files removed from the uploads directory",
		},
	)
)
