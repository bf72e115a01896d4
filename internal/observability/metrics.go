package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	autosaveWrites       *prometheus.CounterVec
	autosaveSuppressed   *prometheus.CounterVec
	autosaveBreakerTrips prometheus.Counter
	lifecycleTransitions *prometheus.CounterVec
	uploadRequests       *prometheus.CounterVec
	uploadRejected       *prometheus.CounterVec
	uploadLatency        prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors for the API and the
// autosave engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		autosaveWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autosave_writes_total",
			Help: "Draft autosave writes, labelled by outcome.",
		}, []string{"outcome"})

		autosaveSuppressed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autosave_suppressed_total",
			Help: "Autosave attempts suppressed before reaching storage.",
		}, []string{"reason"})

		autosaveBreakerTrips = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autosave_breaker_trips_total",
			Help: "Times the autosave circuit breaker disabled a session.",
		})

		lifecycleTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_transitions_total",
			Help: "Assignment status transitions, labelled by from and to status.",
		}, []string{"from", "to"})

		uploadRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_requests_total",
			Help: "Accepted uploads, labelled by detected file type.",
		}, []string{"type"})

		uploadRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_rejected_total",
			Help: "Rejected uploads, labelled by rejection reason.",
		}, []string{"reason"})

		uploadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_latency_seconds",
			Help:    "Latency distribution for upload processing.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			autosaveWrites,
			autosaveSuppressed,
			autosaveBreakerTrips,
			lifecycleTransitions,
			uploadRequests,
			uploadRejected,
			uploadLatency,
		)
	})
}

// HTTPRequests exposes the counter for served requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// AutosaveWrites exposes the autosave write counter.
func AutosaveWrites() *prometheus.CounterVec {
	RegisterMetrics()
	return autosaveWrites
}

// AutosaveSuppressed exposes the counter for suppressed autosave attempts.
func AutosaveSuppressed() *prometheus.CounterVec {
	RegisterMetrics()
	return autosaveSuppressed
}

// AutosaveBreakerTrips exposes the circuit breaker trip counter.
func AutosaveBreakerTrips() prometheus.Counter {
	RegisterMetrics()
	return autosaveBreakerTrips
}

// LifecycleTransitions exposes the status transition counter.
func LifecycleTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return lifecycleTransitions
}

// UploadRequests exposes the counter for accepted uploads.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequests
}

// UploadRejected exposes the counter for rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejected
}

// UploadLatency exposes the upload processing histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatency
}

// MetricsHandler exposes the Prometheus scrape endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
