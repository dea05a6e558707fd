// Package metrics holds the Prometheus collectors of boothcam.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Capture outcomes.
const (
	OutcomeDirect    = "direct"
	OutcomeFallback  = "fallback"
	OutcomeTrigger   = "trigger"
	OutcomeExhausted = "exhausted"
	OutcomeError     = "error"
)

var (
	// Capture metrics
	capturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boothcam_captures_total",
			Help: "Total number of capture attempts by outcome",
		},
		[]string{"outcome"},
	)

	captureDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "boothcam_capture_duration_seconds",
			Help:    "Capture latency in seconds, from session open to file saved",
			Buckets: []float64{0.5, 1, 2, 5, 10, 15, 20, 30},
		},
	)

	capturePolls = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "boothcam_capture_event_polls",
			Help:    "Number of event polls issued per capture",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 75, 100},
		},
	)

	triggerCalls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boothcam_trigger_calls_total",
			Help: "Total number of secondary trigger captures issued",
		},
	)

	deletionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boothcam_deletion_failures_total",
			Help: "Total number of files that could not be removed from the camera",
		},
	)

	sessionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boothcam_session_failures_total",
			Help: "Total number of camera sessions that failed to open, by error kind",
		},
		[]string{"kind"},
	)

	busyRejects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boothcam_busy_rejects_total",
			Help: "Total number of operations rejected because the camera was in use",
		},
	)

	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boothcam_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boothcam_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "boothcam_http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	// Rate limiting metrics
	rateLimitRejects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boothcam_rate_limit_rejects_total",
			Help: "Total number of requests rejected due to rate limiting",
		},
	)

	// Panic recovery metrics
	panicRecoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boothcam_panic_recoveries_total",
			Help: "Total number of panics recovered in HTTP handlers",
		},
	)
)

// Capture records one finished capture.
func Capture(outcome string, polls, triggers int, d time.Duration) {
	capturesTotal.WithLabelValues(outcome).Inc()
	capturePolls.Observe(float64(polls))
	captureDuration.Observe(d.Seconds())
	if triggers > 0 {
		triggerCalls.Add(float64(triggers))
	}
}

// DeletionFailure records a file left on the camera.
func DeletionFailure() { deletionFailures.Inc() }

// SessionFailure records a session that failed to open.
func SessionFailure(kind string) { sessionFailures.WithLabelValues(kind).Inc() }

// BusyReject records an operation turned away while another was running.
func BusyReject() { busyRejects.Inc() }

// HTTPRequest records a served HTTP request.
func HTTPRequest(method, path, status string, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// InFlight adjusts the number of HTTP requests being served.
func InFlight(delta float64) { httpRequestsInFlight.Add(delta) }

// RateLimitReject records a request refused by the rate limiter.
func RateLimitReject() { rateLimitRejects.Inc() }

// PanicRecovered records a recovered handler panic.
func PanicRecovered() { panicRecoveries.Inc() }
