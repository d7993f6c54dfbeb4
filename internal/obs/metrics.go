package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP-level metrics shared by every route.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Session-domain metrics.
var (
	signinAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authbridge_signin_attempts_total",
			Help: "Sign-in attempts by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	sessionsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authbridge_sessions_issued_total",
		Help: "Session tokens minted from a fresh verified identity.",
	})

	sessionRefreshes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authbridge_session_refreshes_total",
		Help: "Session tokens re-issued with an extended expiry.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		signinAttempts, sessionsIssued, sessionRefreshes,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSignin records a sign-in attempt. method is "password" or "oauth";
// outcome is "success", "rejected" or "unavailable".
func ObserveSignin(method, outcome string) {
	signinAttempts.WithLabelValues(method, outcome).Inc()
}

// ObserveSessionIssued counts a freshly minted session.
func ObserveSessionIssued() { sessionsIssued.Inc() }

// ObserveSessionRefreshed counts a rolled session cookie.
func ObserveSessionRefreshed() { sessionRefreshes.Inc() }

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for metric labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
