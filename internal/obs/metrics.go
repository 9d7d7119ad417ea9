package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics plus the domain counters the access engine feeds.
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

	accessDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pin_access_decisions_total",
			Help: "Pin access policy decisions by reason code.",
		},
		[]string{"reason"},
	)

	collaboratorFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collaborator_fallbacks_total",
			Help: "Fail-closed fallbacks taken when a collaborator call failed.",
		},
		[]string{"service"},
	)

	revealUnlocks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pin_reveal_unlocks_total",
		Help: "Successful reveal unlocks recorded.",
	})
)

// Init registers all metrics with the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		accessDecisions,
		collaboratorFallbacks,
		revealUnlocks,
	)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AccessDecision counts one policy verdict.
func AccessDecision(reason string) {
	accessDecisions.WithLabelValues(reason).Inc()
}

// CollaboratorFallback counts one fail-closed fallback for a service.
func CollaboratorFallback(service string) {
	collaboratorFallbacks.WithLabelValues(service).Inc()
}

// RevealUnlock counts one recorded unlock.
func RevealUnlock() {
	revealUnlocks.Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for labeling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
