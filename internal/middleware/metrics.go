package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sellerhub",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sellerhub",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	requestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sellerhub",
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served",
		},
	)

	// AnalysesTotal counts dispatched analyses by provider family and outcome.
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sellerhub",
			Name:      "analyses_total",
			Help:      "Total number of analysis requests",
		},
		[]string{"provider", "outcome"},
	)

	// OAuthTotal counts gateway actions by outcome.
	OAuthTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sellerhub",
			Name:      "oauth_actions_total",
			Help:      "Total number of OAuth gateway actions",
		},
		[]string{"action", "outcome"},
	)
)

// RecordAnalysis records one dispatcher call. outcome is "success" or an error kind.
func RecordAnalysis(provider, outcome string) {
	AnalysesTotal.WithLabelValues(provider, outcome).Inc()
}

func RecordOAuth(action, outcome string) {
	OAuthTotal.WithLabelValues(action, outcome).Inc()
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestsInFlight.Inc()
		defer requestsInFlight.Dec()
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// MetricsHandler exposes the default registry in Prometheus text format.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
