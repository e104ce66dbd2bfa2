package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metrics     *httpMetrics
)

// newHTTPMetrics registers the HTTP collectors under namespace. Registration
// happens once per process regardless of how many routers are built.
func newHTTPMetrics(namespace string) *httpMetrics {
	metricsOnce.Do(func() {
		metrics = &httpMetrics{
			requests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "http_requests_total",
					Help:      "Total number of HTTP requests",
				},
				[]string{"method", "route", "status"},
			),
			duration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "http_request_duration_seconds",
					Help:      "HTTP request duration in seconds",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"method", "route", "status"},
			),
			inFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      "http_requests_in_flight",
					Help:      "Current number of HTTP requests being served",
				},
			),
		}
	})
	return metrics
}

// PrometheusMetrics records request count, duration, and in-flight gauge per
// chi route pattern, so /api/v1/timeline/{id} stays one series regardless of
// the concrete ID.
func PrometheusMetrics(namespace string) func(next http.Handler) http.Handler {
	m := newHTTPMetrics(namespace)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.inFlight.Inc()
			defer m.inFlight.Dec()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			status := strconv.Itoa(rec.status)

			m.requests.WithLabelValues(r.Method, route, status).Inc()
			m.duration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		})
	}
}
