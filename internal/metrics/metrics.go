package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ctxKey string

const routeLabelKey ctxKey = "metrics_route"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitverse_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitverse_http_errors_total",
		Help: "Total number of HTTP requests resulting in server errors.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fitverse_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	dbLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fitverse_db_latency_seconds",
		Help:    "Histogram of database operation latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "route"})

	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fitverse_upstream_latency_seconds",
		Help:    "Histogram of backend API call latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	cacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitverse_cache_events_total",
		Help: "Remote data cache outcomes by resource kind.",
	}, []string{"resource", "event"})

	paymentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitverse_payment_outcomes_total",
		Help: "Terminal outcomes of booking payment flows.",
	}, []string{"outcome"})
)

// Middleware records request metrics and enriches the context with the route label.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), routeLabelKey, r.URL.Path)

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			// chi only knows the matched pattern after routing.
			route := routePattern(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			statusCode := strconv.Itoa(status)

			httpRequestsTotal.WithLabelValues(r.Method, route).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route, statusCode).Observe(time.Since(start).Seconds())
			if status >= http.StatusInternalServerError {
				httpErrorsTotal.WithLabelValues(r.Method, route, statusCode).Inc()
			}
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDBLatency records database latency for a given operation.
func ObserveDBLatency(ctx context.Context, operation string, start time.Time) {
	dbLatency.WithLabelValues(operation, routeFromContext(ctx)).Observe(time.Since(start).Seconds())
}

// ObserveUpstream records the latency of a backend API call. Outcome is a
// coarse label such as "ok", "4xx", "5xx" or "network".
func ObserveUpstream(operation, outcome string, start time.Time) {
	upstreamLatency.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

// CacheEvent counts a cache outcome (hit, miss, shared, error, stale_discarded, invalidated).
func CacheEvent(resource, event string) {
	cacheEvents.WithLabelValues(resource, event).Inc()
}

// PaymentOutcome counts a terminal payment flow outcome.
func PaymentOutcome(outcome string) {
	paymentOutcomes.WithLabelValues(outcome).Inc()
}

func routeFromContext(ctx context.Context) string {
	if route, ok := ctx.Value(routeLabelKey).(string); ok && route != "" {
		return route
	}
	return "unknown"
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
