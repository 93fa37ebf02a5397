package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const apiPrefix = "/api/v1/"

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sendline",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route group, route and status class.",
		},
		[]string{"group", "method", "route", "code"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sendline",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route group and route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"group", "route"},
	)

	apiRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sendline",
		Subsystem: "api",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served.",
	})
)

// Metrics is a chi middleware that records request metrics labelled by route
// pattern, so /emails/{id} is one series regardless of the id. Requests that
// match no route share the "unmatched" route to keep cardinality bounded.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiRequestsInFlight.Inc()
		defer apiRequestsInFlight.Dec()

		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		group := routeGroup(route)

		apiRequestsTotal.WithLabelValues(group, r.Method, route, statusClass(ww.status)).Inc()
		apiRequestDuration.WithLabelValues(group, route).Observe(time.Since(start).Seconds())
	})
}

// routeGroup maps a route pattern to the surface it belongs to: "emails" and
// "usage" for the account API, "health" for liveness and readiness checks.
func routeGroup(route string) string {
	switch route {
	case "unmatched":
		return "unmatched"
	case "/healthz", "/readyz":
		return "health"
	case "/metrics":
		return "metrics"
	}
	if rest, ok := strings.CutPrefix(route, apiPrefix); ok {
		if name, _, _ := strings.Cut(rest, "/"); name != "" {
			return name
		}
	}
	return "other"
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
