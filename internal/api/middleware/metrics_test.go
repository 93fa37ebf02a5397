package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/emails/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		r.Get("/usage", func(w http.ResponseWriter, r *http.Request) {})
	})
	return r
}

func TestMetrics_LabelsRouteGroupAndStatusClass(t *testing.T) {
	r := metricsRouter()
	emails := apiRequestsTotal.WithLabelValues("emails", "GET", "/api/v1/emails/{id}", "4xx")
	before := testutil.ToFloat64(emails)

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/emails/"+id, nil))
	}

	assert.Equal(t, before+3, testutil.ToFloat64(emails))
}

func TestMetrics_HealthAndUnmatchedGroups(t *testing.T) {
	r := metricsRouter()
	health := apiRequestsTotal.WithLabelValues("health", "GET", "/healthz", "2xx")
	unmatched := apiRequestsTotal.WithLabelValues("unmatched", "GET", "unmatched", "4xx")
	healthBefore, unmatchedBefore := testutil.ToFloat64(health), testutil.ToFloat64(unmatched)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/wp-login.php", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/.env", nil))

	assert.Equal(t, healthBefore+1, testutil.ToFloat64(health))
	assert.Equal(t, unmatchedBefore+2, testutil.ToFloat64(unmatched))
	assert.Zero(t, testutil.ToFloat64(apiRequestsInFlight))
}

func TestRouteGroup(t *testing.T) {
	cases := map[string]string{
		"/api/v1/emails":      "emails",
		"/api/v1/emails/{id}": "emails",
		"/api/v1/usage":       "usage",
		"/healthz":            "health",
		"/readyz":             "health",
		"/metrics":            "metrics",
		"unmatched":           "unmatched",
		"/debug/pprof":        "other",
	}
	for route, want := range cases {
		assert.Equal(t, want, routeGroup(route), route)
	}
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(http.StatusAccepted))
	assert.Equal(t, "3xx", statusClass(http.StatusNotModified))
	assert.Equal(t, "4xx", statusClass(http.StatusTooManyRequests))
	assert.Equal(t, "5xx", statusClass(http.StatusServiceUnavailable))
}
