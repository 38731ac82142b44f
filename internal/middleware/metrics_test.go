// AngelaMos | 2026
// metrics_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/v1/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	matched := httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/orders/{id}", "204")
	unmatched := httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")
	matchedBefore := counterValue(t, matched)
	unmatchedBefore := counterValue(t, unmatched)

	for _, path := range []string{"/v1/orders/42", "/v1/orders/7"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	for _, path := range []string{"/wp-login.php", "/v1/nope/3f2b8a0e-1c2d-4e5f-8a9b-0c1d2e3f4a5b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.InDelta(t, matchedBefore+2, counterValue(t, matched), 0)
	assert.InDelta(t, unmatchedBefore+2, counterValue(t, unmatched), 0)
}

func TestRoutePattern_WithoutRouteContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/gigs/42", nil)

	assert.Equal(t, unmatchedRoute, routePattern(r))
}
