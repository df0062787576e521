// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("health_search")
	b := NewCollector("health_search")

	a.ObserveStage("enhanced")
	assert.Contains(t, scrape(t, a), `health_search_search_outcomes_total{stage="enhanced"} 1`)
	assert.NotContains(t, scrape(t, b), `stage="enhanced"`)
}

func TestObserveProvider(t *testing.T) {
	c := NewCollector("health_search")
	c.ObserveProvider("research", 200, 2*time.Second)
	c.ObserveProvider("research", 429, time.Second)
	c.ObserveProvider("enhancement", 0, time.Second)

	out := scrape(t, c)
	assert.Contains(t, out, `health_search_provider_calls_total{provider="research",status="200"} 1`)
	assert.Contains(t, out, `health_search_provider_calls_total{provider="research",status="429"} 1`)
	assert.Contains(t, out, `health_search_provider_calls_total{provider="enhancement",status="0"} 1`)
	assert.Contains(t, out, `health_search_provider_call_duration_seconds_count{provider="research"} 2`)
}

func TestMiddleware(t *testing.T) {
	c := NewCollector("health_search")

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "fine")
	})

	for _, path := range []string{"/items/1", "/items/2", "/ok"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	out := scrape(t, c)
	assert.Contains(t, out, `health_search_http_requests_total{method="GET",route="/items/{id}",status="418"} 2`)
	assert.Contains(t, out, `health_search_http_requests_total{method="GET",route="/ok",status="200"} 1`)
	assert.Contains(t, out, `health_search_http_request_duration_seconds_count{method="GET",route="/ok"} 1`)
}
