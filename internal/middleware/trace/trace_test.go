package trace

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "tripledger/internal/log"
	"tripledger/internal/metrics"
)

func TestMiddlewareLogsAndMeasures(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "json", Output: &buf})
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(NewMiddleware(logger, m, func(*http.Request) string { return "10.1.1.1" }).Middleware)
	r.Get("/api/trips/{id}", func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).InfoContext(r.Context(), "handler ran")
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trips/abc", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, "debug start line is filtered at info level")

	var inner, end map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &inner))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &end))
	assert.NotEmpty(t, inner[applog.FieldRequestID])
	assert.Equal(t, inner[applog.FieldRequestID], end[applog.FieldRequestID])
	assert.EqualValues(t, http.StatusTeapot, end[applog.FieldStatusCode])
	assert.Equal(t, "10.1.1.1", end[applog.FieldClientIP])

	assert.Equal(t, 1, mustCount(t, m))
}

func TestRoutePatternUnmatched(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	assert.Equal(t, unmatchedRoute, routePattern(r))
}

func mustCount(t *testing.T, m *metrics.Metrics) int {
	t.Helper()
	n, err := testutil.GatherAndCount(m.Registry(), "tripledger_http_requests_total")
	require.NoError(t, err)
	return n
}
