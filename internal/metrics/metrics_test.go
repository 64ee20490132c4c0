package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveHTTP(http.MethodGet, "/api/trips/{id}", 200, 15*time.Millisecond)
	m.ObserveHTTP(http.MethodGet, "/api/trips/{id}", 200, 5*time.Millisecond)
	m.AddReconcileOps(OpCreate, 3)
	m.AddReconcileOps(OpDelete, 0)
	m.SummaryCache(CacheHit)
	m.EventPublished(errors.New("down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/trips/{id}", "200")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.reconcileOps.WithLabelValues(OpCreate)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.reconcileOps.WithLabelValues(OpDelete)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.summaryCache.WithLabelValues(CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsSent.WithLabelValues("error")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/", 200, time.Second)
	m.AddReconcileOps(OpUpdate, 1)
	m.SummaryCache(CacheMiss)
	m.EventPublished(nil)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.AddReconcileOps(OpUpdate, 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tripledger_reconcile_operations_total{op="update"} 2`)
}
