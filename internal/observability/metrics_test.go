package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordBillingOperation("create", ResultSuccess)
		m.RecordSweepOutcome("created", 3)
		m.RecordSweepDuration(time.Second)
		m.RecordCacheLookup(true)
		m.SetWebSocketClients(2)
		m.RecordWebSocketDrop("slow")
	})
}

func TestMetrics_RecordBillingOperation(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordBillingOperation("payment", ResultSuccess)
	m.RecordBillingOperation("payment", ResultSuccess)
	m.RecordBillingOperation("payment", ResultRejected)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BillingOperationsTotal.WithLabelValues("payment", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BillingOperationsTotal.WithLabelValues("payment", ResultRejected)))
}

func TestMetrics_RecordSweepOutcome_SkipsZero(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordSweepOutcome("failed", 0)
	m.RecordSweepOutcome("finalized", 4)

	assert.Equal(t, 1, testutil.CollectAndCount(m.SweepGymsTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.SweepGymsTotal.WithLabelValues("finalized")))
}

func TestMetrics_RecordCacheLookup(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DashboardCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DashboardCacheTotal.WithLabelValues("miss")))
}

func TestMetrics_WebSocket(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetWebSocketClients(3)
	m.SetWebSocketClients(2)
	m.RecordWebSocketDrop("slow")
	m.RecordWebSocketDrop("slow")
	m.RecordWebSocketDrop("limit")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.WebSocketClients))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WebSocketDroppedClients.WithLabelValues("slow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebSocketDroppedClients.WithLabelValues("limit")))
}

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	e := echo.New()
	e.Use(HTTPMetricsMiddleware(m))
	e.GET("/api/v1/billing/month/:year/:month", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", MetricsHandler(registry))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/month/2026/9", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/billing/month/:year/:month", "200")))

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "gymcrm_http_requests_total"))
}

func TestNewRegistry_IncludesRuntimeCollectors(t *testing.T) {
	registry := NewRegistry()

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}
