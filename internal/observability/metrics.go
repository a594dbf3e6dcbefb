package observability

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation result labels
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultRejected = "rejected"
)

// Metrics holds all Prometheus metrics.
// All recording methods are safe to call on a nil *Metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Billing metrics
	BillingOperationsTotal *prometheus.CounterVec
	SweepGymsTotal         *prometheus.CounterVec
	SweepDuration          prometheus.Histogram
	SweepLastRunTimestamp  prometheus.Gauge

	// Cache metrics
	DashboardCacheTotal *prometheus.CounterVec

	// WebSocket metrics
	WebSocketClients        prometheus.Gauge
	WebSocketDroppedClients *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymcrm_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gymcrm_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		BillingOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymcrm_billing_operations_total",
				Help: "Billing record operations by outcome",
			},
			[]string{"operation", "result"},
		),
		SweepGymsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymcrm_billing_sweep_gyms_total",
				Help: "Gyms processed by billing sweeps by outcome",
			},
			[]string{"outcome"},
		),
		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gymcrm_billing_sweep_duration_seconds",
				Help:    "Duration of billing sweeps in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
		),
		SweepLastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gymcrm_billing_sweep_last_run_timestamp_seconds",
				Help: "Unix time of the last completed billing sweep",
			},
		),
		DashboardCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymcrm_dashboard_cache_lookups_total",
				Help: "Dashboard cache lookups by result",
			},
			[]string{"result"},
		),
		WebSocketClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gymcrm_websocket_clients",
				Help: "Connected WebSocket clients across all gyms",
			},
		),
		WebSocketDroppedClients: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymcrm_websocket_dropped_clients_total",
				Help: "WebSocket clients disconnected by the server by reason",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BillingOperationsTotal,
		m.SweepGymsTotal,
		m.SweepDuration,
		m.SweepLastRunTimestamp,
		m.DashboardCacheTotal,
		m.WebSocketClients,
		m.WebSocketDroppedClients,
	)

	return m
}

// NewRegistry returns a registry with the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// RecordBillingOperation counts one billing operation
func (m *Metrics) RecordBillingOperation(operation, result string) {
	if m == nil {
		return
	}
	m.BillingOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordSweepOutcome adds n gyms to a sweep outcome
func (m *Metrics) RecordSweepOutcome(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.SweepGymsTotal.WithLabelValues(outcome).Add(float64(n))
}

// RecordSweepDuration observes a completed sweep
func (m *Metrics) RecordSweepDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(d.Seconds())
	m.SweepLastRunTimestamp.SetToCurrentTime()
}

// RecordCacheLookup counts a dashboard cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.DashboardCacheTotal.WithLabelValues(result).Inc()
}

// SetWebSocketClients reports the number of connected WebSocket clients
func (m *Metrics) SetWebSocketClients(n int) {
	if m == nil {
		return
	}
	m.WebSocketClients.Set(float64(n))
}

// RecordWebSocketDrop counts a client the server disconnected
func (m *Metrics) RecordWebSocketDrop(reason string) {
	if m == nil {
		return
	}
	m.WebSocketDroppedClients.WithLabelValues(reason).Inc()
}

// HTTPMetricsMiddleware records request counts and latency.
// The route template is used as the path label to keep cardinality bounded.
func HTTPMetricsMiddleware(m *Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

			return nil
		}
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
