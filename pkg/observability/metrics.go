package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AuthzChecksTotal   *prometheus.CounterVec
	AuthzCheckDuration *prometheus.HistogramVec
	AuthzTimeoutsTotal prometheus.Counter

	// Store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	TreesTotal  prometheus.Gauge
	WishesTotal prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wishtree_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wishtree_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthzChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wishtree_authz_checks_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"check", "decision"},
		),
		AuthzCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wishtree_authz_check_duration_seconds",
				Help:    "Authorization decision latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"check"},
		),
		AuthzTimeoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wishtree_authz_timeouts_total",
				Help: "Authorization checks denied because a store read timed out",
			},
		),
		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wishtree_store_operations_total",
				Help: "Total number of record store operations",
			},
			[]string{"operation", "status"},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wishtree_store_operation_duration_seconds",
				Help:    "Record store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wishtree_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wishtree_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		TreesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wishtree_trees_total",
				Help: "Total number of trees",
			},
		),
		WishesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wishtree_wishes_total",
				Help: "Total number of wishes",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzChecksTotal,
		m.AuthzCheckDuration,
		m.AuthzTimeoutsTotal,
		m.StoreOperationsTotal,
		m.StoreOperationDuration,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.TreesTotal,
		m.WishesTotal,
	)

	return m
}

// ObserveAuthzCheck records one authorization decision
func (m *Metrics) ObserveAuthzCheck(check string, allowed bool, duration time.Duration) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.AuthzChecksTotal.WithLabelValues(check, decision).Inc()
	m.AuthzCheckDuration.WithLabelValues(check).Observe(duration.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware instruments HTTP handlers with request metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
