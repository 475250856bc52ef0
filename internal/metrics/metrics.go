// Package metrics holds the Prometheus collectors of the Shakti API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: every recording method is a no-op on a nil receiver.
type Metrics struct {
	gatherer prometheus.Gatherer

	LoginAttempts    *prometheus.CounterVec
	AuthErrors       *prometheus.CounterVec
	Lockouts         *prometheus.CounterVec
	TenantOperations *prometheus.CounterVec
	TenantLookups    *prometheus.CounterVec
	AdminOperations  *prometheus.CounterVec
	Sessions         *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	StoreDuration    *prometheus.HistogramVec
}

// New registers every collector on reg. Use prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shakti_auth_login_total",
			Help: "Login attempts by claimed role and outcome",
		}, []string{"role", "outcome"}),
		AuthErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shakti_auth_errors_total",
			Help: "Authentication failures by type",
		}, []string{"type"}),
		Lockouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shakti_auth_lockouts_total",
			Help: "Accounts locked after repeated failures",
		}, []string{"kind"}),
		TenantOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shakti_tenant_operations_total",
			Help: "Tenant administration operations",
		}, []string{"operation", "outcome"}),
		TenantLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shakti_tenant_lookups_total",
			Help: "Host to tenant resolutions by result (root, found, missing, error)",
		}, []string{"result"}),
		AdminOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shakti_principal_operations_total",
			Help: "Company admin and employee administration operations",
		}, []string{"kind", "operation", "outcome"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shakti_sessions_total",
			Help: "Sessions created and destroyed",
		}, []string{"event"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shakti_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shakti_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shakti_store_operation_duration_seconds",
			Help:    "Duration of data store lookups made during login",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(
		m.LoginAttempts,
		m.AuthErrors,
		m.Lockouts,
		m.TenantOperations,
		m.TenantLookups,
		m.AdminOperations,
		m.Sessions,
		m.HTTPRequests,
		m.RequestDuration,
		m.StoreDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveLogin(role, outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(role, outcome).Inc()
	if outcome != "success" {
		m.AuthErrors.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveLockout(kind string) {
	if m == nil {
		return
	}
	m.Lockouts.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveTenantOp(operation string, err error) {
	if m == nil {
		return
	}
	m.TenantOperations.WithLabelValues(operation, outcome(err)).Inc()
}

func (m *Metrics) ObserveTenantLookup(result string) {
	if m == nil {
		return
	}
	m.TenantLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObservePrincipalOp(kind, operation string, err error) {
	if m == nil {
		return
	}
	m.AdminOperations.WithLabelValues(kind, operation, outcome(err)).Inc()
}

func (m *Metrics) ObserveSession(event string) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(event).Inc()
}

// ObserveStore records how long a store round-trip took since start.
func (m *Metrics) ObserveStore(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
