package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tejasnaveen/Shakti/internal/metrics"
)

// Router wraps the standard library http.ServeMux.
// Each registered pattern doubles as the route label on request metrics.
type Router struct {
	mux     *http.ServeMux
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewRouter(m *metrics.Metrics, logger *zap.Logger) *Router {
	return &Router{
		mux:     http.NewServeMux(),
		metrics: m,
		logger:  logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.HandleHandler(pattern, h)
}

func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, r.instrument(pattern, h))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (r *Router) instrument(route string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("Handler panic",
					zap.String("route", route),
					zap.Any("panic", p),
					zap.Stack("stack"),
				)
				rec.status = http.StatusInternalServerError
				writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
			}
			r.metrics.ObserveHTTP(route, req.Method, rec.status, time.Since(start))
		}()
		h.ServeHTTP(rec, req)
	})
}

// Handlers is everything RegisterRoutes mounts. Nil Metrics skips /metrics.
type Handlers struct {
	Auth      *AuthHandler
	Tenant    *TenantContextHandler
	Tenants   *TenantsHandler
	Admins    *AdminsHandler
	Employees *EmployeesHandler
	Sessions  *SessionMiddleware
	Metrics   *metrics.Metrics
}

func (r *Router) RegisterRoutes(h Handlers) {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
	if h.Metrics != nil {
		r.HandleHandler("/metrics", h.Metrics.Handler())
	}

	// auth
	r.HandleHandler("/auth/api/v1/login", h.Auth)
	r.HandleHandler("/auth/api/v1/logout", h.Auth)
	r.HandleHandler("/auth/api/v1/session", h.Auth)

	// public tenant context for the current host
	r.HandleHandler("/tenant/api/v1/current", h.Tenant)

	// platform operators
	r.HandleHandler("/admin/api/v1/tenants", h.Sessions.Require(h.Tenants, superAdminOnly))
	r.HandleHandler("/admin/api/v1/tenants/", h.Sessions.Require(h.Tenants, superAdminOnly))
	r.HandleHandler("/admin/api/v1/admins/", h.Sessions.Require(h.Admins, superAdminOnly))

	// company admins
	r.HandleHandler("/company/api/v1/employees", h.Sessions.Require(h.Employees, companyStaff))
	r.HandleHandler("/company/api/v1/employees/", h.Sessions.Require(h.Employees, companyStaff))
}
