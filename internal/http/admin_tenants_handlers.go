package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tejasnaveen/Shakti/internal/domain"
	"github.com/tejasnaveen/Shakti/internal/service"
	"github.com/tejasnaveen/Shakti/internal/tenancy"
)

const tenantsPrefix = "/admin/api/v1/tenants/"

// TenantsHandler serves /admin/api/v1/tenants and the per-tenant admin collection.
type TenantsHandler struct {
	tenants *service.TenantService
	admins  *service.AdminService
	domains tenancy.DomainConfig
	bases   *tenancy.BaseDomainCache
	logger  *zap.Logger
}

func NewTenantsHandler(tenants *service.TenantService, admins *service.AdminService, domains tenancy.DomainConfig, logger *zap.Logger) *TenantsHandler {
	return &TenantsHandler{
		tenants: tenants,
		admins:  admins,
		domains: domains,
		bases:   tenancy.NewBaseDomainCache(domains.BaseDomain),
		logger:  logger,
	}
}

type tenantView struct {
	*domain.Tenant
	LoginURL string `json:"login_url"`
}

// view adds the tenant login URL. Without a configured base domain the
// operator's own host decides it.
func (h *TenantsHandler) view(r *http.Request, t *domain.Tenant) tenantView {
	dc := h.domains
	dc.BaseDomain = h.bases.Get(requestHost(r))
	return tenantView{Tenant: t, LoginURL: dc.LoginURL(t.Subdomain)}
}

// ResetBaseDomain forgets the host learned for login URLs; the next request sets it again.
func (h *TenantsHandler) ResetBaseDomain() {
	h.bases.Invalidate()
}

func (h *TenantsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/admin/api/v1/tenants" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	id, action, ok := pathID(r.URL.Path, tenantsPrefix)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			methodNotAllowed(w)
		}
	case "status":
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		h.setStatus(w, r, id)
	case "admins":
		switch r.Method {
		case http.MethodGet:
			h.listAdmins(w, r, id)
		case http.MethodPost:
			h.createAdmin(w, r, id)
		default:
			methodNotAllowed(w)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *TenantsHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.tenants.ListAllTenants(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	out := make([]tenantView, 0, len(items))
	for _, t := range items {
		out = append(out, h.view(r, t))
	}
	writeJSON(w, http.StatusOK, OkPage(out))
}

func (h *TenantsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in service.TenantInput
	if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if identity, ok := IdentityFrom(r.Context()); ok {
		in.CreatedBy = identity.PrincipalID
	}
	t, err := h.tenants.CreateTenant(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.view(r, t)))
}

func (h *TenantsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	t, err := h.tenants.GetTenant(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.view(r, t)))
}

func (h *TenantsHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var patch domain.TenantPatch
	if err := readBodyJSON(r, maxBodyBytes, &patch); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if patch.Empty() {
		writeJSON(w, http.StatusBadRequest, Fail("no fields to update"))
		return
	}
	t, err := h.tenants.UpdateTenant(r.Context(), id, patch)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.view(r, t)))
}

func (h *TenantsHandler) setStatus(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	t, err := h.tenants.SetTenantStatus(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.view(r, t)))
}

func (h *TenantsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.tenants.DeleteTenant(r.Context(), id); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OkRemoved(id))
}

func (h *TenantsHandler) listAdmins(w http.ResponseWriter, r *http.Request, tenantID string) {
	items, err := h.admins.ListByTenant(r.Context(), tenantID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OkPage(items))
}

func (h *TenantsHandler) createAdmin(w http.ResponseWriter, r *http.Request, tenantID string) {
	var in service.AdminInput
	if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if identity, ok := IdentityFrom(r.Context()); ok {
		in.CreatedBy = identity.PrincipalID
	}
	a, err := h.admins.Create(r.Context(), tenantID, in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(a))
}
