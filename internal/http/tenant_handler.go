package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tejasnaveen/Shakti/internal/service"
)

type hostResolver interface {
	ResolveHost(ctx context.Context, host string) (*service.HostResolution, error)
}

// TenantContextHandler tells the login page which company, if any, the host belongs to.
type TenantContextHandler struct {
	tenants hostResolver
	logger  *zap.Logger
}

func NewTenantContextHandler(tenants hostResolver, logger *zap.Logger) *TenantContextHandler {
	return &TenantContextHandler{tenants: tenants, logger: logger}
}

type tenantContext struct {
	Host      string          `json:"host"`
	Root      bool            `json:"root"`
	Subdomain string          `json:"subdomain,omitempty"`
	Found     bool            `json:"found"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Status    string          `json:"status,omitempty"`
	Settings  json.RawMessage `json:"settings,omitempty"`
}

func (h *TenantContextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	res, err := h.tenants.ResolveHost(r.Context(), requestHost(r))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	out := tenantContext{Host: res.Host, Root: res.Root, Subdomain: res.Label}
	if t := res.Tenant; t != nil {
		out.Found = true
		out.ID = t.ID
		out.Name = t.Name
		out.Status = t.Status
		out.Settings = t.Settings
	}
	writeJSON(w, http.StatusOK, Ok(out))
}
