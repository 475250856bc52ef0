package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tejasnaveen/Shakti/internal/domain"
	"github.com/tejasnaveen/Shakti/internal/service"
)

const employeesPrefix = "/company/api/v1/employees/"

// EmployeesHandler serves /company/api/v1/employees. Company admins act on their own
// tenant; platform operators name the tenant with ?tenant_id=.
type EmployeesHandler struct {
	employees *service.EmployeeService
	logger    *zap.Logger
}

func NewEmployeesHandler(employees *service.EmployeeService, logger *zap.Logger) *EmployeesHandler {
	return &EmployeesHandler{employees: employees, logger: logger}
}

func scopedTenant(r *http.Request) (identity *domain.SessionIdentity, tenantID string, ok bool) {
	identity, ok = IdentityFrom(r.Context())
	if !ok {
		return nil, "", false
	}
	if identity.Role == domain.RoleSuperAdmin {
		tenantID = r.URL.Query().Get("tenant_id")
	} else {
		tenantID = identity.TenantID
	}
	return identity, tenantID, tenantID != ""
}

func (h *EmployeesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, tenantID, ok := scopedTenant(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("tenant_id is required"))
		return
	}
	ctx := r.Context()

	if r.URL.Path == "/company/api/v1/employees" {
		switch r.Method {
		case http.MethodGet:
			var role *domain.Role
			if q := r.URL.Query().Get("role"); q != "" && q != "All" {
				parsed, ok := domain.ParseRole(q)
				if !ok {
					writeJSON(w, http.StatusBadRequest, Fail("invalid role filter"))
					return
				}
				role = &parsed
			}
			items, err := h.employees.List(ctx, tenantID, role)
			if err != nil {
				writeError(w, h.logger, r, err)
				return
			}
			writeJSON(w, http.StatusOK, OkPage(items))
		case http.MethodPost:
			var in service.EmployeeInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
				return
			}
			in.CreatedBy = identity.PrincipalID
			e, err := h.employees.Create(ctx, tenantID, in)
			if err != nil {
				writeError(w, h.logger, r, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(e))
		default:
			methodNotAllowed(w)
		}
		return
	}

	id, action, ok := pathID(r.URL.Path, employeesPrefix)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			e, err := h.employees.Get(ctx, tenantID, id)
			if err != nil {
				writeError(w, h.logger, r, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(e))
		case http.MethodPut:
			var up service.EmployeeUpdate
			if err := readBodyJSON(r, maxBodyBytes, &up); err != nil {
				writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
				return
			}
			e, err := h.employees.Update(ctx, tenantID, id, up)
			if err != nil {
				writeError(w, h.logger, r, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(e))
		case http.MethodDelete:
			if err := h.employees.Delete(ctx, tenantID, id); err != nil {
				writeError(w, h.logger, r, err)
				return
			}
			writeJSON(w, http.StatusOK, OkRemoved(id))
		default:
			methodNotAllowed(w)
		}

	case "toggle-status":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		e, err := h.employees.ToggleStatus(ctx, tenantID, id)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(e))

	case "reset-password":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		pw, err := h.employees.ResetPassword(ctx, tenantID, id)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"id": id, "temp_password": pw}))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
