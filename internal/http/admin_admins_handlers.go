package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tejasnaveen/Shakti/internal/service"
)

const adminsPrefix = "/admin/api/v1/admins/"

// AdminsHandler serves /admin/api/v1/admins/{id}[/{action}].
type AdminsHandler struct {
	admins *service.AdminService
	logger *zap.Logger
}

func NewAdminsHandler(admins *service.AdminService, logger *zap.Logger) *AdminsHandler {
	return &AdminsHandler{admins: admins, logger: logger}
}

func (h *AdminsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, action, ok := pathID(r.URL.Path, adminsPrefix)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	ctx := r.Context()

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			a, err := h.admins.Get(ctx, id)
			if err != nil {
				writeError(w, h.logger, r, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(a))
		case http.MethodPut:
			var up service.AdminUpdate
			if err := readBodyJSON(r, maxBodyBytes, &up); err != nil {
				writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
				return
			}
			a, err := h.admins.Update(ctx, id, up)
			if err != nil {
				writeError(w, h.logger, r, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(a))
		case http.MethodDelete:
			if err := h.admins.Delete(ctx, id); err != nil {
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
		a, err := h.admins.ToggleStatus(ctx, id)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(a))

	case "reset-password":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		pw, err := h.admins.ResetPassword(ctx, id)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"id": id, "temp_password": pw}))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
