package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tejasnaveen/Shakti/internal/domain"
	"github.com/tejasnaveen/Shakti/internal/service"
	"github.com/tejasnaveen/Shakti/internal/store"
)

type authenticator interface {
	Login(ctx context.Context, req service.LoginRequest) (*service.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Session(ctx context.Context, token string) (*domain.SessionIdentity, error)
}

type AuthHandler struct {
	auth   authenticator
	logger *zap.Logger
}

func NewAuthHandler(auth authenticator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/api/v1/login":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Login(w, r)
	case "/auth/api/v1/logout":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Logout(w, r)
	case "/auth/api/v1/session":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.Session(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type loginBody struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login resolves the tenant from the request host; the body never names a tenant.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	role, ok := domain.ParseRole(body.Role)
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("please select a valid role"))
		return
	}
	if body.Username == "" || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, Fail("username and password are required"))
		return
	}

	res, err := h.auth.Login(r.Context(), service.LoginRequest{
		Host:       requestHost(r),
		Role:       role,
		Identifier: body.Username,
		Password:   body.Password,
		IPAddress:  clientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		h.logger.Error("Logout failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("Service temporarily unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.Session(r.Context(), bearerToken(r))
	if errors.Is(err, store.ErrSessionNotFound) {
		writeJSON(w, http.StatusUnauthorized, Expired("session expired"))
		return
	}
	if err != nil {
		h.logger.Error("Failed to load session", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("Service temporarily unavailable"))
		return
	}

	// ?dashboard=/companyadmin asks whether this session may open that dashboard.
	dashboard := r.URL.Query().Get("dashboard")
	if dashboard != "" && !domain.CanAccessDashboard(identity.Role, dashboard) {
		h.logger.Warn("Dashboard not permitted",
			zap.String("dashboard", dashboard),
			zap.String("role", string(identity.Role)),
			zap.String("principal_id", identity.PrincipalID),
		)
		writeJSON(w, http.StatusForbidden, Fail("permission denied"))
		return
	}

	body := map[string]any{
		"user":     identity,
		"homePath": domain.DashboardPath(identity.Role),
	}
	if dashboard != "" {
		body["dashboard"] = dashboard
	}
	writeJSON(w, http.StatusOK, Ok(body))
}
