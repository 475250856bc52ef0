package httpapi

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/tejasnaveen/Shakti/internal/domain"
	"github.com/tejasnaveen/Shakti/internal/store"
)

var (
	superAdminOnly = []domain.Role{domain.RoleSuperAdmin}
	companyStaff   = []domain.Role{domain.RoleSuperAdmin, domain.RoleCompanyAdmin}
)

type identityKey struct{}

// IdentityFrom returns the session identity attached by SessionMiddleware.
func IdentityFrom(ctx context.Context) (*domain.SessionIdentity, bool) {
	id, ok := ctx.Value(identityKey{}).(*domain.SessionIdentity)
	return id, ok
}

type sessionReader interface {
	Session(ctx context.Context, token string) (*domain.SessionIdentity, error)
}

// SessionMiddleware resolves the bearer token into a session identity.
type SessionMiddleware struct {
	sessions sessionReader
	logger   *zap.Logger
}

func NewSessionMiddleware(sessions sessionReader, logger *zap.Logger) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, logger: logger}
}

// Require admits requests whose session role is one of roles.
func (m *SessionMiddleware) Require(next http.Handler, roles []domain.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, Expired("login required"))
			return
		}
		identity, err := m.sessions.Session(r.Context(), token)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				writeJSON(w, http.StatusUnauthorized, Expired("session expired"))
				return
			}
			m.logger.Error("Failed to load session", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, Fail("Service temporarily unavailable"))
			return
		}
		if !slices.Contains(roles, identity.Role) {
			m.logger.Warn("Role not permitted",
				zap.String("path", r.URL.Path),
				zap.String("role", string(identity.Role)),
				zap.String("principal_id", identity.PrincipalID),
			)
			writeJSON(w, http.StatusForbidden, Fail("permission denied"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, identity)))
	})
}
