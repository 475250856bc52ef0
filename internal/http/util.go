package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tejasnaveen/Shakti/internal/domain"
)

const maxBodyBytes = 1 << 20

// Generic login failure text. Unknown user, wrong password and role mismatch all read the same.
const msgInvalidLogin = "Invalid username or password"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// writeError maps the domain error taxonomy onto status codes and user-facing text.
// Store failures are logged with their cause; the client only sees a generic message.
func writeError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredential),
		errors.Is(err, domain.ErrRoleMismatch):
		writeJSON(w, http.StatusUnauthorized, Fail(msgInvalidLogin))
	case errors.Is(err, domain.ErrAccountInactive):
		writeJSON(w, http.StatusForbidden, Fail("Your account is inactive. Please contact your administrator."))
	case errors.Is(err, domain.ErrAccountLocked):
		writeJSON(w, http.StatusLocked, Fail("Too many failed login attempts. Please try again later."))
	case errors.Is(err, domain.ErrTenantUnavailable):
		writeJSON(w, http.StatusNotFound, Fail("Company not found or inactive"))
	case errors.Is(err, domain.ErrDependencyUnavailable):
		logger.Error("Data store unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("Service temporarily unavailable"))
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, Fail(err.Error()))
	case errors.Is(err, domain.ErrReference), errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	default:
		logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// requestHost prefers X-Forwarded-Host when the service sits behind a proxy.
func requestHost(r *http.Request) string {
	if fh := r.Header.Get("X-Forwarded-Host"); fh != "" {
		if i := strings.IndexByte(fh, ','); i >= 0 {
			fh = fh[:i]
		}
		return strings.TrimSpace(fh)
	}
	return r.Host
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// pathID returns the id segment after prefix and the optional action after it:
// "/x/{id}" and "/x/{id}/{action}".
func pathID(path, prefix string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path || rest == "" {
		return "", "", false
	}
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	switch len(parts) {
	case 1:
		return parts[0], "", parts[0] != ""
	case 2:
		return parts[0], parts[1], parts[0] != "" && parts[1] != ""
	default:
		return "", "", false
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}
