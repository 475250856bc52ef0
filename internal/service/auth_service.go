package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tejasnaveen/Shakti/internal/domain"
	"github.com/tejasnaveen/Shakti/internal/metrics"
	"github.com/tejasnaveen/Shakti/internal/repository"
	"github.com/tejasnaveen/Shakti/internal/store"
)

// LockoutPolicy repeated-failure lockout; zero MaxAttempts disables it.
type LockoutPolicy struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultLockoutPolicy five failures lock the account for fifteen minutes.
var DefaultLockoutPolicy = LockoutPolicy{MaxAttempts: 5, Window: 15 * time.Minute}

func (p LockoutPolicy) enabled() bool { return p.MaxAttempts > 0 && p.Window > 0 }

// LoginRequest is one login attempt. Host is the request host the tenant is resolved from.
type LoginRequest struct {
	Host       string
	Role       domain.Role
	Identifier string // username, or mobile/employee code for employees
	Password   string
	IPAddress  string
	UserAgent  string
}

// Authentication is a verified principal.
type Authentication struct {
	Identity domain.SessionIdentity `json:"user"`
	HomePath string                 `json:"homePath"`
	Tenant   *domain.Tenant         `json:"tenant,omitempty"`
}

// LoginResult is an Authentication with its persisted session token.
type LoginResult struct {
	Authentication
	Token string `json:"token"`
}

// credentialSource is the per-variant lookup behind the shared verify path.
type credentialSource interface {
	repository.LoginStateWriter
	lookup(ctx context.Context, tenantID, identifier string) (domain.Principal, error)
	byID(ctx context.Context, id string) (domain.Principal, error)
}

type operatorSource struct{ repository.OperatorsRepository }

func (s operatorSource) lookup(ctx context.Context, _ string, username string) (domain.Principal, error) {
	o, err := s.FindOperatorByUsername(ctx, username)
	if err != nil || o == nil {
		return nil, err
	}
	return o, nil
}

func (s operatorSource) byID(ctx context.Context, id string) (domain.Principal, error) {
	o, err := s.GetOperator(ctx, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

type companyAdminSource struct{ repository.CompanyAdminsRepository }

func (s companyAdminSource) lookup(ctx context.Context, tenantID, username string) (domain.Principal, error) {
	a, err := s.FindAdminByUsername(ctx, tenantID, username)
	if err != nil || a == nil {
		return nil, err
	}
	return a, nil
}

func (s companyAdminSource) byID(ctx context.Context, id string) (domain.Principal, error) {
	a, err := s.GetAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	return a, nil
}

type employeeSource struct{ repository.EmployeesRepository }

func (s employeeSource) lookup(ctx context.Context, tenantID, identifier string) (domain.Principal, error) {
	e, err := s.FindEmployeeByLogin(ctx, tenantID, identifier)
	if err != nil || e == nil {
		return nil, err
	}
	return e, nil
}

func (s employeeSource) byID(ctx context.Context, id string) (domain.Principal, error) {
	e, err := s.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ErrSessionRevoked a live token whose principal or tenant has since been
// disabled or removed. It matches store.ErrSessionNotFound.
var ErrSessionRevoked = fmt.Errorf("%w: principal or tenant no longer active", store.ErrSessionNotFound)

// AuthService verifies role-scoped credentials and manages sessions.
type AuthService struct {
	tenants  *TenantService
	sources  map[domain.Role]credentialSource
	hasher   PasswordHasher
	sessions *store.SessionStore
	events   EventPublisher
	lockout  LockoutPolicy
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

type AuthOption func(*AuthService)

func WithLockoutPolicy(p LockoutPolicy) AuthOption {
	return func(s *AuthService) { s.lockout = p }
}

func WithEventPublisher(p EventPublisher) AuthOption {
	return func(s *AuthService) { s.events = p }
}

func WithMetrics(m *metrics.Metrics) AuthOption {
	return func(s *AuthService) { s.metrics = m }
}

func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(
	tenants *TenantService,
	repos *repository.Repositories,
	hasher PasswordHasher,
	sessions *store.SessionStore,
	logger *zap.Logger,
	opts ...AuthOption,
) *AuthService {
	employees := employeeSource{repos.Employees}
	s := &AuthService{
		tenants: tenants,
		sources: map[domain.Role]credentialSource{
			domain.RoleSuperAdmin:   operatorSource{repos.Operators},
			domain.RoleCompanyAdmin: companyAdminSource{repos.Admins},
			domain.RoleTeamIncharge: employees,
			domain.RoleTelecaller:   employees,
		},
		hasher:   hasher,
		sessions: sessions,
		events:   NopPublisher{},
		lockout:  DefaultLockoutPolicy,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// failure reasons, used for logs, metrics and audit events.
const (
	reasonMissingCredentials = "missing_credentials"
	reasonUnknownRole        = "unknown_role"
	reasonTenantUnavailable  = "tenant_unavailable"
	reasonLookupError        = "lookup_error"
	reasonUserNotFound       = "user_not_found"
	reasonTenantMismatch     = "tenant_mismatch"
	reasonAccountInactive    = "account_inactive"
	reasonAccountLocked      = "account_locked"
	reasonBadPassword        = "invalid_password"
	reasonRoleMismatch       = "role_mismatch"
)

// Authenticate runs one login attempt to a terminal state. It does not persist a session.
//
// SuperAdmin is checked against platform operators regardless of host. Every other role
// first needs an active tenant resolved from req.Host, then a principal of that tenant.
func (s *AuthService) Authenticate(ctx context.Context, req LoginRequest) (*Authentication, error) {
	identifier := strings.TrimSpace(req.Identifier)
	ev := AuthEvent{
		Type:       "login",
		Role:       req.Role,
		Identifier: identifier,
		Host:       req.Host,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	}

	src, ok := s.sources[req.Role]
	if !ok {
		return nil, s.fail(ctx, ev, reasonUnknownRole, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, req.Role))
	}
	if identifier == "" || req.Password == "" {
		return nil, s.fail(ctx, ev, reasonMissingCredentials, domain.ErrInvalidCredential)
	}

	var tenant *domain.Tenant
	if req.Role.TenantScoped() {
		res, err := s.tenants.ResolveHost(ctx, req.Host)
		if err != nil {
			return nil, s.fail(ctx, ev, reasonLookupError, fmt.Errorf("resolve tenant: %w", err))
		}
		if res.Root || !res.Tenant.Usable() {
			return nil, s.fail(ctx, ev, reasonTenantUnavailable, domain.ErrTenantUnavailable)
		}
		tenant = res.Tenant
		ev.TenantID = tenant.ID
	}

	start := time.Now()
	p, err := src.lookup(ctx, ev.TenantID, identifier)
	s.metrics.ObserveStore("lookup_"+string(req.Role), start)
	if err != nil {
		return nil, s.fail(ctx, ev, reasonLookupError, fmt.Errorf("lookup principal: %w", err))
	}
	if p == nil {
		return nil, s.fail(ctx, ev, reasonUserNotFound, domain.ErrInvalidCredential)
	}
	ev.PrincipalID = p.PrincipalID()
	if tenant != nil && p.TenantRef() != tenant.ID {
		return nil, s.fail(ctx, ev, reasonTenantMismatch, domain.ErrInvalidCredential)
	}
	if !p.Active() {
		return nil, s.fail(ctx, ev, reasonAccountInactive, domain.ErrAccountInactive)
	}

	now := s.now()
	if s.lockout.enabled() && p.LockState().LockedAt(now) {
		return nil, s.fail(ctx, ev, reasonAccountLocked, domain.ErrAccountLocked)
	}

	if !s.hasher.Verify(p.PasswordHash(), req.Password) {
		s.recordFailure(ctx, src, p, now)
		return nil, s.fail(ctx, ev, reasonBadPassword, domain.ErrInvalidCredential)
	}
	if p.StoredRole() != req.Role {
		return nil, s.fail(ctx, ev, reasonRoleMismatch, domain.ErrRoleMismatch)
	}

	if err := src.MarkLogin(ctx, p.PrincipalID(), now); err != nil {
		s.logger.Warn("Failed to update last_login_at",
			zap.String("principal_id", p.PrincipalID()),
			zap.Error(err),
		)
	}

	ev.Outcome = "success"
	s.publish(ctx, ev)
	s.metrics.ObserveLogin(string(req.Role), "success")
	s.logger.Info("User login successful",
		zap.String("principal_id", p.PrincipalID()),
		zap.String("role", string(req.Role)),
		zap.String("tenant_id", ev.TenantID),
		zap.String("ip_address", req.IPAddress),
	)

	return &Authentication{
		Identity: p.Identity(),
		HomePath: domain.DashboardPath(req.Role),
		Tenant:   tenant,
	}, nil
}

// Login authenticates and persists the session identity under a new token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	auth, err := s.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	token, err := s.sessions.Create(ctx, auth.Identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDependencyUnavailable, err)
	}
	s.metrics.ObserveSession("created")
	return &LoginResult{Authentication: *auth, Token: token}, nil
}

// Session returns the identity behind token, or store.ErrSessionNotFound.
//
// The principal and, for tenant roles, its tenant are re-read on every call. A
// session whose tenant or account is no longer active is deleted and reported as
// ErrSessionRevoked.
func (s *AuthService) Session(ctx context.Context, token string) (*domain.SessionIdentity, error) {
	identity, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	reason, err := s.standing(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("%w: revalidate session: %w", domain.ErrDependencyUnavailable, err)
	}
	if reason == "" {
		return identity, nil
	}

	if err := s.sessions.Delete(ctx, token); err != nil {
		s.logger.Warn("Failed to delete revoked session", zap.Error(err))
	}
	s.metrics.ObserveSession("revoked")
	s.logger.Info("Session revoked",
		zap.String("principal_id", identity.PrincipalID),
		zap.String("role", string(identity.Role)),
		zap.String("tenant_id", identity.TenantID),
		zap.String("reason", reason),
	)
	return nil, ErrSessionRevoked
}

// standing returns a non-empty reason when identity may no longer act.
func (s *AuthService) standing(ctx context.Context, identity *domain.SessionIdentity) (string, error) {
	src, ok := s.sources[identity.Role]
	if !ok {
		return reasonUnknownRole, nil
	}

	if identity.Role.TenantScoped() {
		t, err := s.tenants.GetTenant(ctx, identity.TenantID)
		if isNotFound(err) {
			return reasonTenantUnavailable, nil
		}
		if err != nil {
			return "", err
		}
		if !t.Usable() {
			return reasonTenantUnavailable, nil
		}
	}

	p, err := src.byID(ctx, identity.PrincipalID)
	if isNotFound(err) {
		return reasonUserNotFound, nil
	}
	if err != nil {
		return "", err
	}
	switch {
	case p.TenantRef() != identity.TenantID:
		return reasonTenantMismatch, nil
	case p.StoredRole() != identity.Role:
		return reasonRoleMismatch, nil
	case !p.Active():
		return reasonAccountInactive, nil
	}
	return "", nil
}

// Logout destroys the session; unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	identity, err := s.sessions.Get(ctx, token)
	if err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		s.logger.Warn("Failed to read session on logout", zap.Error(err))
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return err
	}
	s.metrics.ObserveSession("destroyed")

	if identity != nil {
		s.publish(ctx, AuthEvent{
			Type:        "logout",
			Outcome:     "success",
			Role:        identity.Role,
			TenantID:    identity.TenantID,
			PrincipalID: identity.PrincipalID,
		})
	}
	return nil
}

// recordFailure counts the failure in the store, which opens the lock window at
// the limit. A store error here is logged; the caller still reports the credential failure.
func (s *AuthService) recordFailure(ctx context.Context, src credentialSource, p domain.Principal, now time.Time) {
	if !s.lockout.enabled() {
		return
	}

	state, err := src.RegisterFailure(ctx, p.PrincipalID(), now, s.lockout.MaxAttempts, s.lockout.Window)
	if err != nil {
		s.logger.Error("Failed to persist login failure counter",
			zap.String("principal_id", p.PrincipalID()),
			zap.Error(err),
		)
		return
	}

	if state.FailedAttempts == s.lockout.MaxAttempts && state.LockedAt(now) {
		s.metrics.ObserveLockout(string(p.Kind()))
		s.logger.Warn("Account locked after repeated failures",
			zap.String("principal_id", p.PrincipalID()),
			zap.String("kind", string(p.Kind())),
			zap.Int("failed_attempts", state.FailedAttempts),
			zap.Time("locked_until", *state.LockedUntil),
		)
	}
}

func (s *AuthService) fail(ctx context.Context, ev AuthEvent, reason string, err error) error {
	ev.Outcome = reason
	s.publish(ctx, ev)
	s.metrics.ObserveLogin(string(ev.Role), reason)

	fields := []zap.Field{
		zap.String("role", string(ev.Role)),
		zap.String("tenant_id", ev.TenantID),
		zap.String("host", ev.Host),
		zap.String("ip_address", ev.IPAddress),
		zap.String("user_agent", ev.UserAgent),
		zap.String("reason", reason),
	}
	if reason == reasonLookupError {
		s.logger.Error("User login failed: data store error", append(fields, zap.Error(err))...)
	} else {
		s.logger.Warn("User login failed", fields...)
	}
	return err
}

func (s *AuthService) publish(ctx context.Context, ev AuthEvent) {
	ev.At = s.now().UTC()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("Failed to publish auth event",
			zap.String("type", ev.Type),
			zap.String("outcome", ev.Outcome),
			zap.Error(err),
		)
	}
}
