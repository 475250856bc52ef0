package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tejasnaveen/Shakti/internal/domain"
	"github.com/tejasnaveen/Shakti/internal/metrics"
	"github.com/tejasnaveen/Shakti/internal/repository"
)

// MinPasswordLength applies to passwords set through the admin and employee services.
const MinPasswordLength = 6

// AdminService manages company admins on behalf of platform operators.
type AdminService struct {
	tenants repository.TenantsRepository
	admins  repository.CompanyAdminsRepository
	hasher  PasswordHasher
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewAdminService(repos *repository.Repositories, hasher PasswordHasher, m *metrics.Metrics, logger *zap.Logger) *AdminService {
	return &AdminService{
		tenants: repos.Tenants,
		admins:  repos.Admins,
		hasher:  hasher,
		metrics: m,
		logger:  logger,
	}
}

type AdminInput struct {
	Name       string `json:"name"`
	EmployeeID string `json:"employee_id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Status     string `json:"status"`
	CreatedBy  string `json:"created_by"`
}

// AdminUpdate partial update; a non-nil Password is rehashed.
type AdminUpdate struct {
	domain.AdminPatch
	Password *string `json:"password,omitempty"`
}

// ListByTenant newest first. Unknown tenants are domain.ErrNotFound.
func (s *AdminService) ListByTenant(ctx context.Context, tenantID string) ([]*domain.CompanyAdmin, error) {
	if _, err := s.tenants.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.admins.ListAdmins(ctx, tenantID)
}

func (s *AdminService) Get(ctx context.Context, id string) (*domain.CompanyAdmin, error) {
	return s.admins.GetAdmin(ctx, id)
}

func (s *AdminService) Create(ctx context.Context, tenantID string, in AdminInput) (a *domain.CompanyAdmin, err error) {
	defer func() { s.metrics.ObservePrincipalOp(string(domain.KindCompanyAdmin), "create", err) }()

	admin := &domain.CompanyAdmin{
		TenantID:   tenantID,
		Name:       strings.TrimSpace(in.Name),
		EmployeeID: strings.TrimSpace(in.EmployeeID),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Username:   strings.TrimSpace(in.Username),
		Status:     in.Status,
		CreatedBy:  in.CreatedBy,
	}
	if admin.Username == "" {
		admin.Username = admin.EmployeeID
	}
	if err := requireFields(map[string]string{
		"name":        admin.Name,
		"employee_id": admin.EmployeeID,
		"email":       admin.Email,
	}); err != nil {
		return nil, err
	}
	if err := validateEmail(admin.Email); err != nil {
		return nil, err
	}
	if admin.Status == "" {
		admin.Status = domain.StatusActive
	}
	if err := validateStatus(admin.Status); err != nil {
		return nil, err
	}
	if admin.Hash, err = s.hashPassword(in.Password); err != nil {
		return nil, err
	}

	created, err := s.admins.CreateAdmin(ctx, admin)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Company admin created",
		zap.String("admin_id", created.ID),
		zap.String("tenant_id", tenantID),
		zap.String("username", created.Username),
	)
	return created, nil
}

func (s *AdminService) Update(ctx context.Context, id string, up AdminUpdate) (a *domain.CompanyAdmin, err error) {
	defer func() { s.metrics.ObservePrincipalOp(string(domain.KindCompanyAdmin), "update", err) }()

	patch := up.AdminPatch
	patch.Hash = nil
	for field, v := range map[string]**string{
		"name":        &patch.Name,
		"employee_id": &patch.EmployeeID,
		"username":    &patch.Username,
	} {
		if err := trimRequired(field, v); err != nil {
			return nil, err
		}
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		patch.Email = &email
	}
	if patch.Status != nil {
		if err := validateStatus(*patch.Status); err != nil {
			return nil, err
		}
	}
	if up.Password != nil {
		hash, err := s.hashPassword(*up.Password)
		if err != nil {
			return nil, err
		}
		patch.Hash = &hash
	}
	return s.admins.UpdateAdmin(ctx, id, patch)
}

func (s *AdminService) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.ObservePrincipalOp(string(domain.KindCompanyAdmin), "delete", err) }()
	if err := s.admins.DeleteAdmin(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Company admin deleted", zap.String("admin_id", id))
	return nil
}

// ResetPassword stores a generated password and returns it once in clear text.
// Existing sessions of the admin are left alone.
func (s *AdminService) ResetPassword(ctx context.Context, id string) (pw string, err error) {
	defer func() { s.metrics.ObservePrincipalOp(string(domain.KindCompanyAdmin), "reset_password", err) }()

	pw, err = generateTempPassword()
	if err != nil {
		return "", err
	}
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return "", err
	}
	if _, err := s.admins.UpdateAdmin(ctx, id, domain.AdminPatch{Hash: &hash}); err != nil {
		return "", err
	}
	s.logger.Info("Company admin password reset", zap.String("admin_id", id))
	return pw, nil
}

// ToggleStatus flips active and inactive.
func (s *AdminService) ToggleStatus(ctx context.Context, id string) (a *domain.CompanyAdmin, err error) {
	defer func() { s.metrics.ObservePrincipalOp(string(domain.KindCompanyAdmin), "toggle_status", err) }()

	current, err := s.admins.GetAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	next := flipStatus(current.Status)
	return s.admins.UpdateAdmin(ctx, id, domain.AdminPatch{Status: &next})
}

func (s *AdminService) hashPassword(pw string) (string, error) {
	return hashNewPassword(s.hasher, pw)
}

func hashNewPassword(h PasswordHasher, pw string) (string, error) {
	if len(pw) < MinPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, MinPasswordLength)
	}
	return h.Hash(pw)
}

func flipStatus(status string) string {
	if status == domain.StatusActive {
		return domain.StatusInactive
	}
	return domain.StatusActive
}

func requireFields(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s required", domain.ErrInvalidInput, strings.Join(missing, ", "))
}

// trimRequired trims a supplied patch value in place; an empty result is invalid.
func trimRequired(field string, v **string) error {
	if *v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(**v)
	if trimmed == "" {
		return fmt.Errorf("%w: %s must not be empty", domain.ErrInvalidInput, field)
	}
	*v = &trimmed
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return fmt.Errorf("%w: %q is not a valid email", domain.ErrInvalidInput, email)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
