package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tejasnaveen/Shakti/internal/domain"
	"github.com/tejasnaveen/Shakti/internal/metrics"
	"github.com/tejasnaveen/Shakti/internal/repository"
)

// EmployeeService manages team incharges and telecallers inside one tenant.
// Every call names the tenant; rows of other tenants read as domain.ErrNotFound.
type EmployeeService struct {
	tenants   repository.TenantsRepository
	employees repository.EmployeesRepository
	hasher    PasswordHasher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewEmployeeService(repos *repository.Repositories, hasher PasswordHasher, m *metrics.Metrics, logger *zap.Logger) *EmployeeService {
	return &EmployeeService{
		tenants:   repos.Tenants,
		employees: repos.Employees,
		hasher:    hasher,
		metrics:   m,
		logger:    logger,
	}
}

type EmployeeInput struct {
	Name           string      `json:"name"`
	Mobile         string      `json:"mobile"`
	EmpCode        string      `json:"emp_id"`
	Password       string      `json:"password"`
	Role           domain.Role `json:"role"`
	TeamInchargeID string      `json:"team_incharge_id"`
	CreatedBy      string      `json:"created_by"`
}

type EmployeeUpdate struct {
	domain.EmployeePatch
	Password *string `json:"password,omitempty"`
}

// List newest first; a nil role lists both employee roles.
func (s *EmployeeService) List(ctx context.Context, tenantID string, role *domain.Role) ([]*domain.Employee, error) {
	if role != nil && !role.EmployeeRole() {
		return nil, fmt.Errorf("%w: %q is not an employee role", domain.ErrInvalidInput, *role)
	}
	if _, err := s.tenants.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.employees.ListEmployees(ctx, tenantID, role)
}

func (s *EmployeeService) Get(ctx context.Context, tenantID, id string) (*domain.Employee, error) {
	e, err := s.employees.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.TenantID != tenantID {
		return nil, fmt.Errorf("employee %s: %w", id, domain.ErrNotFound)
	}
	return e, nil
}

func (s *EmployeeService) Create(ctx context.Context, tenantID string, in EmployeeInput) (e *domain.Employee, err error) {
	defer func() { s.metrics.ObservePrincipalOp(string(domain.KindEmployee), "create", err) }()

	emp := &domain.Employee{
		TenantID:       tenantID,
		Name:           strings.TrimSpace(in.Name),
		Mobile:         strings.TrimSpace(in.Mobile),
		EmpCode:        strings.TrimSpace(in.EmpCode),
		Role:           in.Role,
		Status:         domain.StatusActive,
		TeamInchargeID: strings.TrimSpace(in.TeamInchargeID),
		CreatedBy:      in.CreatedBy,
	}
	if err := requireFields(map[string]string{
		"name":   emp.Name,
		"mobile": emp.Mobile,
		"emp_id": emp.EmpCode,
	}); err != nil {
		return nil, err
	}
	if !emp.Role.EmployeeRole() {
		return nil, fmt.Errorf("%w: role must be %s or %s", domain.ErrInvalidInput, domain.RoleTeamIncharge, domain.RoleTelecaller)
	}
	if err := s.checkTeamIncharge(ctx, tenantID, "", emp.TeamInchargeID); err != nil {
		return nil, err
	}
	if emp.Hash, err = hashNewPassword(s.hasher, in.Password); err != nil {
		return nil, err
	}

	created, err := s.employees.CreateEmployee(ctx, emp)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Employee created",
		zap.String("employee_id", created.ID),
		zap.String("tenant_id", tenantID),
		zap.String("role", string(created.Role)),
	)
	return created, nil
}

func (s *EmployeeService) Update(ctx context.Context, tenantID, id string, up EmployeeUpdate) (e *domain.Employee, err error) {
	defer func() { s.metrics.ObservePrincipalOp(string(domain.KindEmployee), "update", err) }()

	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return nil, err
	}

	patch := up.EmployeePatch
	patch.Hash = nil
	for field, v := range map[string]**string{
		"name":   &patch.Name,
		"mobile": &patch.Mobile,
		"emp_id": &patch.EmpCode,
	} {
		if err := trimRequired(field, v); err != nil {
			return nil, err
		}
	}
	if patch.Role != nil && !patch.Role.EmployeeRole() {
		return nil, fmt.Errorf("%w: role must be %s or %s", domain.ErrInvalidInput, domain.RoleTeamIncharge, domain.RoleTelecaller)
	}
	if patch.Status != nil {
		if err := validateStatus(*patch.Status); err != nil {
			return nil, err
		}
	}
	if patch.TeamInchargeID != nil {
		if err := s.checkTeamIncharge(ctx, tenantID, id, *patch.TeamInchargeID); err != nil {
			return nil, err
		}
	}
	if up.Password != nil {
		hash, err := hashNewPassword(s.hasher, *up.Password)
		if err != nil {
			return nil, err
		}
		patch.Hash = &hash
	}
	return s.employees.UpdateEmployee(ctx, id, patch)
}

func (s *EmployeeService) Delete(ctx context.Context, tenantID, id string) (err error) {
	defer func() { s.metrics.ObservePrincipalOp(string(domain.KindEmployee), "delete", err) }()

	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.employees.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Employee deleted", zap.String("employee_id", id), zap.String("tenant_id", tenantID))
	return nil
}

// ResetPassword returns the generated password once in clear text.
func (s *EmployeeService) ResetPassword(ctx context.Context, tenantID, id string) (pw string, err error) {
	defer func() { s.metrics.ObservePrincipalOp(string(domain.KindEmployee), "reset_password", err) }()

	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return "", err
	}
	pw, err = generateTempPassword()
	if err != nil {
		return "", err
	}
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return "", err
	}
	if _, err := s.employees.UpdateEmployee(ctx, id, domain.EmployeePatch{Hash: &hash}); err != nil {
		return "", err
	}
	s.logger.Info("Employee password reset", zap.String("employee_id", id), zap.String("tenant_id", tenantID))
	return pw, nil
}

func (s *EmployeeService) ToggleStatus(ctx context.Context, tenantID, id string) (e *domain.Employee, err error) {
	defer func() { s.metrics.ObservePrincipalOp(string(domain.KindEmployee), "toggle_status", err) }()

	current, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	next := flipStatus(current.Status)
	return s.employees.UpdateEmployee(ctx, id, domain.EmployeePatch{Status: &next})
}

// checkTeamIncharge requires inchargeID, when set, to be a team incharge of the same tenant.
func (s *EmployeeService) checkTeamIncharge(ctx context.Context, tenantID, selfID, inchargeID string) error {
	if inchargeID == "" {
		return nil
	}
	if inchargeID == selfID {
		return fmt.Errorf("%w: an employee cannot report to itself", domain.ErrInvalidInput)
	}
	lead, err := s.Get(ctx, tenantID, inchargeID)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: team incharge %s", domain.ErrReference, inchargeID)
		}
		return err
	}
	if lead.Role != domain.RoleTeamIncharge {
		return fmt.Errorf("%w: %s is not a team incharge", domain.ErrReference, inchargeID)
	}
	return nil
}
