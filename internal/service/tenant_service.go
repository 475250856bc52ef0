package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tejasnaveen/Shakti/internal/domain"
	"github.com/tejasnaveen/Shakti/internal/metrics"
	"github.com/tejasnaveen/Shakti/internal/repository"
	"github.com/tejasnaveen/Shakti/internal/tenancy"
)

// TenantService resolves hosts to tenants and administers the tenants table.
type TenantService struct {
	tenants   repository.TenantsRepository
	operators repository.OperatorsRepository
	admins    repository.CompanyAdminsRepository
	employees repository.EmployeesRepository
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewTenantService(repos *repository.Repositories, m *metrics.Metrics, logger *zap.Logger) *TenantService {
	return &TenantService{
		tenants:   repos.Tenants,
		operators: repos.Operators,
		admins:    repos.Admins,
		employees: repos.Employees,
		metrics:   m,
		logger:    logger,
	}
}

// HostResolution is the outcome of classifying a request host.
type HostResolution struct {
	Host   string         `json:"host"`
	Label  string         `json:"label,omitempty"`
	Root   bool           `json:"root"`
	Tenant *domain.Tenant `json:"tenant,omitempty"`
}

// TenantInput is the create payload. Zero Plan/MaxUsers/MaxConnections/Status take defaults.
type TenantInput struct {
	Name           string          `json:"name"`
	Subdomain      string          `json:"subdomain"`
	Status         string          `json:"status"`
	Plan           string          `json:"plan_type"`
	MaxUsers       int             `json:"max_users"`
	MaxConnections int             `json:"max_connections"`
	ProprietorName string          `json:"proprietor_name"`
	PhoneNumber    string          `json:"phone_number"`
	Address        string          `json:"address"`
	GSTNumber      string          `json:"gst_number"`
	Settings       json.RawMessage `json:"settings"`
	CreatedBy      string          `json:"created_by"`
}

// FetchTenantByLabel trims and lower-cases label before the lookup.
// An unknown label is (nil, nil).
func (s *TenantService) FetchTenantByLabel(ctx context.Context, label string) (*domain.Tenant, error) {
	label = tenancy.NormalizeLabel(label)
	if label == "" {
		return nil, nil
	}
	t, err := s.tenants.FindTenantBySubdomain(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("fetch tenant %q: %w", label, err)
	}
	return t, nil
}

// ResolveHost classifies host and, for tenant hosts, fetches the tenant (which may be absent).
func (s *TenantService) ResolveHost(ctx context.Context, host string) (*HostResolution, error) {
	res := &HostResolution{Host: host}
	label, ok := tenancy.ResolveTenantIdentifier(host)
	if !ok {
		res.Root = true
		s.metrics.ObserveTenantLookup("root")
		return res, nil
	}
	res.Label = label

	t, err := s.FetchTenantByLabel(ctx, label)
	if err != nil {
		s.metrics.ObserveTenantLookup("error")
		return nil, err
	}
	if t == nil {
		s.metrics.ObserveTenantLookup("missing")
	} else {
		s.metrics.ObserveTenantLookup("found")
	}
	res.Tenant = t
	return res, nil
}

func (s *TenantService) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	return s.tenants.GetTenant(ctx, id)
}

// ListAllTenants newest first.
func (s *TenantService) ListAllTenants(ctx context.Context) ([]*domain.Tenant, error) {
	return s.tenants.ListTenants(ctx)
}

func (s *TenantService) CreateTenant(ctx context.Context, in TenantInput) (t *domain.Tenant, err error) {
	defer func() { s.metrics.ObserveTenantOp("create", err) }()

	tenant, err := s.buildTenant(in)
	if err != nil {
		return nil, err
	}

	if tenant.CreatedBy != "" {
		if _, err := s.operators.GetOperator(ctx, tenant.CreatedBy); err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: created_by %s is not a platform operator", domain.ErrReference, tenant.CreatedBy)
			}
			return nil, fmt.Errorf("check tenant creator: %w", err)
		}
	}

	created, err := s.tenants.CreateTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Tenant created",
		zap.String("tenant_id", created.ID),
		zap.String("subdomain", created.Subdomain),
		zap.String("created_by", created.CreatedBy),
	)
	return created, nil
}

func (s *TenantService) buildTenant(in TenantInput) (*domain.Tenant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: tenant name is required", domain.ErrInvalidInput)
	}
	label := tenancy.NormalizeLabel(in.Subdomain)
	if err := tenancy.ValidateSubdomain(label); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = domain.StatusActive
	}
	if err := validateStatus(status); err != nil {
		return nil, err
	}
	if in.MaxUsers < 0 || in.MaxConnections < 0 {
		return nil, fmt.Errorf("%w: limits must not be negative", domain.ErrInvalidInput)
	}
	if len(in.Settings) > 0 && !json.Valid(in.Settings) {
		return nil, fmt.Errorf("%w: settings must be valid JSON", domain.ErrInvalidInput)
	}

	t := &domain.Tenant{
		Name:           name,
		Subdomain:      label,
		Status:         status,
		Plan:           in.Plan,
		MaxUsers:       in.MaxUsers,
		MaxConnections: in.MaxConnections,
		ProprietorName: strings.TrimSpace(in.ProprietorName),
		PhoneNumber:    strings.TrimSpace(in.PhoneNumber),
		Address:        strings.TrimSpace(in.Address),
		GSTNumber:      strings.TrimSpace(in.GSTNumber),
		Settings:       in.Settings,
		CreatedBy:      in.CreatedBy,
	}
	if t.Plan == "" {
		t.Plan = domain.DefaultPlan
	}
	if t.MaxUsers == 0 {
		t.MaxUsers = domain.DefaultMaxUsers
	}
	if t.MaxConnections == 0 {
		t.MaxConnections = domain.DefaultMaxConnections
	}
	return t, nil
}

// UpdateTenant writes only the fields set in patch.
func (s *TenantService) UpdateTenant(ctx context.Context, id string, patch domain.TenantPatch) (t *domain.Tenant, err error) {
	defer func() { s.metrics.ObserveTenantOp("update", err) }()

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tenant name must not be empty", domain.ErrInvalidInput)
		}
		patch.Name = &name
	}
	if patch.Subdomain != nil {
		label := tenancy.NormalizeLabel(*patch.Subdomain)
		if err := tenancy.ValidateSubdomain(label); err != nil {
			return nil, err
		}
		patch.Subdomain = &label
	}
	if patch.Status != nil {
		if err := validateStatus(*patch.Status); err != nil {
			return nil, err
		}
	}
	if (patch.MaxUsers != nil && *patch.MaxUsers < 0) || (patch.MaxConnections != nil && *patch.MaxConnections < 0) {
		return nil, fmt.Errorf("%w: limits must not be negative", domain.ErrInvalidInput)
	}
	if patch.Settings != nil && !json.Valid(*patch.Settings) {
		return nil, fmt.Errorf("%w: settings must be valid JSON", domain.ErrInvalidInput)
	}

	updated, err := s.tenants.UpdateTenant(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if patch.Status != nil {
		s.logger.Info("Tenant status changed",
			zap.String("tenant_id", id),
			zap.String("status", updated.Status),
		)
	}
	return updated, nil
}

func (s *TenantService) SetTenantStatus(ctx context.Context, id, status string) (*domain.Tenant, error) {
	return s.UpdateTenant(ctx, id, domain.TenantPatch{Status: &status})
}

// DeleteTenant refuses with domain.ErrConflict while company admins or employees
// still belong to the tenant; nothing is cascaded.
func (s *TenantService) DeleteTenant(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.ObserveTenantOp("delete", err) }()

	if _, err := s.tenants.GetTenant(ctx, id); err != nil {
		return err
	}

	admins, err := s.admins.CountAdmins(ctx, id)
	if err != nil {
		return fmt.Errorf("count tenant admins: %w", err)
	}
	employees, err := s.employees.CountEmployees(ctx, id)
	if err != nil {
		return fmt.Errorf("count tenant employees: %w", err)
	}
	if admins+employees > 0 {
		return fmt.Errorf("%w: tenant still has %d company admins and %d employees", domain.ErrConflict, admins, employees)
	}

	if err := s.tenants.DeleteTenant(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Tenant deleted", zap.String("tenant_id", id))
	return nil
}

func validateStatus(status string) error {
	if status != domain.StatusActive && status != domain.StatusInactive {
		return fmt.Errorf("%w: status must be %q or %q", domain.ErrInvalidInput, domain.StatusActive, domain.StatusInactive)
	}
	return nil
}
