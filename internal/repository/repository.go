// Package repository is the row-level contract over tenants, operators, company admins
// and employees. Find* lookups follow maybeSingle semantics: zero rows is (nil, nil),
// never an error. Get/Update/Delete by id return domain.ErrNotFound.
package repository

import (
	"context"
	"time"

	"github.com/tejasnaveen/Shakti/internal/domain"
)

// TenantsRepository tenants table.
type TenantsRepository interface {
	GetTenant(ctx context.Context, id string) (*domain.Tenant, error)
	// FindTenantBySubdomain expects an already normalized label.
	FindTenantBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error)
	// ListTenants newest first.
	ListTenants(ctx context.Context) ([]*domain.Tenant, error)
	// CreateTenant returns domain.ErrConflict on a duplicate subdomain and
	// domain.ErrReference when created_by names no operator.
	CreateTenant(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error)
	UpdateTenant(ctx context.Context, id string, patch domain.TenantPatch) (*domain.Tenant, error)
	// DeleteTenant returns domain.ErrConflict while admins or employees reference the tenant.
	DeleteTenant(ctx context.Context, id string) error
}

// LoginStateWriter persists lockout counters and last-login stamps for one principal table.
type LoginStateWriter interface {
	// RegisterFailure counts one failed login in a single atomic step and returns the
	// resulting state, following domain.Lockout.AfterFailure.
	RegisterFailure(ctx context.Context, id string, at time.Time, limit int, window time.Duration) (domain.Lockout, error)
	// MarkLogin clears the lockout state and stamps last_login_at.
	MarkLogin(ctx context.Context, id string, at time.Time) error
}

// OperatorsRepository super_admins table.
type OperatorsRepository interface {
	LoginStateWriter
	GetOperator(ctx context.Context, id string) (*domain.Operator, error)
	FindOperatorByUsername(ctx context.Context, username string) (*domain.Operator, error)
	CreateOperator(ctx context.Context, o *domain.Operator) (*domain.Operator, error)
}

// CompanyAdminsRepository company_admins table.
type CompanyAdminsRepository interface {
	LoginStateWriter
	GetAdmin(ctx context.Context, id string) (*domain.CompanyAdmin, error)
	FindAdminByUsername(ctx context.Context, tenantID, username string) (*domain.CompanyAdmin, error)
	// ListAdmins newest first.
	ListAdmins(ctx context.Context, tenantID string) ([]*domain.CompanyAdmin, error)
	CountAdmins(ctx context.Context, tenantID string) (int, error)
	// CreateAdmin returns domain.ErrConflict when username, email or employee id is taken in the tenant.
	CreateAdmin(ctx context.Context, a *domain.CompanyAdmin) (*domain.CompanyAdmin, error)
	UpdateAdmin(ctx context.Context, id string, patch domain.AdminPatch) (*domain.CompanyAdmin, error)
	DeleteAdmin(ctx context.Context, id string) error
}

// EmployeesRepository employees table.
type EmployeesRepository interface {
	LoginStateWriter
	GetEmployee(ctx context.Context, id string) (*domain.Employee, error)
	// FindEmployeeByLogin matches identifier against mobile or emp_id inside the tenant;
	// a mobile match wins when both columns match different rows.
	FindEmployeeByLogin(ctx context.Context, tenantID, identifier string) (*domain.Employee, error)
	// ListEmployees newest first; role nil lists every role.
	ListEmployees(ctx context.Context, tenantID string, role *domain.Role) ([]*domain.Employee, error)
	CountEmployees(ctx context.Context, tenantID string) (int, error)
	// CreateEmployee returns domain.ErrConflict when mobile or emp_id is taken in the tenant.
	CreateEmployee(ctx context.Context, e *domain.Employee) (*domain.Employee, error)
	UpdateEmployee(ctx context.Context, id string, patch domain.EmployeePatch) (*domain.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
}

// Repositories bundles one backend's implementations.
type Repositories struct {
	Tenants   TenantsRepository
	Operators OperatorsRepository
	Admins    CompanyAdminsRepository
	Employees EmployeesRepository
}
