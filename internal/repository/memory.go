package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tejasnaveen/Shakti/internal/domain"
)

// MemoryStore backs all four tables in process when no database is configured.
// It enforces the same unique and foreign key rules as the Postgres schema.
type MemoryStore struct {
	mu        sync.RWMutex
	now       func() time.Time
	last      time.Time
	tenants   map[string]domain.Tenant
	operators map[string]domain.Operator
	admins    map[string]domain.CompanyAdmin
	employees map[string]domain.Employee
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:       time.Now,
		tenants:   map[string]domain.Tenant{},
		operators: map[string]domain.Operator{},
		admins:    map[string]domain.CompanyAdmin{},
		employees: map[string]domain.Employee{},
	}
}

// NewMemoryRepositories returns repositories sharing one MemoryStore.
func NewMemoryRepositories() *Repositories {
	s := NewMemoryStore()
	return &Repositories{
		Tenants:   MemoryTenantsRepo{s},
		Operators: MemoryOperatorsRepo{s},
		Admins:    MemoryCompanyAdminsRepo{s},
		Employees: MemoryEmployeesRepo{s},
	}
}

// tick returns a strictly increasing timestamp so newest-first ordering is stable.
// Callers hold s.mu.
func (s *MemoryStore) tick() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// ===== tenants =====

type MemoryTenantsRepo struct{ s *MemoryStore }

var _ TenantsRepository = MemoryTenantsRepo{}

func (r MemoryTenantsRepo) GetTenant(_ context.Context, id string) (*domain.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tenants[id]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}
	return &t, nil
}

func (r MemoryTenantsRepo) FindTenantBySubdomain(_ context.Context, subdomain string) (*domain.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.tenants {
		if t.Subdomain == subdomain {
			out := t
			return &out, nil
		}
	}
	return nil, nil
}

func (r MemoryTenantsRepo) ListTenants(_ context.Context) ([]*domain.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Tenant, 0, len(r.s.tenants))
	for _, t := range r.s.tenants {
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r MemoryTenantsRepo) CreateTenant(_ context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.tenants {
		if existing.Subdomain == t.Subdomain {
			return nil, fmt.Errorf("create tenant: %w: subdomain %s", domain.ErrConflict, t.Subdomain)
		}
	}
	if t.CreatedBy != "" {
		if _, ok := r.s.operators[t.CreatedBy]; !ok {
			return nil, fmt.Errorf("create tenant: %w: created_by %s", domain.ErrReference, t.CreatedBy)
		}
	}

	row := *t
	row.ID = uuid.NewString()
	if len(row.Settings) == 0 {
		row.Settings = json.RawMessage(`{}`)
	}
	row.CreatedAt = r.s.tick()
	row.UpdatedAt = row.CreatedAt
	r.s.tenants[row.ID] = row
	return &row, nil
}

func (r MemoryTenantsRepo) UpdateTenant(_ context.Context, id string, p domain.TenantPatch) (*domain.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tenants[id]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}
	if p.Subdomain != nil && *p.Subdomain != t.Subdomain {
		for _, other := range r.s.tenants {
			if other.Subdomain == *p.Subdomain {
				return nil, fmt.Errorf("update tenant: %w: subdomain %s", domain.ErrConflict, *p.Subdomain)
			}
		}
	}
	if p.Empty() {
		return &t, nil
	}

	assign(&t.Name, p.Name)
	assign(&t.Subdomain, p.Subdomain)
	assign(&t.Status, p.Status)
	assign(&t.Plan, p.Plan)
	assign(&t.MaxUsers, p.MaxUsers)
	assign(&t.MaxConnections, p.MaxConnections)
	assign(&t.ProprietorName, p.ProprietorName)
	assign(&t.PhoneNumber, p.PhoneNumber)
	assign(&t.Address, p.Address)
	assign(&t.GSTNumber, p.GSTNumber)
	assign(&t.Settings, p.Settings)
	t.UpdatedAt = r.s.tick()
	r.s.tenants[id] = t
	return &t, nil
}

func (r MemoryTenantsRepo) DeleteTenant(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tenants[id]; !ok {
		return fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}
	for _, a := range r.s.admins {
		if a.TenantID == id {
			return fmt.Errorf("delete tenant: %w: company admins reference tenant", domain.ErrConflict)
		}
	}
	for _, e := range r.s.employees {
		if e.TenantID == id {
			return fmt.Errorf("delete tenant: %w: employees reference tenant", domain.ErrConflict)
		}
	}
	delete(r.s.tenants, id)
	return nil
}

// ===== operators =====

type MemoryOperatorsRepo struct{ s *MemoryStore }

var _ OperatorsRepository = MemoryOperatorsRepo{}

func (r MemoryOperatorsRepo) GetOperator(_ context.Context, id string) (*domain.Operator, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.operators[id]
	if !ok {
		return nil, fmt.Errorf("operator %s: %w", id, domain.ErrNotFound)
	}
	return &o, nil
}

func (r MemoryOperatorsRepo) FindOperatorByUsername(_ context.Context, username string) (*domain.Operator, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, o := range r.s.operators {
		if o.Username == username {
			out := o
			return &out, nil
		}
	}
	return nil, nil
}

func (r MemoryOperatorsRepo) CreateOperator(_ context.Context, o *domain.Operator) (*domain.Operator, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.operators {
		if existing.Username == o.Username {
			return nil, fmt.Errorf("create operator: %w: username %s", domain.ErrConflict, o.Username)
		}
	}
	row := *o
	row.ID = uuid.NewString()
	if row.Status == "" {
		row.Status = domain.StatusActive
	}
	row.CreatedAt = r.s.tick()
	row.UpdatedAt = row.CreatedAt
	r.s.operators[row.ID] = row
	return &row, nil
}

func (r MemoryOperatorsRepo) RegisterFailure(_ context.Context, id string, at time.Time, limit int, window time.Duration) (domain.Lockout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.operators[id]
	if !ok {
		return domain.Lockout{}, fmt.Errorf("operator %s: %w", id, domain.ErrNotFound)
	}
	o.Lockout = o.Lockout.AfterFailure(at, limit, window)
	r.s.operators[id] = o
	return o.Lockout, nil
}

func (r MemoryOperatorsRepo) MarkLogin(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.operators[id]
	if !ok {
		return fmt.Errorf("operator %s: %w", id, domain.ErrNotFound)
	}
	o.Lockout = domain.Lockout{}
	o.LastLoginAt = &at
	r.s.operators[id] = o
	return nil
}

// ===== company admins =====

type MemoryCompanyAdminsRepo struct{ s *MemoryStore }

var _ CompanyAdminsRepository = MemoryCompanyAdminsRepo{}

func (r MemoryCompanyAdminsRepo) GetAdmin(_ context.Context, id string) (*domain.CompanyAdmin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.admins[id]
	if !ok {
		return nil, fmt.Errorf("company admin %s: %w", id, domain.ErrNotFound)
	}
	return &a, nil
}

func (r MemoryCompanyAdminsRepo) FindAdminByUsername(_ context.Context, tenantID, username string) (*domain.CompanyAdmin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.admins {
		if a.TenantID == tenantID && a.Username == username {
			out := a
			return &out, nil
		}
	}
	return nil, nil
}

func (r MemoryCompanyAdminsRepo) ListAdmins(_ context.Context, tenantID string) ([]*domain.CompanyAdmin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*domain.CompanyAdmin{}
	for _, a := range r.s.admins {
		if a.TenantID == tenantID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r MemoryCompanyAdminsRepo) CountAdmins(_ context.Context, tenantID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, a := range r.s.admins {
		if a.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// adminConflict reports which unique key of a collides inside its tenant, skipping selfID.
func (r MemoryCompanyAdminsRepo) adminConflict(a domain.CompanyAdmin, selfID string) string {
	for id, other := range r.s.admins {
		if id == selfID || other.TenantID != a.TenantID {
			continue
		}
		switch {
		case other.Username == a.Username:
			return "username"
		case strings.EqualFold(other.Email, a.Email):
			return "email"
		case other.EmployeeID == a.EmployeeID:
			return "employee_id"
		}
	}
	return ""
}

func (r MemoryCompanyAdminsRepo) CreateAdmin(_ context.Context, a *domain.CompanyAdmin) (*domain.CompanyAdmin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tenants[a.TenantID]; !ok {
		return nil, fmt.Errorf("create company admin: %w: tenant %s", domain.ErrReference, a.TenantID)
	}
	if col := r.adminConflict(*a, ""); col != "" {
		return nil, fmt.Errorf("create company admin: %w: %s", domain.ErrConflict, col)
	}

	row := *a
	row.ID = uuid.NewString()
	row.CreatedAt = r.s.tick()
	row.UpdatedAt = row.CreatedAt
	r.s.admins[row.ID] = row
	return &row, nil
}

func (r MemoryCompanyAdminsRepo) UpdateAdmin(_ context.Context, id string, p domain.AdminPatch) (*domain.CompanyAdmin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.admins[id]
	if !ok {
		return nil, fmt.Errorf("company admin %s: %w", id, domain.ErrNotFound)
	}
	assign(&a.Name, p.Name)
	assign(&a.EmployeeID, p.EmployeeID)
	assign(&a.Email, p.Email)
	assign(&a.Username, p.Username)
	assign(&a.Status, p.Status)
	assign(&a.Hash, p.Hash)
	if col := r.adminConflict(a, id); col != "" {
		return nil, fmt.Errorf("update company admin: %w: %s", domain.ErrConflict, col)
	}
	a.UpdatedAt = r.s.tick()
	r.s.admins[id] = a
	return &a, nil
}

func (r MemoryCompanyAdminsRepo) DeleteAdmin(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.admins[id]; !ok {
		return fmt.Errorf("company admin %s: %w", id, domain.ErrNotFound)
	}
	delete(r.s.admins, id)
	return nil
}

func (r MemoryCompanyAdminsRepo) RegisterFailure(_ context.Context, id string, at time.Time, limit int, window time.Duration) (domain.Lockout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.admins[id]
	if !ok {
		return domain.Lockout{}, fmt.Errorf("company admin %s: %w", id, domain.ErrNotFound)
	}
	a.Lockout = a.Lockout.AfterFailure(at, limit, window)
	r.s.admins[id] = a
	return a.Lockout, nil
}

func (r MemoryCompanyAdminsRepo) MarkLogin(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.admins[id]
	if !ok {
		return fmt.Errorf("company admin %s: %w", id, domain.ErrNotFound)
	}
	a.Lockout = domain.Lockout{}
	a.LastLoginAt = &at
	r.s.admins[id] = a
	return nil
}

// ===== employees =====

type MemoryEmployeesRepo struct{ s *MemoryStore }

var _ EmployeesRepository = MemoryEmployeesRepo{}

func (r MemoryEmployeesRepo) GetEmployee(_ context.Context, id string) (*domain.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.employees[id]
	if !ok {
		return nil, fmt.Errorf("employee %s: %w", id, domain.ErrNotFound)
	}
	return &e, nil
}

func (r MemoryEmployeesRepo) FindEmployeeByLogin(_ context.Context, tenantID, identifier string) (*domain.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var byCode *domain.Employee
	for _, e := range r.s.employees {
		if e.TenantID != tenantID {
			continue
		}
		if e.Mobile == identifier {
			out := e
			return &out, nil
		}
		if e.EmpCode == identifier && byCode == nil {
			out := e
			byCode = &out
		}
	}
	return byCode, nil
}

func (r MemoryEmployeesRepo) ListEmployees(_ context.Context, tenantID string, role *domain.Role) ([]*domain.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*domain.Employee{}
	for _, e := range r.s.employees {
		if e.TenantID != tenantID || (role != nil && e.Role != *role) {
			continue
		}
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r MemoryEmployeesRepo) CountEmployees(_ context.Context, tenantID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, e := range r.s.employees {
		if e.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (r MemoryEmployeesRepo) employeeConflict(e domain.Employee, selfID string) string {
	for id, other := range r.s.employees {
		if id == selfID || other.TenantID != e.TenantID {
			continue
		}
		switch {
		case other.Mobile == e.Mobile:
			return "mobile"
		case other.EmpCode == e.EmpCode:
			return "emp_id"
		}
	}
	return ""
}

func (r MemoryEmployeesRepo) CreateEmployee(_ context.Context, e *domain.Employee) (*domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tenants[e.TenantID]; !ok {
		return nil, fmt.Errorf("create employee: %w: tenant %s", domain.ErrReference, e.TenantID)
	}
	if e.TeamInchargeID != "" {
		if _, ok := r.s.employees[e.TeamInchargeID]; !ok {
			return nil, fmt.Errorf("create employee: %w: team incharge %s", domain.ErrReference, e.TeamInchargeID)
		}
	}
	if col := r.employeeConflict(*e, ""); col != "" {
		return nil, fmt.Errorf("create employee: %w: %s", domain.ErrConflict, col)
	}

	row := *e
	row.ID = uuid.NewString()
	row.CreatedAt = r.s.tick()
	row.UpdatedAt = row.CreatedAt
	r.s.employees[row.ID] = row
	return &row, nil
}

func (r MemoryEmployeesRepo) UpdateEmployee(_ context.Context, id string, p domain.EmployeePatch) (*domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.employees[id]
	if !ok {
		return nil, fmt.Errorf("employee %s: %w", id, domain.ErrNotFound)
	}
	assign(&e.Name, p.Name)
	assign(&e.Mobile, p.Mobile)
	assign(&e.EmpCode, p.EmpCode)
	assign(&e.Role, p.Role)
	assign(&e.Status, p.Status)
	assign(&e.TeamInchargeID, p.TeamInchargeID)
	assign(&e.Hash, p.Hash)
	if col := r.employeeConflict(e, id); col != "" {
		return nil, fmt.Errorf("update employee: %w: %s", domain.ErrConflict, col)
	}
	e.UpdatedAt = r.s.tick()
	r.s.employees[id] = e
	return &e, nil
}

func (r MemoryEmployeesRepo) DeleteEmployee(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.employees[id]; !ok {
		return fmt.Errorf("employee %s: %w", id, domain.ErrNotFound)
	}
	delete(r.s.employees, id)
	for otherID, other := range r.s.employees {
		if other.TeamInchargeID == id {
			other.TeamInchargeID = ""
			r.s.employees[otherID] = other
		}
	}
	return nil
}

func (r MemoryEmployeesRepo) RegisterFailure(_ context.Context, id string, at time.Time, limit int, window time.Duration) (domain.Lockout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.employees[id]
	if !ok {
		return domain.Lockout{}, fmt.Errorf("employee %s: %w", id, domain.ErrNotFound)
	}
	e.Lockout = e.Lockout.AfterFailure(at, limit, window)
	r.s.employees[id] = e
	return e.Lockout, nil
}

func (r MemoryEmployeesRepo) MarkLogin(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.employees[id]
	if !ok {
		return fmt.Errorf("employee %s: %w", id, domain.ErrNotFound)
	}
	e.Lockout = domain.Lockout{}
	e.LastLoginAt = &at
	r.s.employees[id] = e
	return nil
}

func assign[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
