package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tejasnaveen/Shakti/internal/domain"
	"github.com/tejasnaveen/Shakti/internal/supabase"
)

// restClient is the subset of *supabase.Client the REST repositories use.
type restClient interface {
	Select(ctx context.Context, table string, q *supabase.Query, out any) error
	MaybeSingle(ctx context.Context, table string, q *supabase.Query, out any) (bool, error)
	Insert(ctx context.Context, table string, row any, out any) error
	Update(ctx context.Context, table string, q *supabase.Query, patch any, out any) (bool, error)
	Delete(ctx context.Context, table string, q *supabase.Query) (int, error)
	Count(ctx context.Context, table string, q *supabase.Query) (int, error)
}

// NewRestRepositories backs every table with the hosted data API.
func NewRestRepositories(c *supabase.Client) *Repositories {
	return &Repositories{
		Tenants:   &RestTenantsRepository{c: c},
		Operators: &RestOperatorsRepository{restLoginState{c: c, table: "super_admins"}},
		Admins:    &RestCompanyAdminsRepository{restLoginState{c: c, table: "company_admins"}},
		Employees: &RestEmployeesRepository{restLoginState{c: c, table: "employees"}},
	}
}

// mapRestError translates data API failures; onFK as in mapPQError.
func mapRestError(op string, err error, onFK error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, supabase.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrDependencyUnavailable, err)
	}
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrConflict, apiErr.Message)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, onFK, apiErr.Message)
		case pqInvalidText:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidInput, apiErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func byID(id string) *supabase.Query {
	return supabase.NewQuery().Eq("id", id)
}

// patchMap collects only the supplied fields of a partial update.
type patchMap map[string]any

func (m patchMap) str(col string, v *string) {
	if v != nil {
		m[col] = *v
	}
}

func (m patchMap) nullable(col string, v *string) {
	if v != nil {
		if *v == "" {
			m[col] = nil
		} else {
			m[col] = *v
		}
	}
}

func (m patchMap) num(col string, v *int) {
	if v != nil {
		m[col] = *v
	}
}

// ===== login state =====

type restLoginState struct {
	c     restClient
	table string
}

// failureCASRetries bounds RegisterFailure's compare-and-set loop.
const failureCASRetries = 5

// RegisterFailure compares and sets on failed_attempts; the data API has no atomic
// increment. A lost race re-reads the row and tries again.
func (s restLoginState) RegisterFailure(ctx context.Context, id string, at time.Time, limit int, window time.Duration) (domain.Lockout, error) {
	if !validID(id) {
		return domain.Lockout{}, notFound(s.table, id)
	}

	for i := 0; i < failureCASRetries; i++ {
		var row restPrincipalRow
		found, err := s.c.MaybeSingle(ctx, s.table, byID(id).Select("failed_attempts,locked_until"), &row)
		if err != nil {
			return domain.Lockout{}, mapRestError("read login state", err, domain.ErrReference)
		}
		if !found {
			return domain.Lockout{}, notFound(s.table, id)
		}

		next := row.lockout().AfterFailure(at, limit, window)
		patch := map[string]any{"failed_attempts": next.FailedAttempts, "locked_until": next.LockedUntil}
		q := byID(id).Eq("failed_attempts", strconv.Itoa(row.FailedAttempts))
		won, err := s.c.Update(ctx, s.table, q, patch, nil)
		if err != nil {
			return domain.Lockout{}, mapRestError("register login failure", err, domain.ErrReference)
		}
		if won {
			return next, nil
		}
	}
	return domain.Lockout{}, fmt.Errorf("register login failure on %s %s: %w: too many concurrent updates", s.table, id, domain.ErrConflict)
}

func (s restLoginState) MarkLogin(ctx context.Context, id string, at time.Time) error {
	if !validID(id) {
		return notFound(s.table, id)
	}
	patch := map[string]any{"failed_attempts": 0, "locked_until": nil, "last_login_at": at}
	found, err := s.c.Update(ctx, s.table, byID(id), patch, nil)
	if err != nil {
		return mapRestError("mark login", err, domain.ErrReference)
	}
	if !found {
		return notFound(s.table, id)
	}
	return nil
}

// ===== tenants =====

// RestTenantsRepository tenants over the hosted data API. domain.Tenant's json tags
// match the column names, so rows decode directly.
type RestTenantsRepository struct {
	c restClient
}

var _ TenantsRepository = (*RestTenantsRepository)(nil)

func (r *RestTenantsRepository) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	if !validID(id) {
		return nil, notFound("tenant", id)
	}
	var t domain.Tenant
	found, err := r.c.MaybeSingle(ctx, "tenants", byID(id), &t)
	if err != nil {
		return nil, mapRestError("get tenant", err, domain.ErrReference)
	}
	if !found {
		return nil, notFound("tenant", id)
	}
	return &t, nil
}

func (r *RestTenantsRepository) FindTenantBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error) {
	if subdomain == "" {
		return nil, nil
	}
	var t domain.Tenant
	found, err := r.c.MaybeSingle(ctx, "tenants", supabase.NewQuery().Eq("subdomain", subdomain), &t)
	if err != nil {
		return nil, mapRestError("find tenant by subdomain", err, domain.ErrReference)
	}
	if !found {
		return nil, nil
	}
	return &t, nil
}

func (r *RestTenantsRepository) ListTenants(ctx context.Context) ([]*domain.Tenant, error) {
	out := []*domain.Tenant{}
	if err := r.c.Select(ctx, "tenants", supabase.NewQuery().Order("created_at", true), &out); err != nil {
		return nil, mapRestError("list tenants", err, domain.ErrReference)
	}
	return out, nil
}

func (r *RestTenantsRepository) CreateTenant(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	row := map[string]any{
		"name":            t.Name,
		"subdomain":       t.Subdomain,
		"status":          t.Status,
		"plan_type":       t.Plan,
		"max_users":       t.MaxUsers,
		"max_connections": t.MaxConnections,
	}
	pm := patchMap(row)
	pm.nullable("proprietor_name", &t.ProprietorName)
	pm.nullable("phone_number", &t.PhoneNumber)
	pm.nullable("address", &t.Address)
	pm.nullable("gst_number", &t.GSTNumber)
	pm.nullable("created_by", &t.CreatedBy)
	if len(t.Settings) > 0 {
		row["settings"] = t.Settings
	}

	var created domain.Tenant
	if err := r.c.Insert(ctx, "tenants", row, &created); err != nil {
		return nil, mapRestError("create tenant", err, domain.ErrReference)
	}
	return &created, nil
}

func (r *RestTenantsRepository) UpdateTenant(ctx context.Context, id string, p domain.TenantPatch) (*domain.Tenant, error) {
	if !validID(id) {
		return nil, notFound("tenant", id)
	}
	if p.Empty() {
		return r.GetTenant(ctx, id)
	}
	m := patchMap{"updated_at": time.Now().UTC()}
	m.str("name", p.Name)
	m.str("subdomain", p.Subdomain)
	m.str("status", p.Status)
	m.str("plan_type", p.Plan)
	m.num("max_users", p.MaxUsers)
	m.num("max_connections", p.MaxConnections)
	m.nullable("proprietor_name", p.ProprietorName)
	m.nullable("phone_number", p.PhoneNumber)
	m.nullable("address", p.Address)
	m.nullable("gst_number", p.GSTNumber)
	if p.Settings != nil {
		m["settings"] = json.RawMessage(*p.Settings)
	}

	var t domain.Tenant
	found, err := r.c.Update(ctx, "tenants", byID(id), m, &t)
	if err != nil {
		return nil, mapRestError("update tenant", err, domain.ErrReference)
	}
	if !found {
		return nil, notFound("tenant", id)
	}
	return &t, nil
}

func (r *RestTenantsRepository) DeleteTenant(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("tenant", id)
	}
	n, err := r.c.Delete(ctx, "tenants", byID(id))
	if err != nil {
		return mapRestError("delete tenant", err, domain.ErrConflict)
	}
	if n == 0 {
		return notFound("tenant", id)
	}
	return nil
}

// ===== operators =====

// restPrincipalRow is the wire shape shared by the three principal tables.
type restPrincipalRow struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	Name           *string    `json:"name"`
	Username       string     `json:"username"`
	Email          *string    `json:"email"`
	EmployeeID     string     `json:"employee_id"`
	Mobile         string     `json:"mobile"`
	EmpCode        string     `json:"emp_id"`
	Role           string     `json:"role"`
	PasswordHash   string     `json:"password_hash"`
	Status         string     `json:"status"`
	TeamInchargeID *string    `json:"team_incharge_id"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until"`
	CreatedBy      *string    `json:"created_by"`
	LastLoginAt    *time.Time `json:"last_login_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (row restPrincipalRow) lockout() domain.Lockout {
	return domain.Lockout{FailedAttempts: row.FailedAttempts, LockedUntil: row.LockedUntil}
}

func (row restPrincipalRow) operator() *domain.Operator {
	return &domain.Operator{
		ID: row.ID, Username: row.Username, Name: deref(row.Name), Email: deref(row.Email),
		Hash: row.PasswordHash, Status: row.Status, Lockout: row.lockout(),
		LastLoginAt: row.LastLoginAt, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
}

func (row restPrincipalRow) admin() *domain.CompanyAdmin {
	return &domain.CompanyAdmin{
		ID: row.ID, TenantID: row.TenantID, Name: deref(row.Name), EmployeeID: row.EmployeeID,
		Email: deref(row.Email), Username: row.Username, Hash: row.PasswordHash, Status: row.Status,
		Lockout: row.lockout(), CreatedBy: deref(row.CreatedBy), LastLoginAt: row.LastLoginAt,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
}

func (row restPrincipalRow) employee() *domain.Employee {
	return &domain.Employee{
		ID: row.ID, TenantID: row.TenantID, Name: deref(row.Name), Mobile: row.Mobile,
		EmpCode: row.EmpCode, Hash: row.PasswordHash, Role: domain.Role(row.Role), Status: row.Status,
		TeamInchargeID: deref(row.TeamInchargeID), Lockout: row.lockout(), CreatedBy: deref(row.CreatedBy),
		LastLoginAt: row.LastLoginAt, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
}

type RestOperatorsRepository struct {
	restLoginState
}

var _ OperatorsRepository = (*RestOperatorsRepository)(nil)

func (r *RestOperatorsRepository) GetOperator(ctx context.Context, id string) (*domain.Operator, error) {
	if !validID(id) {
		return nil, notFound("operator", id)
	}
	var row restPrincipalRow
	found, err := r.c.MaybeSingle(ctx, r.table, byID(id), &row)
	if err != nil {
		return nil, mapRestError("get operator", err, domain.ErrReference)
	}
	if !found {
		return nil, notFound("operator", id)
	}
	return row.operator(), nil
}

func (r *RestOperatorsRepository) FindOperatorByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	var row restPrincipalRow
	found, err := r.c.MaybeSingle(ctx, r.table, supabase.NewQuery().Eq("username", username), &row)
	if err != nil {
		return nil, mapRestError("find operator", err, domain.ErrReference)
	}
	if !found {
		return nil, nil
	}
	return row.operator(), nil
}

func (r *RestOperatorsRepository) CreateOperator(ctx context.Context, o *domain.Operator) (*domain.Operator, error) {
	m := patchMap{"username": o.Username, "password_hash": o.Hash, "status": o.Status}
	m.nullable("name", &o.Name)
	m.nullable("email", &o.Email)

	var row restPrincipalRow
	if err := r.c.Insert(ctx, r.table, m, &row); err != nil {
		return nil, mapRestError("create operator", err, domain.ErrReference)
	}
	return row.operator(), nil
}

// ===== company admins =====

type RestCompanyAdminsRepository struct {
	restLoginState
}

var _ CompanyAdminsRepository = (*RestCompanyAdminsRepository)(nil)

func (r *RestCompanyAdminsRepository) GetAdmin(ctx context.Context, id string) (*domain.CompanyAdmin, error) {
	if !validID(id) {
		return nil, notFound("company admin", id)
	}
	var row restPrincipalRow
	found, err := r.c.MaybeSingle(ctx, r.table, byID(id), &row)
	if err != nil {
		return nil, mapRestError("get company admin", err, domain.ErrReference)
	}
	if !found {
		return nil, notFound("company admin", id)
	}
	return row.admin(), nil
}

func (r *RestCompanyAdminsRepository) FindAdminByUsername(ctx context.Context, tenantID, username string) (*domain.CompanyAdmin, error) {
	if !validID(tenantID) {
		return nil, nil
	}
	var row restPrincipalRow
	q := supabase.NewQuery().Eq("tenant_id", tenantID).Eq("username", username)
	found, err := r.c.MaybeSingle(ctx, r.table, q, &row)
	if err != nil {
		return nil, mapRestError("find company admin", err, domain.ErrReference)
	}
	if !found {
		return nil, nil
	}
	return row.admin(), nil
}

func (r *RestCompanyAdminsRepository) ListAdmins(ctx context.Context, tenantID string) ([]*domain.CompanyAdmin, error) {
	if !validID(tenantID) {
		return []*domain.CompanyAdmin{}, nil
	}
	var rows []restPrincipalRow
	q := supabase.NewQuery().Eq("tenant_id", tenantID).Order("created_at", true)
	if err := r.c.Select(ctx, r.table, q, &rows); err != nil {
		return nil, mapRestError("list company admins", err, domain.ErrReference)
	}
	out := make([]*domain.CompanyAdmin, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.admin())
	}
	return out, nil
}

func (r *RestCompanyAdminsRepository) CountAdmins(ctx context.Context, tenantID string) (int, error) {
	if !validID(tenantID) {
		return 0, nil
	}
	n, err := r.c.Count(ctx, r.table, supabase.NewQuery().Eq("tenant_id", tenantID))
	if err != nil {
		return 0, mapRestError("count company admins", err, domain.ErrReference)
	}
	return n, nil
}

func (r *RestCompanyAdminsRepository) CreateAdmin(ctx context.Context, a *domain.CompanyAdmin) (*domain.CompanyAdmin, error) {
	if !validID(a.TenantID) {
		return nil, fmt.Errorf("%w: tenant %s does not exist", domain.ErrReference, a.TenantID)
	}
	m := patchMap{
		"tenant_id":     a.TenantID,
		"name":          a.Name,
		"employee_id":   a.EmployeeID,
		"email":         a.Email,
		"username":      a.Username,
		"password_hash": a.Hash,
		"status":        a.Status,
	}
	m.nullable("created_by", &a.CreatedBy)

	var row restPrincipalRow
	if err := r.c.Insert(ctx, r.table, m, &row); err != nil {
		return nil, mapRestError("create company admin", err, domain.ErrReference)
	}
	return row.admin(), nil
}

func (r *RestCompanyAdminsRepository) UpdateAdmin(ctx context.Context, id string, p domain.AdminPatch) (*domain.CompanyAdmin, error) {
	if !validID(id) {
		return nil, notFound("company admin", id)
	}
	m := patchMap{}
	m.str("name", p.Name)
	m.str("employee_id", p.EmployeeID)
	m.str("email", p.Email)
	m.str("username", p.Username)
	m.str("status", p.Status)
	m.str("password_hash", p.Hash)
	if len(m) == 0 {
		return r.GetAdmin(ctx, id)
	}
	m["updated_at"] = time.Now().UTC()

	var row restPrincipalRow
	found, err := r.c.Update(ctx, r.table, byID(id), m, &row)
	if err != nil {
		return nil, mapRestError("update company admin", err, domain.ErrReference)
	}
	if !found {
		return nil, notFound("company admin", id)
	}
	return row.admin(), nil
}

func (r *RestCompanyAdminsRepository) DeleteAdmin(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("company admin", id)
	}
	n, err := r.c.Delete(ctx, r.table, byID(id))
	if err != nil {
		return mapRestError("delete company admin", err, domain.ErrConflict)
	}
	if n == 0 {
		return notFound("company admin", id)
	}
	return nil
}

// ===== employees =====

type RestEmployeesRepository struct {
	restLoginState
}

var _ EmployeesRepository = (*RestEmployeesRepository)(nil)

func (r *RestEmployeesRepository) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	if !validID(id) {
		return nil, notFound("employee", id)
	}
	var row restPrincipalRow
	found, err := r.c.MaybeSingle(ctx, r.table, byID(id), &row)
	if err != nil {
		return nil, mapRestError("get employee", err, domain.ErrReference)
	}
	if !found {
		return nil, notFound("employee", id)
	}
	return row.employee(), nil
}

func (r *RestEmployeesRepository) FindEmployeeByLogin(ctx context.Context, tenantID, identifier string) (*domain.Employee, error) {
	if !validID(tenantID) {
		return nil, nil
	}
	var rows []restPrincipalRow
	q := supabase.NewQuery().Eq("tenant_id", tenantID).EqAny(identifier, "mobile", "emp_id").Limit(2)
	if err := r.c.Select(ctx, r.table, q, &rows); err != nil {
		return nil, mapRestError("find employee", err, domain.ErrReference)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	for _, row := range rows {
		if row.Mobile == identifier {
			return row.employee(), nil
		}
	}
	return rows[0].employee(), nil
}

func (r *RestEmployeesRepository) ListEmployees(ctx context.Context, tenantID string, role *domain.Role) ([]*domain.Employee, error) {
	if !validID(tenantID) {
		return []*domain.Employee{}, nil
	}
	q := supabase.NewQuery().Eq("tenant_id", tenantID)
	if role != nil {
		q.Eq("role", string(*role))
	}
	q.Order("created_at", true)

	var rows []restPrincipalRow
	if err := r.c.Select(ctx, r.table, q, &rows); err != nil {
		return nil, mapRestError("list employees", err, domain.ErrReference)
	}
	out := make([]*domain.Employee, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.employee())
	}
	return out, nil
}

func (r *RestEmployeesRepository) CountEmployees(ctx context.Context, tenantID string) (int, error) {
	if !validID(tenantID) {
		return 0, nil
	}
	n, err := r.c.Count(ctx, r.table, supabase.NewQuery().Eq("tenant_id", tenantID))
	if err != nil {
		return 0, mapRestError("count employees", err, domain.ErrReference)
	}
	return n, nil
}

func (r *RestEmployeesRepository) CreateEmployee(ctx context.Context, e *domain.Employee) (*domain.Employee, error) {
	if !validID(e.TenantID) {
		return nil, fmt.Errorf("%w: tenant %s does not exist", domain.ErrReference, e.TenantID)
	}
	m := patchMap{
		"tenant_id":     e.TenantID,
		"name":          e.Name,
		"mobile":        e.Mobile,
		"emp_id":        e.EmpCode,
		"password_hash": e.Hash,
		"role":          string(e.Role),
		"status":        e.Status,
	}
	m.nullable("team_incharge_id", &e.TeamInchargeID)
	m.nullable("created_by", &e.CreatedBy)

	var row restPrincipalRow
	if err := r.c.Insert(ctx, r.table, m, &row); err != nil {
		return nil, mapRestError("create employee", err, domain.ErrReference)
	}
	return row.employee(), nil
}

func (r *RestEmployeesRepository) UpdateEmployee(ctx context.Context, id string, p domain.EmployeePatch) (*domain.Employee, error) {
	if !validID(id) {
		return nil, notFound("employee", id)
	}
	m := patchMap{}
	m.str("name", p.Name)
	m.str("mobile", p.Mobile)
	m.str("emp_id", p.EmpCode)
	if p.Role != nil {
		m["role"] = string(*p.Role)
	}
	m.str("status", p.Status)
	m.nullable("team_incharge_id", p.TeamInchargeID)
	m.str("password_hash", p.Hash)
	if len(m) == 0 {
		return r.GetEmployee(ctx, id)
	}
	m["updated_at"] = time.Now().UTC()

	var row restPrincipalRow
	found, err := r.c.Update(ctx, r.table, byID(id), m, &row)
	if err != nil {
		return nil, mapRestError("update employee", err, domain.ErrReference)
	}
	if !found {
		return nil, notFound("employee", id)
	}
	return row.employee(), nil
}

func (r *RestEmployeesRepository) DeleteEmployee(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("employee", id)
	}
	n, err := r.c.Delete(ctx, r.table, byID(id))
	if err != nil {
		return mapRestError("delete employee", err, domain.ErrConflict)
	}
	if n == 0 {
		return notFound("employee", id)
	}
	return nil
}
