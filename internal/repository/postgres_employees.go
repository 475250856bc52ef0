package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tejasnaveen/Shakti/internal/domain"
)

// PostgresEmployeesRepository employees over lib/pq.
type PostgresEmployeesRepository struct {
	pgLoginState
	db *sql.DB
}

func NewPostgresEmployeesRepository(db *sql.DB) *PostgresEmployeesRepository {
	return &PostgresEmployeesRepository{
		pgLoginState: pgLoginState{db: db, table: "employees"},
		db:           db,
	}
}

var _ EmployeesRepository = (*PostgresEmployeesRepository)(nil)

const employeeColumns = `
	id::text,
	tenant_id::text,
	name,
	mobile,
	emp_id,
	password_hash,
	role,
	status,
	COALESCE(team_incharge_id::text, ''),
	failed_attempts,
	locked_until,
	COALESCE(created_by::text, ''),
	last_login_at,
	created_at,
	updated_at`

func scanEmployee(row rowScanner) (*domain.Employee, error) {
	var e domain.Employee
	var role string
	var lockedUntil, lastLogin sql.NullTime
	err := row.Scan(
		&e.ID,
		&e.TenantID,
		&e.Name,
		&e.Mobile,
		&e.EmpCode,
		&e.Hash,
		&role,
		&e.Status,
		&e.TeamInchargeID,
		&e.FailedAttempts,
		&lockedUntil,
		&e.CreatedBy,
		&lastLogin,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Role = domain.Role(role)
	e.LockedUntil = timePtr(lockedUntil)
	e.LastLoginAt = timePtr(lastLogin)
	return &e, nil
}

func (r *PostgresEmployeesRepository) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	if !validID(id) {
		return nil, notFound("employee", id)
	}
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1::uuid`
	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, notFound("employee", id)
	}
	if err != nil {
		return nil, mapPQError("get employee", err, domain.ErrReference)
	}
	return e, nil
}

func (r *PostgresEmployeesRepository) FindEmployeeByLogin(ctx context.Context, tenantID, identifier string) (*domain.Employee, error) {
	if !validID(tenantID) {
		return nil, nil
	}
	query := `
		SELECT ` + employeeColumns + `
		  FROM employees
		 WHERE tenant_id = $1::uuid
		   AND (mobile = $2 OR emp_id = $2)
		 ORDER BY (mobile = $2) DESC
		 LIMIT 1`
	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, tenantID, identifier))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapPQError("find employee", err, domain.ErrReference)
	}
	return e, nil
}

func (r *PostgresEmployeesRepository) ListEmployees(ctx context.Context, tenantID string, role *domain.Role) ([]*domain.Employee, error) {
	if !validID(tenantID) {
		return []*domain.Employee{}, nil
	}
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE tenant_id = $1::uuid`
	args := []any{tenantID}
	if role != nil {
		query += ` AND role = $2`
		args = append(args, string(*role))
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapPQError("list employees", err, domain.ErrReference)
	}
	defer rows.Close()

	out := []*domain.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError("list employees", err, domain.ErrReference)
	}
	return out, nil
}

func (r *PostgresEmployeesRepository) CountEmployees(ctx context.Context, tenantID string) (int, error) {
	if !validID(tenantID) {
		return 0, nil
	}
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees WHERE tenant_id = $1::uuid`, tenantID).Scan(&n)
	if err != nil {
		return 0, mapPQError("count employees", err, domain.ErrReference)
	}
	return n, nil
}

func (r *PostgresEmployeesRepository) CreateEmployee(ctx context.Context, e *domain.Employee) (*domain.Employee, error) {
	if !validID(e.TenantID) {
		return nil, fmt.Errorf("%w: tenant %s does not exist", domain.ErrReference, e.TenantID)
	}
	query := `
		INSERT INTO employees (tenant_id, name, mobile, emp_id, password_hash, role, status, team_incharge_id, created_by)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::uuid, NULLIF($9, '')::uuid)
		RETURNING ` + employeeColumns
	created, err := scanEmployee(r.db.QueryRowContext(ctx, query,
		e.TenantID, e.Name, e.Mobile, e.EmpCode, e.Hash, string(e.Role), e.Status, e.TeamInchargeID, e.CreatedBy,
	))
	if err != nil {
		return nil, mapPQError("create employee", err, domain.ErrReference)
	}
	return created, nil
}

func (r *PostgresEmployeesRepository) UpdateEmployee(ctx context.Context, id string, patch domain.EmployeePatch) (*domain.Employee, error) {
	if !validID(id) {
		return nil, notFound("employee", id)
	}
	b := newUpdateBuilder(id)
	b.set("name", patch.Name)
	b.set("mobile", patch.Mobile)
	b.set("emp_id", patch.EmpCode)
	if patch.Role != nil {
		b.setExpr("role = $%d", string(*patch.Role))
	}
	b.set("status", patch.Status)
	if patch.TeamInchargeID != nil {
		b.setExpr("team_incharge_id = NULLIF($%d, '')::uuid", *patch.TeamInchargeID)
	}
	b.set("password_hash", patch.Hash)

	if b.empty() {
		return r.GetEmployee(ctx, id)
	}

	query := b.build("employees") + ` RETURNING ` + employeeColumns
	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, b.args...))
	if err == sql.ErrNoRows {
		return nil, notFound("employee", id)
	}
	if err != nil {
		return nil, mapPQError("update employee", err, domain.ErrReference)
	}
	return e, nil
}

func (r *PostgresEmployeesRepository) DeleteEmployee(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("employee", id)
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1::uuid`, id)
	if err != nil {
		return mapPQError("delete employee", err, domain.ErrConflict)
	}
	return requireAffected(result, "employee", id)
}
