package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tejasnaveen/Shakti/internal/domain"
)

// PostgresCompanyAdminsRepository company_admins over lib/pq.
type PostgresCompanyAdminsRepository struct {
	pgLoginState
	db *sql.DB
}

func NewPostgresCompanyAdminsRepository(db *sql.DB) *PostgresCompanyAdminsRepository {
	return &PostgresCompanyAdminsRepository{
		pgLoginState: pgLoginState{db: db, table: "company_admins"},
		db:           db,
	}
}

var _ CompanyAdminsRepository = (*PostgresCompanyAdminsRepository)(nil)

const adminColumns = `
	id::text,
	tenant_id::text,
	name,
	employee_id,
	email,
	username,
	password_hash,
	status,
	failed_attempts,
	locked_until,
	COALESCE(created_by::text, ''),
	last_login_at,
	created_at,
	updated_at`

func scanAdmin(row rowScanner) (*domain.CompanyAdmin, error) {
	var a domain.CompanyAdmin
	var lockedUntil, lastLogin sql.NullTime
	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.Name,
		&a.EmployeeID,
		&a.Email,
		&a.Username,
		&a.Hash,
		&a.Status,
		&a.FailedAttempts,
		&lockedUntil,
		&a.CreatedBy,
		&lastLogin,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.LockedUntil = timePtr(lockedUntil)
	a.LastLoginAt = timePtr(lastLogin)
	return &a, nil
}

func (r *PostgresCompanyAdminsRepository) GetAdmin(ctx context.Context, id string) (*domain.CompanyAdmin, error) {
	if !validID(id) {
		return nil, notFound("company admin", id)
	}
	query := `SELECT ` + adminColumns + ` FROM company_admins WHERE id = $1::uuid`
	a, err := scanAdmin(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, notFound("company admin", id)
	}
	if err != nil {
		return nil, mapPQError("get company admin", err, domain.ErrReference)
	}
	return a, nil
}

func (r *PostgresCompanyAdminsRepository) FindAdminByUsername(ctx context.Context, tenantID, username string) (*domain.CompanyAdmin, error) {
	if !validID(tenantID) {
		return nil, nil
	}
	query := `SELECT ` + adminColumns + ` FROM company_admins WHERE tenant_id = $1::uuid AND username = $2`
	a, err := scanAdmin(r.db.QueryRowContext(ctx, query, tenantID, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapPQError("find company admin", err, domain.ErrReference)
	}
	return a, nil
}

func (r *PostgresCompanyAdminsRepository) ListAdmins(ctx context.Context, tenantID string) ([]*domain.CompanyAdmin, error) {
	if !validID(tenantID) {
		return []*domain.CompanyAdmin{}, nil
	}
	query := `SELECT ` + adminColumns + ` FROM company_admins WHERE tenant_id = $1::uuid ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, mapPQError("list company admins", err, domain.ErrReference)
	}
	defer rows.Close()

	out := []*domain.CompanyAdmin{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company admin: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError("list company admins", err, domain.ErrReference)
	}
	return out, nil
}

func (r *PostgresCompanyAdminsRepository) CountAdmins(ctx context.Context, tenantID string) (int, error) {
	if !validID(tenantID) {
		return 0, nil
	}
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM company_admins WHERE tenant_id = $1::uuid`, tenantID).Scan(&n)
	if err != nil {
		return 0, mapPQError("count company admins", err, domain.ErrReference)
	}
	return n, nil
}

func (r *PostgresCompanyAdminsRepository) CreateAdmin(ctx context.Context, a *domain.CompanyAdmin) (*domain.CompanyAdmin, error) {
	if !validID(a.TenantID) {
		return nil, fmt.Errorf("%w: tenant %s does not exist", domain.ErrReference, a.TenantID)
	}
	query := `
		INSERT INTO company_admins (tenant_id, name, employee_id, email, username, password_hash, status, created_by)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::uuid)
		RETURNING ` + adminColumns
	created, err := scanAdmin(r.db.QueryRowContext(ctx, query,
		a.TenantID, a.Name, a.EmployeeID, a.Email, a.Username, a.Hash, a.Status, a.CreatedBy,
	))
	if err != nil {
		return nil, mapPQError("create company admin", err, domain.ErrReference)
	}
	return created, nil
}

func (r *PostgresCompanyAdminsRepository) UpdateAdmin(ctx context.Context, id string, patch domain.AdminPatch) (*domain.CompanyAdmin, error) {
	if !validID(id) {
		return nil, notFound("company admin", id)
	}
	b := newUpdateBuilder(id)
	b.set("name", patch.Name)
	b.set("employee_id", patch.EmployeeID)
	b.set("email", patch.Email)
	b.set("username", patch.Username)
	b.set("status", patch.Status)
	b.set("password_hash", patch.Hash)

	if b.empty() {
		return r.GetAdmin(ctx, id)
	}

	query := b.build("company_admins") + ` RETURNING ` + adminColumns
	a, err := scanAdmin(r.db.QueryRowContext(ctx, query, b.args...))
	if err == sql.ErrNoRows {
		return nil, notFound("company admin", id)
	}
	if err != nil {
		return nil, mapPQError("update company admin", err, domain.ErrReference)
	}
	return a, nil
}

func (r *PostgresCompanyAdminsRepository) DeleteAdmin(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("company admin", id)
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM company_admins WHERE id = $1::uuid`, id)
	if err != nil {
		return mapPQError("delete company admin", err, domain.ErrConflict)
	}
	return requireAffected(result, "company admin", id)
}
