package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tejasnaveen/Shakti/internal/domain"
)

// PostgresTenantsRepository TenantsRepository over lib/pq.
type PostgresTenantsRepository struct {
	db *sql.DB
}

func NewPostgresTenantsRepository(db *sql.DB) *PostgresTenantsRepository {
	return &PostgresTenantsRepository{db: db}
}

var _ TenantsRepository = (*PostgresTenantsRepository)(nil)

const tenantColumns = `
	id::text,
	name,
	subdomain,
	status,
	plan_type,
	max_users,
	max_connections,
	COALESCE(proprietor_name, ''),
	COALESCE(phone_number, ''),
	COALESCE(address, ''),
	COALESCE(gst_number, ''),
	COALESCE(settings, '{}'::jsonb),
	created_at,
	updated_at,
	COALESCE(created_by::text, '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*domain.Tenant, error) {
	var t domain.Tenant
	var settings []byte
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Subdomain,
		&t.Status,
		&t.Plan,
		&t.MaxUsers,
		&t.MaxConnections,
		&t.ProprietorName,
		&t.PhoneNumber,
		&t.Address,
		&t.GSTNumber,
		&settings,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	t.Settings = json.RawMessage(settings)
	return &t, nil
}

func (r *PostgresTenantsRepository) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	if !validID(id) {
		return nil, notFound("tenant", id)
	}

	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1::uuid`
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, notFound("tenant", id)
	}
	if err != nil {
		return nil, mapPQError("get tenant", err, domain.ErrReference)
	}
	return t, nil
}

func (r *PostgresTenantsRepository) FindTenantBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error) {
	if subdomain == "" {
		return nil, nil
	}

	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE subdomain = $1`
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, subdomain))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapPQError("find tenant by subdomain", err, domain.ErrReference)
	}
	return t, nil
}

func (r *PostgresTenantsRepository) ListTenants(ctx context.Context) ([]*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapPQError("list tenants", err, domain.ErrReference)
	}
	defer rows.Close()

	out := []*domain.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError("list tenants", err, domain.ErrReference)
	}
	return out, nil
}

func (r *PostgresTenantsRepository) CreateTenant(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: tenant is required", domain.ErrInvalidInput)
	}

	settings := string(t.Settings)
	if settings == "" {
		settings = "{}"
	}

	query := `
		INSERT INTO tenants (
			name, subdomain, status, plan_type, max_users, max_connections,
			proprietor_name, phone_number, address, gst_number, settings, created_by
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11::jsonb, NULLIF($12, '')::uuid
		)
		RETURNING ` + tenantColumns

	created, err := scanTenant(r.db.QueryRowContext(ctx, query,
		t.Name,
		t.Subdomain,
		t.Status,
		t.Plan,
		t.MaxUsers,
		t.MaxConnections,
		t.ProprietorName,
		t.PhoneNumber,
		t.Address,
		t.GSTNumber,
		settings,
		t.CreatedBy,
	))
	if err != nil {
		return nil, mapPQError("create tenant", err, domain.ErrReference)
	}
	return created, nil
}

func (r *PostgresTenantsRepository) UpdateTenant(ctx context.Context, id string, patch domain.TenantPatch) (*domain.Tenant, error) {
	if !validID(id) {
		return nil, notFound("tenant", id)
	}

	b := newUpdateBuilder(id)
	b.set("name", patch.Name)
	b.set("subdomain", patch.Subdomain)
	b.set("status", patch.Status)
	b.set("plan_type", patch.Plan)
	b.setInt("max_users", patch.MaxUsers)
	b.setInt("max_connections", patch.MaxConnections)
	b.setNullable("proprietor_name", patch.ProprietorName)
	b.setNullable("phone_number", patch.PhoneNumber)
	b.setNullable("address", patch.Address)
	b.setNullable("gst_number", patch.GSTNumber)
	if patch.Settings != nil {
		b.setExpr("settings = $%d::jsonb", string(*patch.Settings))
	}

	if b.empty() {
		return r.GetTenant(ctx, id)
	}

	query := b.build("tenants") + ` RETURNING ` + tenantColumns
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, b.args...))
	if err == sql.ErrNoRows {
		return nil, notFound("tenant", id)
	}
	if err != nil {
		return nil, mapPQError("update tenant", err, domain.ErrReference)
	}
	return t, nil
}

func (r *PostgresTenantsRepository) DeleteTenant(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("tenant", id)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1::uuid`, id)
	if err != nil {
		// company_admins/employees reference tenants ON DELETE RESTRICT
		return mapPQError("delete tenant", err, domain.ErrConflict)
	}
	return requireAffected(result, "tenant", id)
}

// updateBuilder assembles "UPDATE t SET a = $2, b = $3 ... WHERE id = $1::uuid".
type updateBuilder struct {
	sets []string
	args []any
}

func newUpdateBuilder(id string) *updateBuilder {
	return &updateBuilder{args: []any{id}}
}

func (b *updateBuilder) setExpr(format string, v any) {
	b.args = append(b.args, v)
	b.sets = append(b.sets, fmt.Sprintf(format, len(b.args)))
}

func (b *updateBuilder) set(col string, v *string) {
	if v != nil {
		b.setExpr(col+" = $%d", *v)
	}
}

func (b *updateBuilder) setNullable(col string, v *string) {
	if v != nil {
		b.setExpr(col+" = NULLIF($%d, '')", *v)
	}
}

func (b *updateBuilder) setInt(col string, v *int) {
	if v != nil {
		b.setExpr(col+" = $%d", *v)
	}
}

func (b *updateBuilder) empty() bool {
	return len(b.sets) == 0
}

func (b *updateBuilder) build(table string) string {
	return fmt.Sprintf("UPDATE %s SET %s, updated_at = NOW() WHERE id = $1::uuid",
		table, strings.Join(b.sets, ", "))
}

func requireAffected(result sql.Result, what, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound(what, id)
	}
	return nil
}
