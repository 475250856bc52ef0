package repository

import (
	"context"
	"database/sql"

	"github.com/tejasnaveen/Shakti/internal/domain"
)

// PostgresOperatorsRepository super_admins over lib/pq.
type PostgresOperatorsRepository struct {
	pgLoginState
	db *sql.DB
}

func NewPostgresOperatorsRepository(db *sql.DB) *PostgresOperatorsRepository {
	return &PostgresOperatorsRepository{
		pgLoginState: pgLoginState{db: db, table: "super_admins"},
		db:           db,
	}
}

var _ OperatorsRepository = (*PostgresOperatorsRepository)(nil)

const operatorColumns = `
	id::text,
	username,
	COALESCE(name, ''),
	COALESCE(email, ''),
	password_hash,
	status,
	failed_attempts,
	locked_until,
	last_login_at,
	created_at,
	updated_at`

func scanOperator(row rowScanner) (*domain.Operator, error) {
	var o domain.Operator
	var lockedUntil, lastLogin sql.NullTime
	err := row.Scan(
		&o.ID,
		&o.Username,
		&o.Name,
		&o.Email,
		&o.Hash,
		&o.Status,
		&o.FailedAttempts,
		&lockedUntil,
		&lastLogin,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.LockedUntil = timePtr(lockedUntil)
	o.LastLoginAt = timePtr(lastLogin)
	return &o, nil
}

func (r *PostgresOperatorsRepository) GetOperator(ctx context.Context, id string) (*domain.Operator, error) {
	if !validID(id) {
		return nil, notFound("operator", id)
	}
	query := `SELECT ` + operatorColumns + ` FROM super_admins WHERE id = $1::uuid`
	o, err := scanOperator(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, notFound("operator", id)
	}
	if err != nil {
		return nil, mapPQError("get operator", err, domain.ErrReference)
	}
	return o, nil
}

func (r *PostgresOperatorsRepository) FindOperatorByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	query := `SELECT ` + operatorColumns + ` FROM super_admins WHERE username = $1`
	o, err := scanOperator(r.db.QueryRowContext(ctx, query, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapPQError("find operator", err, domain.ErrReference)
	}
	return o, nil
}

func (r *PostgresOperatorsRepository) CreateOperator(ctx context.Context, o *domain.Operator) (*domain.Operator, error) {
	query := `
		INSERT INTO super_admins (username, name, email, password_hash, status)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5)
		RETURNING ` + operatorColumns
	created, err := scanOperator(r.db.QueryRowContext(ctx, query, o.Username, o.Name, o.Email, o.Hash, o.Status))
	if err != nil {
		return nil, mapPQError("create operator", err, domain.ErrReference)
	}
	return created, nil
}
