package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tejasnaveen/Shakti/internal/domain"
)

// pgLoginState implements LoginStateWriter for any principal table with
// failed_attempts, locked_until and last_login_at columns.
type pgLoginState struct {
	db    *sql.DB
	table string
}

// registerFailureSQL mirrors domain.Lockout.AfterFailure. Every expression reads the
// row being updated, so concurrent failures serialize on the row lock.
const registerFailureSQL = `
	UPDATE %s SET
		failed_attempts = CASE WHEN locked_until <= $2 THEN 1 ELSE failed_attempts + 1 END,
		locked_until = CASE
			WHEN (CASE WHEN locked_until <= $2 THEN 1 ELSE failed_attempts + 1 END) >= $3 THEN $4::timestamptz
			WHEN locked_until <= $2 THEN NULL
			ELSE locked_until
		END
	WHERE id = $1::uuid
	RETURNING failed_attempts, locked_until`

func (s pgLoginState) RegisterFailure(ctx context.Context, id string, at time.Time, limit int, window time.Duration) (domain.Lockout, error) {
	if !validID(id) {
		return domain.Lockout{}, notFound(s.table, id)
	}

	var (
		l           domain.Lockout
		lockedUntil sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(registerFailureSQL, s.table), id, at, limit, at.Add(window)).
		Scan(&l.FailedAttempts, &lockedUntil)
	if err == sql.ErrNoRows {
		return domain.Lockout{}, notFound(s.table, id)
	}
	if err != nil {
		return domain.Lockout{}, mapPQError("register login failure", err, domain.ErrReference)
	}
	l.LockedUntil = timePtr(lockedUntil)
	return l, nil
}

func (s pgLoginState) MarkLogin(ctx context.Context, id string, at time.Time) error {
	if !validID(id) {
		return notFound(s.table, id)
	}
	query := fmt.Sprintf(`UPDATE %s SET failed_attempts = 0, locked_until = NULL, last_login_at = $2 WHERE id = $1::uuid`, s.table)
	result, err := s.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return mapPQError("mark login", err, domain.ErrReference)
	}
	return requireAffected(result, s.table, id)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
