package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tejasnaveen/Shakti/internal/domain"
)

// Postgres SQLSTATE codes we translate.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqInvalidText         = "22P02"
)

// mapPQError classifies a database/sql + lib/pq error into the domain taxonomy.
// onFK selects the sentinel for foreign key violations: ErrReference on insert,
// ErrConflict on delete.
func mapPQError(op string, err error, onFK error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrConflict, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, onFK, pqErr.Constraint)
		case pqInvalidText:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidInput, pqErr.Message)
		}
		if pqErr.Code.Class() == "08" {
			return fmt.Errorf("%s: %w: %w", op, domain.ErrDependencyUnavailable, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if unavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrDependencyUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// validID reports whether id can name a row. Every table keys on a UUID, so a
// malformed id is simply absent rather than a query error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
}

func unavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
