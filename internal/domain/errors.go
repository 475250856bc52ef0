package domain

import "errors"

var (
	// ErrNotFound row absent where one was required (update, delete, get by id).
	ErrNotFound = errors.New("not found")
	// ErrTenantUnavailable host resolves to no tenant, or the tenant is not active.
	ErrTenantUnavailable = errors.New("tenant unavailable")
	// ErrAccountInactive principal exists but is not active.
	ErrAccountInactive = errors.New("account inactive")
	// ErrInvalidCredential unknown principal or wrong password.
	ErrInvalidCredential = errors.New("invalid credentials")
	// ErrRoleMismatch password verified but the stored role differs from the claimed one.
	ErrRoleMismatch = errors.New("role mismatch")
	// ErrAccountLocked too many consecutive failures.
	ErrAccountLocked = errors.New("account locked")
	// ErrConflict uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrReference foreign reference does not exist.
	ErrReference = errors.New("invalid reference")
	ErrInvalidInput = errors.New("invalid input")
	// ErrDependencyUnavailable the data store could not be reached.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
