// Package common defines shared constants and sentinel errors used across
// the credvault server layers. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")
	ErrorExternal   = errors.New("external service error")

	// ErrorInvalidCredentials deliberately covers both an unknown login and a
	// password mismatch so callers cannot probe which logins exist.
	ErrorInvalidCredentials = errors.New("invalid login or password")

	// Auth errors (session token lifecycle).
	ErrTokenMissing = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ErrorLockedOut is the sentinel target for LockedOutError values.
var ErrorLockedOut = errors.New("account temporarily locked")

// LockedOutError reports that the login throttle has engaged for an account.
// It matches errors.Is(err, ErrorLockedOut) and carries the moment the
// lockout ends for client display.
type LockedOutError struct {
	LockedUntil time.Time
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("account temporarily locked until %s", e.LockedUntil.Format(time.RFC3339))
}

func (e *LockedOutError) Is(target error) bool {
	return target == ErrorLockedOut
}
