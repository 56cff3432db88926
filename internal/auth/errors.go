package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for authentication and authorisation operations. Handlers
// translate these into HTTP statuses; the messages sent to external callers
// stay generic so that a failed login never reveals whether the username,
// the password, or the account status was at fault.
var (
	ErrValidation          = errors.New("username and password are required")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrAccountInactive     = errors.New("account is inactive")
	ErrAccountNotFound     = errors.New("account not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("insufficient permissions")

	// ErrStoreUnavailable is internal only. It marks a storage failure on a
	// non-critical path and must never reach an external caller; the policy
	// boundary collapses it into fail-open behaviour plus a warning log.
	ErrStoreUnavailable = errors.New("token store unavailable")
)

// AccountLockedError is returned while a temporary lockout window is open.
// RemainingMinutes is rounded up so the caller never retries too early.
type AccountLockedError struct {
	RemainingMinutes int
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minutes", e.RemainingMinutes)
}
