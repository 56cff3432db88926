package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// CredentialVerifier checks a username/password pair against the account
// directory, enforcing the active-status and lockout gates. Unknown
// username, wrong password and inactive account all surface as
// ErrInvalidCredentials so callers cannot enumerate usernames; the real
// reason goes to the internal log only.
type CredentialVerifier struct {
	accounts       AccountDirectory
	lockout        *Lockout
	verifyPassword func(hash, plain string) bool
	now            func() time.Time
	log            *zap.Logger
}

// NewCredentialVerifier builds a verifier. verifyPassword is the injected
// hashing capability (bcrypt in production).
func NewCredentialVerifier(accounts AccountDirectory, lockout *Lockout, verifyPassword func(hash, plain string) bool, log *zap.Logger) *CredentialVerifier {
	return &CredentialVerifier{
		accounts:       accounts,
		lockout:        lockout,
		verifyPassword: verifyPassword,
		now:            time.Now,
		log:            log,
	}
}

// Verify authenticates the credentials and returns the account on success.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*Account, error) {
	if username == "" || password == "" {
		return nil, ErrValidation
	}

	acc, err := v.accounts.FindByUsername(ctx, username)
	if errors.Is(err, ErrAccountNotFound) {
		v.log.Info("login rejected", zap.String("username", username), zap.String("reason", "unknown username"))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		// Storage failure on the critical path surfaces as an internal
		// error, never as a 401.
		return nil, fmt.Errorf("loading account %q: %w", username, err)
	}

	if !acc.IsActive {
		v.log.Info("login rejected", zap.Uint64("account_id", acc.ID), zap.String("reason", "inactive account"))
		return nil, ErrInvalidCredentials
	}

	now := v.now().UTC()
	if acc.LockUntil != nil && acc.LockUntil.After(now) {
		remaining := int(math.Ceil(acc.LockUntil.Sub(now).Minutes()))
		v.log.Info("login rejected", zap.Uint64("account_id", acc.ID),
			zap.String("reason", "account locked"), zap.Int("remaining_minutes", remaining))
		return nil, &AccountLockedError{RemainingMinutes: remaining}
	}

	if !v.verifyPassword(acc.PasswordHash, password) {
		if ferr := v.lockout.RecordFailure(ctx, acc); ferr != nil {
			v.log.Warn("persisting failed-attempt counter failed", zap.Uint64("account_id", acc.ID), zap.Error(ferr))
		}
		v.log.Info("login rejected", zap.Uint64("account_id", acc.ID),
			zap.String("reason", "wrong password"), zap.Int("failed_attempts", acc.FailedLoginAttempts))
		return nil, ErrInvalidCredentials
	}

	if serr := v.lockout.RecordSuccess(ctx, acc); serr != nil {
		v.log.Warn("clearing lockout state failed", zap.Uint64("account_id", acc.ID), zap.Error(serr))
	}
	return acc, nil
}
