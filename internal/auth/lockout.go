package auth

import (
	"context"
	"time"
)

// Lockout thresholds. Named constants rather than literals so tests and
// operators reason about the same numbers.
const (
	// MaxFailedAttempts is the number of consecutive failed logins that
	// triggers a temporary lock.
	MaxFailedAttempts = 5

	// LockDuration is how long an account stays locked after the threshold
	// is reached.
	LockDuration = 15 * time.Minute
)

// Lockout tracks failed login attempts per account and opens a temporary
// lock window once the threshold is reached.
//
// The failed-attempt counter is a plain read-modify-write: two simultaneous
// failures for the same account can race and lose an increment. That is an
// accepted weak invariant: the counter converges on subsequent attempts and
// a rare undercount only delays the lock by one attempt.
type Lockout struct {
	accounts AccountDirectory
	now      func() time.Time

	// OnLock, when set, is invoked after an account transitions into the
	// locked state. Used to publish security events; must not block.
	OnLock func(account *Account, until time.Time)
}

// NewLockout builds a lockout state machine over the given directory.
func NewLockout(accounts AccountDirectory) *Lockout {
	return &Lockout{accounts: accounts, now: time.Now}
}

// RecordFailure increments the failed-attempt counter and, at the threshold,
// sets the lock timestamp. Both fields are persisted in one update. A lock
// that has already elapsed starts a fresh counting window, so repeated
// guessing after the lock expires locks the account again.
func (l *Lockout) RecordFailure(ctx context.Context, acc *Account) error {
	if acc.LockUntil != nil && !acc.LockUntil.After(l.now().UTC()) {
		acc.FailedLoginAttempts = 0
		acc.LockUntil = nil
	}
	acc.FailedLoginAttempts++
	if acc.FailedLoginAttempts >= MaxFailedAttempts && acc.LockUntil == nil {
		until := l.now().UTC().Add(LockDuration)
		acc.LockUntil = &until
		if l.OnLock != nil {
			l.OnLock(acc, until)
		}
	}
	return l.accounts.UpdateLoginState(ctx, acc.ID, acc.FailedLoginAttempts, acc.LockUntil)
}

// RecordSuccess clears the counter and any lock after a successful login.
// It is a no-op when there is nothing to clear, avoiding a write on the
// common path.
func (l *Lockout) RecordSuccess(ctx context.Context, acc *Account) error {
	if acc.FailedLoginAttempts == 0 && acc.LockUntil == nil {
		return nil
	}
	acc.FailedLoginAttempts = 0
	acc.LockUntil = nil
	return l.accounts.UpdateLoginState(ctx, acc.ID, 0, nil)
}
