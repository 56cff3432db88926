package auth

import "time"

// Account mirrors the `accounts` table. FailedLoginAttempts and LockUntil
// belong to the lockout state machine; everything else is owned by user
// management.
type Account struct {
	ID                  uint64     `json:"id"`
	Username            string     `json:"username"`
	PasswordHash        string     `json:"-"` // never serialised
	Role                Role       `json:"role"`
	IsActive            bool       `json:"is_active"`
	FailedLoginAttempts int        `json:"-"`
	LockUntil           *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// RefreshTokenRecord mirrors the `refresh_tokens` table. The raw token is
// never stored; only its SHA-256 digest.
type RefreshTokenRecord struct {
	ID        uint64     `json:"id"`
	AccountID uint64     `json:"account_id"`
	TokenHash string     `json:"-"` // never serialised
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
