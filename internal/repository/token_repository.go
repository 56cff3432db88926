package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/novadent/clinic-core/internal/auth"
)

// TokenRepo persists refresh-token records (digest only, never the raw
// token) in the `refresh_tokens` table.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

var _ auth.RefreshTokenStore = (*TokenRepo)(nil)

// Store inserts a refresh token record.
func (r *TokenRepo) Store(ctx context.Context, accountID uint64, tokenDigest string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (account_id, token_hash, expires_at) VALUES (?,?,?)",
		accountID, tokenDigest, expiresAt)
	return err
}

// Consume revokes the live record matching the digest in a single
// conditional update. Rows-affected tells validation and revocation apart
// atomically: under two concurrent refreshes with the same token exactly one
// sees LookupFound.
func (r *TokenRepo) Consume(ctx context.Context, accountID uint64, tokenDigest string) auth.LookupStatus {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE account_id=? AND token_hash=? AND revoked_at IS NULL AND expires_at > NOW()",
		accountID, tokenDigest)
	if err != nil {
		return auth.LookupUnavailable
	}
	n, err := res.RowsAffected()
	if err != nil {
		return auth.LookupUnavailable
	}
	if n == 0 {
		return auth.LookupNotFound
	}
	return auth.LookupFound
}

// RevokeAllForAccount revokes every live token for the account and returns
// the number of sessions affected. Idempotent: already-revoked rows are
// untouched.
func (r *TokenRepo) RevokeAllForAccount(ctx context.Context, accountID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE account_id=? AND revoked_at IS NULL",
		accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneExpired deletes records whose expiry has passed. Meant for a
// periodic maintenance call; live sessions are unaffected.
func (r *TokenRepo) PruneExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at <= NOW()")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
