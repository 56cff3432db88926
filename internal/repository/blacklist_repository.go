package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/novadent/clinic-core/internal/auth"
)

// BlacklistRepo keeps revoked access-token signatures in Redis. Each entry
// carries a TTL matching the token's remaining lifetime, so pruning is free:
// Redis drops the key the moment the token would have expired anyway.
//
// A nil client (Redis unreachable at startup) reports every lookup as
// unavailable; the session manager decides what that means.
type BlacklistRepo struct {
	RDB *redis.Client
}

func NewBlacklistRepo(rdb *redis.Client) *BlacklistRepo { return &BlacklistRepo{RDB: rdb} }

var _ auth.AccessTokenBlacklist = (*BlacklistRepo)(nil)

const blacklistPrefix = "blacklist:"

// Add registers a token signature until expiresAt. Tokens already past
// their expiry are skipped.
func (r *BlacklistRepo) Add(ctx context.Context, signature string, expiresAt time.Time) error {
	if r.RDB == nil {
		return auth.ErrStoreUnavailable
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.RDB.Set(ctx, blacklistPrefix+signature, 1, ttl).Err()
}

// Check reports whether the signature is blacklisted. Absence of an entry
// only means "no record", never "valid": signature and expiry were already
// verified by the caller.
func (r *BlacklistRepo) Check(ctx context.Context, signature string) auth.LookupStatus {
	if r.RDB == nil {
		return auth.LookupUnavailable
	}
	n, err := r.RDB.Exists(ctx, blacklistPrefix+signature).Result()
	if err != nil {
		return auth.LookupUnavailable
	}
	if n > 0 {
		return auth.LookupFound
	}
	return auth.LookupNotFound
}
