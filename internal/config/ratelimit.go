package config

import "time"

// RateLimitConfig configures the Redis token-bucket limiter guarding the
// login and refresh endpoints. The lockout state machine is independent of
// this limiter and holds even when it is disabled or Redis is down.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int           // bucket size (attempts before throttling)
	RefillTokens   int           // tokens added per interval
	RefillInterval time.Duration // refill cadence
	TTL            time.Duration // idle bucket expiry in Redis
	Prefix         string        // Redis key prefix
}

// LoadRateLimitConfig reads limiter settings from the environment. Defaults
// allow 5 attempts per caller with one attempt regained every 3 minutes,
// which works out to 5 per 15 minutes at steady state.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 5),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 3*time.Minute),
		TTL:            envDur("RATE_LIMIT_TTL", 30*time.Minute),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Minute
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}
