package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the signed payload of an access token. Identity and role
// travel inside the token so route authorisation needs no database hit.
type AccessClaims struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// AccountID parses the token subject back into an account id.
func (c *AccessClaims) AccountID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing token subject %q: %w", c.Subject, err)
	}
	return id, nil
}

// RefreshClaims is the signed payload of a refresh token. It carries only
// the registered claims; everything else lives in the server-side record.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// AccountID parses the token subject back into an account id.
func (c *RefreshClaims) AccountID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing token subject %q: %w", c.Subject, err)
	}
	return id, nil
}

// TokenIssuer mints and verifies both token kinds. Access and refresh
// tokens are signed with distinct secrets so a leaked refresh secret cannot
// forge access tokens and vice versa. The now hook exists for tests.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenIssuer builds an issuer. Zero TTLs fall back to the defaults of
// 8 hours for access and 30 days for refresh tokens.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = 8 * time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// IssueAccessToken signs an HS256 access token for the account.
func (i *TokenIssuer) IssueAccessToken(accountID uint64, username string, role Role) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(i.accessTTL)
	claims := AccessClaims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, exp, nil
}

// IssueRefreshToken signs an HS256 refresh token for the account. The random
// jti makes every token unique, so each rotation produces a distinct digest
// even for back-to-back issues within the same second.
func (i *TokenIssuer) IssueRefreshToken(accountID uint64) (string, time.Time, error) {
	jti, err := randomHex(16)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generating token id: %w", err)
	}
	now := i.now().UTC()
	exp := now.Add(i.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatUint(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing refresh token: %w", err)
	}
	return signed, exp, nil
}

// ParseAccessToken verifies signature and expiry and returns the claims.
// Verification is fully stateless; blacklist consultation happens later in
// the session manager.
func (i *TokenIssuer) ParseAccessToken(raw string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &AccessClaims{}, func(*jwt.Token) (any, error) {
		return i.accessSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrUnauthorized
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing claims", ErrUnauthorized)
	}
	return claims, nil
}

// ParseRefreshToken verifies signature and expiry of a refresh token.
func (i *TokenIssuer) ParseRefreshToken(raw string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &RefreshClaims{}, func(*jwt.Token) (any, error) {
		return i.refreshSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}
	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidRefreshToken
	}
	return claims, nil
}

// HashRefreshToken returns the SHA-256 hex digest of a raw refresh token.
// Only the digest is persisted, so a stolen refresh_tokens table cannot be
// replayed against the refresh endpoint.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns n random bytes as a hex string.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// TokenSignature returns the signature segment of a serialized JWT, used as
// the blacklist key. Returns "" for malformed input.
func TokenSignature(raw string) string {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 || parts[2] == "" {
		return ""
	}
	return parts[2]
}
