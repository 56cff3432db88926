package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// storeTimeout bounds blacklist and refresh-record lookups so a stalled
// store degrades into the fail-open path instead of blocking the request.
const storeTimeout = 2 * time.Second

// logoutFallbackTTL is how long an undecodable access token stays
// blacklisted after logout.
const logoutFallbackTTL = 15 * time.Minute

// LookupStatus is the tri-state result of a store lookup. Distinguishing
// NotFound from Unavailable keeps the fail-open decision an explicit branch
// at the policy boundary instead of an implicit error swallow.
type LookupStatus int

const (
	// LookupFound means a matching live record exists.
	LookupFound LookupStatus = iota
	// LookupNotFound means the store answered and there is no live record.
	LookupNotFound
	// LookupUnavailable means the store could not answer.
	LookupUnavailable
)

// AccountDirectory is the persistence contract for accounts. Updates are
// partial: login-state writes must not clobber unrelated fields.
type AccountDirectory interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByID(ctx context.Context, id uint64) (*Account, error)
	UpdateLoginState(ctx context.Context, id uint64, failedAttempts int, lockUntil *time.Time) error
}

// RefreshTokenStore persists refresh-token records for rotation and
// revocation.
type RefreshTokenStore interface {
	// Store persists a new record for the token digest.
	Store(ctx context.Context, accountID uint64, tokenDigest string, expiresAt time.Time) error

	// Consume atomically revokes the live record matching the digest and
	// reports whether one existed. A single conditional update, so a rotated
	// token can never validate twice even under concurrent refreshes.
	Consume(ctx context.Context, accountID uint64, tokenDigest string) LookupStatus

	// RevokeAllForAccount revokes every live record for the account and
	// returns how many were affected.
	RevokeAllForAccount(ctx context.Context, accountID uint64) (int64, error)
}

// AccessTokenBlacklist registers revoked access tokens until their natural
// expiry.
type AccessTokenBlacklist interface {
	Add(ctx context.Context, signature string, expiresAt time.Time) error
	Check(ctx context.Context, signature string) LookupStatus
}

// TokenPair is a freshly minted access/refresh pair.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SessionManager orchestrates login, refresh with rotation, logout and
// logout-all over the verifier, issuer and token stores.
type SessionManager struct {
	accounts  AccountDirectory
	verifier  *CredentialVerifier
	issuer    *TokenIssuer
	tokens    RefreshTokenStore
	blacklist AccessTokenBlacklist
	now       func() time.Time
	log       *zap.Logger
}

// NewSessionManager wires the session state machine together.
func NewSessionManager(accounts AccountDirectory, verifier *CredentialVerifier, issuer *TokenIssuer,
	tokens RefreshTokenStore, blacklist AccessTokenBlacklist, log *zap.Logger) *SessionManager {
	return &SessionManager{
		accounts:  accounts,
		verifier:  verifier,
		issuer:    issuer,
		tokens:    tokens,
		blacklist: blacklist,
		now:       time.Now,
		log:       log,
	}
}

// Login verifies credentials and mints a new token pair. A failure to
// persist the refresh record does not fail the login: the session still
// works, rotation simply cannot be enforced for it later.
func (m *SessionManager) Login(ctx context.Context, username, password string) (*Account, *TokenPair, error) {
	acc, err := m.verifier.Verify(ctx, username, password)
	if err != nil {
		return nil, nil, err
	}
	pair, err := m.mintPair(ctx, acc)
	if err != nil {
		return nil, nil, err
	}
	return acc, pair, nil
}

// Refresh exchanges a refresh token for a new pair, rotating the old token.
// Signature and expiry are checked statelessly first; the stored record is
// then required whenever the store is reachable, so a rotated or revoked
// token cannot mint new sessions. Only genuine store unavailability
// falls open.
func (m *SessionManager) Refresh(ctx context.Context, rawRefresh string) (*Account, *TokenPair, error) {
	claims, err := m.issuer.ParseRefreshToken(rawRefresh)
	if err != nil {
		return nil, nil, ErrInvalidRefreshToken
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return nil, nil, ErrInvalidRefreshToken
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	status := m.tokens.Consume(sctx, accountID, HashRefreshToken(rawRefresh))
	cancel()
	switch status {
	case LookupNotFound:
		// Already rotated, revoked, or never stored: single-use invariant.
		m.log.Info("refresh rejected", zap.Uint64("account_id", accountID), zap.String("reason", "no live refresh record"))
		return nil, nil, ErrInvalidRefreshToken
	case LookupUnavailable:
		m.log.Warn("refresh token store unavailable, proceeding on signature alone", zap.Uint64("account_id", accountID))
	}

	acc, err := m.accounts.FindByID(ctx, accountID)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, nil, ErrUnauthorized
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading account %d: %w", accountID, err)
	}
	if !acc.IsActive {
		return nil, nil, ErrAccountInactive
	}

	pair, err := m.mintPair(ctx, acc)
	if err != nil {
		return nil, nil, err
	}
	return acc, pair, nil
}

// Logout blacklists the presented access token until its natural expiry.
// Best-effort and idempotent: from the caller's perspective logout always
// succeeds, storage failures are only logged.
func (m *SessionManager) Logout(ctx context.Context, rawAccess string) {
	exp := m.now().UTC().Add(logoutFallbackTTL)
	if claims, err := m.issuer.ParseAccessToken(rawAccess); err == nil && claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	sig := TokenSignature(rawAccess)
	if sig == "" {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := m.blacklist.Add(sctx, sig, exp); err != nil {
		m.log.Warn("blacklisting access token failed", zap.Error(err))
	}
}

// LogoutAll blacklists the current access token and revokes every refresh
// token the account holds. Returns the number of refresh sessions revoked.
func (m *SessionManager) LogoutAll(ctx context.Context, accountID uint64, rawAccess string) (int64, error) {
	m.Logout(ctx, rawAccess)
	count, err := m.tokens.RevokeAllForAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("revoking sessions for account %d: %w", accountID, err)
	}
	return count, nil
}

// AuthenticateRequest validates a bearer access token: signature and expiry
// first, then the blacklist. An unreachable blacklist fails open with a
// warning rather than locking out the whole clinic.
func (m *SessionManager) AuthenticateRequest(ctx context.Context, rawAccess string) (*AccessClaims, error) {
	claims, err := m.issuer.ParseAccessToken(rawAccess)
	if err != nil {
		return nil, ErrUnauthorized
	}
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	switch m.blacklist.Check(sctx, TokenSignature(rawAccess)) {
	case LookupFound:
		return nil, ErrUnauthorized
	case LookupUnavailable:
		m.log.Warn("blacklist unavailable, allowing request", zap.String("subject", claims.Subject))
	}
	return claims, nil
}

// mintPair issues and stores a fresh access/refresh pair for the account.
func (m *SessionManager) mintPair(ctx context.Context, acc *Account) (*TokenPair, error) {
	access, accessExp, err := m.issuer.IssueAccessToken(acc.ID, acc.Username, acc.Role)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := m.issuer.IssueRefreshToken(acc.ID)
	if err != nil {
		return nil, err
	}
	if err := m.tokens.Store(ctx, acc.ID, HashRefreshToken(refresh), refreshExp); err != nil {
		// Degraded mode: the pair is still handed out, the refresh token is
		// just not revocable server-side.
		m.log.Warn("storing refresh token failed", zap.Uint64("account_id", acc.ID), zap.Error(err))
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
