package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_LoginReturnsUsablePair(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(testAccount(1, "front.desk", RoleManager))

	acc, pair, err := f.sessions.Login(context.Background(), "front.desk", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), acc.ID)
	require.NotNil(t, pair)

	claims, err := f.issuer.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, RoleManager, claims.Role)
	assert.Equal(t, "front.desk", claims.Username)

	// The refresh record is persisted as a digest, never raw.
	require.Len(t, f.tokens.records, 1)
	assert.Equal(t, HashRefreshToken(pair.RefreshToken), f.tokens.records[0].digest)
	assert.NotEqual(t, pair.RefreshToken, f.tokens.records[0].digest)
}

func TestSession_LoginSurvivesRefreshStoreFailure(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(testAccount(1, "front.desk", RoleManager))
	f.tokens.storeErr = errors.New("disk full")

	_, pair, err := f.sessions.Login(context.Background(), "front.desk", "correct-horse")
	require.NoError(t, err, "degraded mode: login must still succeed")
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestSession_RefreshRotatesAndOldTokenDies(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(testAccount(1, "front.desk", RoleManager))
	_, pair, err := f.sessions.Login(context.Background(), "front.desk", "correct-horse")
	require.NoError(t, err)

	acc, next, err := f.sessions.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), acc.ID)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// Single-use: the consumed token can never mint another session.
	_, _, err = f.sessions.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// The rotated replacement still works.
	_, _, err = f.sessions.Refresh(context.Background(), next.RefreshToken)
	require.NoError(t, err)
}

func TestSession_RefreshRejectsGarbageAndForeignTokens(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(testAccount(1, "front.desk", RoleManager))

	_, _, err := f.sessions.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// Signed with the wrong secret.
	foreign := NewTokenIssuer("other-access", "other-refresh", time.Hour, 24*time.Hour)
	raw, _, err := foreign.IssueRefreshToken(1)
	require.NoError(t, err)
	_, _, err = f.sessions.Refresh(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestSession_RefreshFailsOpenOnlyWhenStoreUnavailable(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(testAccount(1, "front.desk", RoleManager))
	_, pair, err := f.sessions.Login(context.Background(), "front.desk", "correct-horse")
	require.NoError(t, err)

	// Rotate once so the first token's record is consumed.
	_, _, err = f.sessions.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)

	// Store down: the signature-valid but rotated token slips through, an
	// explicit availability tradeoff.
	f.tokens.unavailable = true
	_, _, err = f.sessions.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)

	// Store back up: the rotated token is rejected again. Fail-open is
	// reserved for genuine unavailability.
	f.tokens.unavailable = false
	_, _, err = f.sessions.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestSession_RefreshRejectsDeactivatedAccount(t *testing.T) {
	t.Parallel()

	acc := testAccount(1, "front.desk", RoleManager)
	f := newSessionFixture(acc)
	_, pair, err := f.sessions.Login(context.Background(), "front.desk", "correct-horse")
	require.NoError(t, err)

	acc.IsActive = false
	_, _, err = f.sessions.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestSession_RefreshRejectsDeletedAccount(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(testAccount(1, "front.desk", RoleManager))
	_, pair, err := f.sessions.Login(context.Background(), "front.desk", "correct-horse")
	require.NoError(t, err)

	delete(f.dir.accounts, 1)
	_, _, err = f.sessions.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSession_LogoutBlacklistsUntilTokenExpiry(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(testAccount(1, "front.desk", RoleManager))
	_, pair, err := f.sessions.Login(context.Background(), "front.desk", "correct-horse")
	require.NoError(t, err)

	// Before logout the token authenticates.
	_, err = f.sessions.AuthenticateRequest(context.Background(), pair.AccessToken)
	require.NoError(t, err)

	f.sessions.Logout(context.Background(), pair.AccessToken)

	_, err = f.sessions.AuthenticateRequest(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)

	exp, ok := f.blacklist.entries[TokenSignature(pair.AccessToken)]
	require.True(t, ok)
	assert.WithinDuration(t, pair.AccessExpiresAt, exp, time.Second)
}

func TestSession_LogoutIsBestEffort(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(testAccount(1, "front.desk", RoleManager))
	f.blacklist.addErr = errors.New("redis down")

	// Must not panic or surface the failure; undecodable input is a no-op.
	f.sessions.Logout(context.Background(), "garbage")
	f.sessions.Logout(context.Background(), "a.b.c")
}

func TestSession_AuthenticateFailsOpenWhenBlacklistUnavailable(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(testAccount(1, "front.desk", RoleManager))
	_, pair, err := f.sessions.Login(context.Background(), "front.desk", "correct-horse")
	require.NoError(t, err)

	f.blacklist.unavailable = true
	claims, err := f.sessions.AuthenticateRequest(context.Background(), pair.AccessToken)
	require.NoError(t, err, "blacklist outage must not lock out valid tokens")
	assert.Equal(t, RoleManager, claims.Role)
}

func TestSession_LogoutAllRevokesEverySession(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(testAccount(1, "front.desk", RoleManager))

	_, first, err := f.sessions.Login(context.Background(), "front.desk", "correct-horse")
	require.NoError(t, err)
	_, second, err := f.sessions.Login(context.Background(), "front.desk", "correct-horse")
	require.NoError(t, err)

	count, err := f.sessions.LogoutAll(context.Background(), 1, second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Every previously issued refresh token is dead.
	_, _, err = f.sessions.Refresh(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, _, err = f.sessions.Refresh(context.Background(), second.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// And the access token used for the call is blacklisted.
	_, err = f.sessions.AuthenticateRequest(context.Background(), second.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSession_LoginAfterFourFailuresEndsClean(t *testing.T) {
	t.Parallel()

	acc := testAccount(1, "front.desk", RoleManager)
	f := newSessionFixture(acc)

	for i := 0; i < 4; i++ {
		_, _, err := f.sessions.Login(context.Background(), "front.desk", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, _, err := f.sessions.Login(context.Background(), "front.desk", "correct-horse")
	require.NoError(t, err)
	assert.Zero(t, acc.FailedLoginAttempts)
	assert.Nil(t, acc.LockUntil)
}
