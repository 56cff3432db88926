package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_AccessTokenRoundTrip(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("access-secret", "refresh-secret", time.Hour, 24*time.Hour)

	raw, exp, err := issuer.IssueAccessToken(42, "dr.azar", RoleManager)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 2*time.Second)

	claims, err := issuer.ParseAccessToken(raw)
	require.NoError(t, err)
	assert.Equal(t, RoleManager, claims.Role)
	assert.Equal(t, "dr.azar", claims.Username)

	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestTokenIssuer_RefreshTokenRoundTrip(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("access-secret", "refresh-secret", time.Hour, 24*time.Hour)

	raw, exp, err := issuer.IssueRefreshToken(7)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), exp, 2*time.Second)

	claims, err := issuer.ParseRefreshToken(raw)
	require.NoError(t, err)
	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
}

func TestTokenIssuer_SecretsAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("access-secret", "refresh-secret", time.Hour, 24*time.Hour)

	access, _, err := issuer.IssueAccessToken(1, "alice", RoleStaff)
	require.NoError(t, err)
	refresh, _, err := issuer.IssueRefreshToken(1)
	require.NoError(t, err)

	// An access token must not verify as a refresh token and vice versa.
	_, err = issuer.ParseRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = issuer.ParseAccessToken(refresh)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	past := time.Now().Add(-48 * time.Hour)
	issuer.now = func() time.Time { return past }

	access, _, err := issuer.IssueAccessToken(1, "alice", RoleStaff)
	require.NoError(t, err)
	refresh, _, err := issuer.IssueRefreshToken(1)
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.ParseAccessToken(access)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = issuer.ParseRefreshToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestTokenIssuer_RejectsTampering(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	other := NewTokenIssuer("other-secret", "another-secret", time.Hour, 24*time.Hour)

	raw, _, err := other.IssueAccessToken(1, "mallory", RoleAdmin)
	require.NoError(t, err)

	_, err = issuer.ParseAccessToken(raw)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = issuer.ParseAccessToken("not-a-jwt")
	assert.Error(t, err)
}

func TestTokenSignature(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	raw, _, err := issuer.IssueAccessToken(1, "alice", RoleStaff)
	require.NoError(t, err)

	sig := TokenSignature(raw)
	assert.NotEmpty(t, sig)
	assert.NotContains(t, sig, ".")

	assert.Empty(t, TokenSignature("only.two"))
	assert.Empty(t, TokenSignature(""))
}

func TestHashRefreshToken_DigestNeverEqualsRaw(t *testing.T) {
	t.Parallel()

	d1 := HashRefreshToken("token-one")
	d2 := HashRefreshToken("token-two")
	assert.NotEqual(t, d1, d2)
	assert.NotEqual(t, "token-one", d1)
	assert.Len(t, d1, 64) // sha256 hex
}
