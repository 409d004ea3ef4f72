package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testIssuer() *TokenIssuer {
	return NewTokenIssuer([]byte("test-secret"), 15*time.Minute, 30*24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := testIssuer()

	token, issued, err := issuer.IssueAccessToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, issued.JTI)

	claims, err := issuer.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, issued.JTI, claims.JTI)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestAccessTokenUniqueJTI(t *testing.T) {
	issuer := testIssuer()

	_, a, err := issuer.IssueAccessToken(1)
	require.NoError(t, err)
	_, b, err := issuer.IssueAccessToken(1)
	require.NoError(t, err)
	require.NotEqual(t, a.JTI, b.JTI)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := testIssuer().IssueAccessToken(1)
	require.NoError(t, err)

	other := NewTokenIssuer([]byte("different-secret"), time.Minute, time.Hour)
	_, err = other.ParseAccessToken(token)
	require.ErrorContains(t, err, "TOKEN_INVALID")
}

func TestParseRejectsExpired(t *testing.T) {
	issuer := testIssuer()
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := issuer.IssueAccessToken(1)
	require.NoError(t, err)

	_, err = testIssuer().ParseAccessToken(token)
	require.ErrorContains(t, err, "TOKEN_EXPIRED")
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := testIssuer().ParseAccessToken("not-a-jwt")
	require.ErrorContains(t, err, "TOKEN_INVALID")
}

func TestRefreshTokenHashing(t *testing.T) {
	raw, hash, err := testIssuer().NewRefreshToken()
	require.NoError(t, err)

	require.Len(t, raw, 64)
	require.Equal(t, HashToken(raw), hash)
	require.NotEqual(t, raw, hash, "raw token must never equal its storage form")
}
