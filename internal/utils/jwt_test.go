package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(testSecret, 42, "storeOwner", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, 5*time.Second)

	claims, err := ParseAccessToken(testSecret, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "storeOwner", claims.Role)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	expired, err := NewAccessToken(testSecret, 1, "user", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := NewAccessToken("other-secret", 1, "user", time.Hour)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "role": "user"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)
	badSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "abc", "role": "user", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1", "role": "admin", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":   "not.a.jwt",
		"empty":     "",
		"expired":   expired.Token,
		"wrong key": wrongKey.Token,
		"no exp":    noExp,
		"bad sub":   badSub,
		"alg none":  noneAlg,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccessToken(testSecret, raw)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestParseAccessToken_NumericSubject(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 9, "role": "user", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	claims, err := ParseAccessToken(testSecret, raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), claims.UserID)
}

func TestNewTokens_DefaultTTL(t *testing.T) {
	tk := NewTokens(testSecret, 0)
	assert.Equal(t, DefaultTokenTTL, tk.TTL)

	tok, err := tk.Issue(3, "admin")
	require.NoError(t, err)
	claims, err := tk.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}
