package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return tok
}

func TestParseToken_Success(t *testing.T) {
	secret := []byte("super-secret")
	tok := signToken(t, secret, jwt.MapClaims{
		"sub":      "ext-123",
		"username": "alice",
		"email":    "alice@example.com",
		"picture":  "http://img",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	claims, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "ext-123", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "http://img", claims.Picture)
}

func TestParseToken_SubjectOnly(t *testing.T) {
	secret := []byte("super-secret")
	tok := signToken(t, secret, jwt.MapClaims{"sub": "ext-123"})

	claims, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "ext-123", claims.Subject)
	assert.Empty(t, claims.Username)
}

func TestParseToken_WrongSecret(t *testing.T) {
	tok := signToken(t, []byte("right"), jwt.MapClaims{"sub": "ext-123"})

	_, err := ParseToken(tok, []byte("wrong"))
	require.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	secret := []byte("super-secret")
	tok := signToken(t, secret, jwt.MapClaims{
		"sub": "ext-123",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	_, err := ParseToken(tok, secret)
	require.Error(t, err)
}

func TestParseToken_MissingSubject(t *testing.T) {
	secret := []byte("super-secret")
	tok := signToken(t, secret, jwt.MapClaims{"email": "a@b.c"})

	_, err := ParseToken(tok, secret)
	require.Error(t, err)
}

func TestParseToken_Malformed(t *testing.T) {
	_, err := ParseToken("not.a.jwt", []byte("k"))
	require.Error(t, err)
}
