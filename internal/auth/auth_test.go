package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewManager("secret", "lifeplan")
	require.NoError(t, err)

	token, err := m.GenerateToken("alice", time.Hour)
	require.NoError(t, err)

	sub, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestParseTokenRejects(t *testing.T) {
	m, err := NewManager("secret", "lifeplan")
	require.NoError(t, err)
	other, err := NewManager("other-secret", "lifeplan")
	require.NoError(t, err)
	wrongIssuer, err := NewManager("secret", "someone-else")
	require.NoError(t, err)

	expired, err := m.GenerateToken("alice", -time.Minute)
	require.NoError(t, err)
	forged, err := other.GenerateToken("alice", time.Hour)
	require.NoError(t, err)
	foreign, err := wrongIssuer.GenerateToken("alice", time.Hour)
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "lifeplan",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.ParseToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	for name, token := range map[string]string{
		"expired":    expired,
		"forged":     forged,
		"issuer":     foreign,
		"no subject": noSubject,
		"garbage":    "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.ParseToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = m.ParseToken(expired)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager("", "lifeplan")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	_, ok := TokenFromRequest(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "Basic abc")
	_, ok = TokenFromRequest(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "bearer abc.def")
	token, ok := TokenFromRequest(r)
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)
}

func TestUserIDContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	id, ok := UserIDFromContext(WithUserID(context.Background(), "bob"))
	assert.True(t, ok)
	assert.Equal(t, "bob", id)
}
