package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSigner(t *testing.T, ttl time.Duration) *TokenSigner {
	t.Helper()
	secret, err := GenerateSecureSecret()
	require.NoError(t, err)
	s, err := NewTokenSigner(secret, ttl)
	require.NoError(t, err)
	return s
}

// TestIssue тестирует создание JWT токена
func TestIssue(t *testing.T) {
	s := newSigner(t, time.Hour)

	token, err := s.Issue("builder-1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."), "JWT состоит из трёх частей")
}

// TestValidate тестирует валидацию JWT токена
func TestValidate(t *testing.T) {
	s := newSigner(t, time.Hour)
	token, err := s.Issue("builder-42", true)
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "builder-42", claims.BuilderID)
	assert.True(t, claims.CanEdit)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestValidate_RejectsForeignSignature(t *testing.T) {
	a := newSigner(t, time.Hour)
	b := newSigner(t, time.Hour)

	token, err := a.Issue("x", true)
	require.NoError(t, err)

	_, err = b.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.Validate(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_RejectsExpired(t *testing.T) {
	s := newSigner(t, time.Hour)
	s.ttl = -time.Minute

	token, err := s.Issue("late", true)
	require.NoError(t, err)

	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenSigner_WeakSecret(t *testing.T) {
	_, err := NewTokenSigner("short", time.Hour)
	assert.ErrorIs(t, err, ErrWeakSecret)

	s, err := NewTokenSigner(strings.Repeat("k", 32), 0)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, s.ttl)
}
