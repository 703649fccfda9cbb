package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewManager(TokenConfig{Secret: []byte("s3cret")})

	token, err := m.Generate("cli")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "cli", claims.Client)
	assert.Equal(t, "infinite-quiz", claims.Issuer)
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer := NewManager(TokenConfig{Secret: []byte("s3cret"), TTL: time.Hour, Now: func() time.Time { return now }})
	token, err := issuer.Generate("cli")
	require.NoError(t, err)

	later := NewManager(TokenConfig{Secret: []byte("s3cret"), TTL: time.Hour, Now: func() time.Time { return now.Add(2 * time.Hour) }})
	_, err = later.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewManager(TokenConfig{Secret: []byte("a")}).Generate("cli")
	require.NoError(t, err)

	_, err = NewManager(TokenConfig{Secret: []byte("b")}).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewManager(TokenConfig{Secret: []byte("a")}).Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWithoutSecret(t *testing.T) {
	_, err := NewManager(TokenConfig{}).Generate("cli")
	assert.ErrorIs(t, err, ErrNoSecret)
}
