package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc, err := NewTokenService("0123456789abcdef0123", time.Hour)
	require.NoError(t, err)

	token, expiresAt, err := svc.Issue("usr_1", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	p, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "usr_1", p.UserID)
	assert.Equal(t, "admin", p.Role)
}

func TestTokenServiceRejectsShortSecret(t *testing.T) {
	_, err := NewTokenService("short", time.Hour)
	assert.Error(t, err)
}

func TestTokenServiceRejectsExpiredAndForeignTokens(t *testing.T) {
	svc, err := NewTokenService("0123456789abcdef0123", time.Minute)
	require.NoError(t, err)

	token, _, err := svc.Issue("usr_1", "user")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	other, err := NewTokenService("another-secret-value-xx", time.Minute)
	require.NoError(t, err)
	foreign, _, err := other.Issue("usr_1", "user")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Parse(foreign)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = svc.Parse("not-a-token")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
