package auth

import (
	"context"
	"testing"
	"time"

	"voicelink/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestTokenStore_ValidToken(t *testing.T) {
	store := NewTokenStore(signedToken(t, time.Now().Add(time.Hour)))

	got, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestTokenStore_ExpiredTokenRejected(t *testing.T) {
	store := NewTokenStore(signedToken(t, time.Now().Add(-time.Minute)))

	_, err := store.Token(context.Background())
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestTokenStore_LeewayTreatsNearExpiryAsStale(t *testing.T) {
	// Expires in 5s, inside the 10s leeway window.
	store := NewTokenStore(signedToken(t, time.Now().Add(5*time.Second)))

	_, err := store.Token(context.Background())
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestTokenStore_EmptyToken(t *testing.T) {
	store := NewTokenStore("")

	_, err := store.Token(context.Background())
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestTokenStore_OpaqueTokenPassesThrough(t *testing.T) {
	store := NewTokenStore("opaque-api-key")

	got, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "opaque-api-key", got)
}

func TestTokenStore_SetTokenReplacesCredential(t *testing.T) {
	store := NewTokenStore(signedToken(t, time.Now().Add(-time.Minute)))

	fresh := signedToken(t, time.Now().Add(time.Hour))
	require.NoError(t, store.SetToken(fresh))

	got, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
}

func TestTokenStore_SetTokenRejectsExpired(t *testing.T) {
	store := NewTokenStore(signedToken(t, time.Now().Add(time.Hour)))

	err := store.SetToken(signedToken(t, time.Now().Add(-time.Minute)))
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	// The previous valid credential is untouched.
	_, err = store.Token(context.Background())
	assert.NoError(t, err)
}

func TestTokenStore_SetTokenRejectsEmpty(t *testing.T) {
	store := NewTokenStore("tok")
	assert.Error(t, store.SetToken(""))
}
