package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"voicelink/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStore holds the bearer credential attached to session dials.
// Expiry is checked locally before every dial so a stale token is
// classified as an auth failure up front instead of burning a doomed
// connection attempt.
type TokenStore struct {
	mu    sync.RWMutex
	token string
	// Leeway subtracted from the expiry so a token about to lapse
	// mid-handshake is treated as already stale.
	leeway time.Duration
}

func NewTokenStore(token string) *TokenStore {
	return &TokenStore{token: token, leeway: 10 * time.Second}
}

// Token returns the current credential, rejecting it when expired.
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return "", fmt.Errorf("%w: no token installed", domain.ErrTokenExpired)
	}
	if err := s.checkExpiry(token); err != nil {
		return "", err
	}
	return token, nil
}

// SetToken installs a fresh credential; the reauthentication path.
func (s *TokenStore) SetToken(token string) error {
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}
	if err := s.checkExpiry(token); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// checkExpiry inspects the exp claim without verifying the signature;
// verification is the service's job, this only avoids presenting a
// token we already know is dead. Opaque tokens pass through untouched.
func (s *TokenStore) checkExpiry(token string) error {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil // not a JWT; let the service judge it
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if time.Now().Add(s.leeway).After(exp.Time) {
		return fmt.Errorf("%w: expired at %s", domain.ErrTokenExpired, exp.Time.Format(time.RFC3339))
	}
	return nil
}
