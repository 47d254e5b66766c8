package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// refreshBuffer renews the access token slightly before it expires.
const refreshBuffer = 30 * time.Second

// Session is an access token plus the client whose cookie jar can renew it.
type Session struct {
	client *SDKClient

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time // zero when the server did not say
	message     string
}

func newSession(client *SDKClient, tok *TokenResponse) *Session {
	s := &Session{client: client}
	s.update(tok)
	return s
}

func (s *Session) update(tok *TokenResponse) {
	s.accessToken = tok.Token
	s.message = tok.Message
	s.expiresAt = time.Time{}
	if tok.ExpiresIn > 0 {
		s.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - refreshBuffer)
	}
}

// AccessToken returns the current access token without checking expiry.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Message is the server's message from the call that created the session.
func (s *Session) Message() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.message
}

// Refresh renews the access token through the refresh cookie.
func (s *Session) Refresh(ctx context.Context) error {
	tok, err := s.client.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.update(tok)
	return nil
}

func (s *Session) validToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	token, exp := s.accessToken, s.expiresAt
	s.mu.RUnlock()

	if exp.IsZero() || time.Now().Before(exp) {
		return token, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return "", err
	}
	return s.AccessToken(), nil
}

// Me returns the signed-in user, refreshing once if the token was rejected.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	token, err := s.validToken(ctx)
	if err != nil {
		return nil, err
	}

	u, err := s.client.Me(ctx, token)
	if StatusCode(err) != http.StatusUnauthorized {
		return u, err
	}

	if rerr := s.Refresh(ctx); rerr != nil {
		return nil, err
	}
	return s.client.Me(ctx, s.AccessToken())
}
