// Package auth tracks the authentication state handed to the agent by the
// external auth collaborator. The agent never issues credentials; it only
// stores the current bearer token, inspects its expiry, and notifies
// listeners when the authenticated state flips.
package auth

import (
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session holds the current bearer credential and change listeners.
// The sync coordinator registers OnChange to trigger backend switching.
type Session struct {
	mu       sync.RWMutex
	token    string
	onChange []func(authenticated bool)
}

// NewSession creates an unauthenticated session.
func NewSession() *Session {
	return &Session{}
}

// SetToken installs a new bearer credential. Listeners fire only when the
// authenticated state actually transitions.
func (s *Session) SetToken(token string) {
	s.swap(token)
}

// ClearToken drops the credential, e.g. on sign-out.
func (s *Session) ClearToken() {
	s.swap("")
}

// IsAuthenticated reports whether a usable credential is present.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return usable(s.token)
}

// Credential returns the current bearer token, or the empty string when
// no usable credential is present.
func (s *Session) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !usable(s.token) {
		return ""
	}
	return s.token
}

// OnChange registers a listener invoked with the new authenticated state
// whenever it transitions. Listeners run synchronously on the goroutine
// that changed the token.
func (s *Session) OnChange(fn func(authenticated bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *Session) swap(token string) {
	s.mu.Lock()
	was := usable(s.token)
	s.token = token
	now := usable(s.token)
	listeners := make([]func(bool), len(s.onChange))
	copy(listeners, s.onChange)
	s.mu.Unlock()

	if was == now {
		return
	}

	slog.Info("authentication state changed", "authenticated", now)
	for _, fn := range listeners {
		fn(now)
	}
}

// usable reports whether the token is present and, when it parses as a
// JWT, unexpired. The agent holds no signing secret, so the token is
// parsed unverified: the remote API is the actual authority, this check
// only avoids sending writes that are certain to be rejected. Opaque
// (non-JWT) tokens are assumed usable.
func usable(token string) bool {
	if token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return time.Now().Before(exp.Time)
}
