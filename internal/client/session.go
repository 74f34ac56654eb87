package client

import (
	"sync"

	"github.com/HanzKay/KrasandApps-V1/internal/enum"
)

// Session holds the bearer token and the signed-in user. One Session is
// shared by every Client call made on behalf of that user; it is safe for
// concurrent use.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *User
}

func NewSession() *Session {
	return &Session{}
}

// Set records a freshly obtained token. user may be nil until hydrated with
// Client.Me.
func (s *Session) Set(token string, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
}

// SetUser replaces the cached user without touching the token.
func (s *Session) SetUser(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// Clear forgets the token and user (logout, or a rejected token).
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the cached user, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// IsStaff reports whether the cached user holds a non-customer role.
func (s *Session) IsStaff() bool {
	u := s.User()
	return u != nil && u.Role != "" && u.Role != enum.RoleCustomer
}
