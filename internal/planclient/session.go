package planclient

import (
	"sync"

	"lg/mealmind-go-api/internal/mealplan"
)

// Session holds the credential and cached account for one signed-in user.
// It is created by the caller and injected into the Client; nothing in this
// package keeps session state of its own.
type Session struct {
	mu         sync.RWMutex
	token      string
	user       *mealplan.User
	hasProfile bool
	onLogout   []func()
}

// NewSession returns a session, optionally seeded with a stored token.
func NewSession(token string) *Session {
	return &Session{token: token}
}

// Token returns the bearer credential, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a credential is present.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// User returns the cached account, if one has been loaded.
func (s *Session) User() (mealplan.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return mealplan.User{}, false
	}
	return *s.user, true
}

// HasProfile reports whether the account has completed profile setup.
func (s *Session) HasProfile() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasProfile
}

// OnLogout registers fn to run whenever the session is cleared, whether by
// an explicit logout or a rejected credential.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	s.onLogout = append(s.onLogout, fn)
	s.mu.Unlock()
}

func (s *Session) set(token string, user mealplan.User, hasProfile bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != "" {
		s.token = token
	}
	s.user = &user
	s.hasProfile = hasProfile
}

func (s *Session) setHasProfile(v bool) {
	s.mu.Lock()
	s.hasProfile = v
	s.mu.Unlock()
}

// Clear drops the credential and cached user, then runs logout hooks.
// Clearing an already empty session does not run the hooks again.
func (s *Session) Clear() {
	s.mu.Lock()
	wasSet := s.token != "" || s.user != nil
	s.token = ""
	s.user = nil
	s.hasProfile = false
	hooks := append([]func(){}, s.onLogout...)
	s.mu.Unlock()

	if !wasSet {
		return
	}
	for _, fn := range hooks {
		fn()
	}
}
