package web

import (
	"sync"
	"time"

	"github.com/mazen160/go-random"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Level   string
	Message string
}

type session struct {
	Username string
	Role     Role
	expires  time.Time
	flashes  []Flash
}

// sessionManager is an in-memory session table. Sessions do not survive a
// restart, which is fine for a roster-sized deployment; a signed-out user
// just logs in again.
type sessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
}

func newSessionManager(ttl time.Duration) *sessionManager {
	return &sessionManager{
		sessions: map[string]*session{},
		ttl:      ttl,
	}
}

func (m *sessionManager) create(username string, role Role) (string, error) {
	token, err := random.String(32)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune()
	m.sessions[token] = &session{
		Username: username,
		Role:     role,
		expires:  time.Now().Add(m.ttl),
	}
	return token, nil
}

// callers must hold the lock
func (m *sessionManager) prune() {
	now := time.Now()
	for token, s := range m.sessions {
		if s.expires.Before(now) {
			delete(m.sessions, token)
		}
	}
}

func (m *sessionManager) get(token string) (session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok || s.expires.Before(time.Now()) {
		return session{}, false
	}
	return *s, true
}

func (m *sessionManager) delete(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func (m *sessionManager) addFlash(token string, level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return
	}
	s.flashes = append(s.flashes, Flash{Level: level, Message: message})
}

// takeFlashes drains the pending flashes of a session.
func (m *sessionManager) takeFlashes(token string) []Flash {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok || len(s.flashes) == 0 {
		return nil
	}
	flashes := s.flashes
	s.flashes = nil
	return flashes
}
