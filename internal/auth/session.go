package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one authenticated bearer-token session.
type Session struct {
	Token     string
	Identity  Identity
	ExpiresAt time.Time
}

// SessionStore keeps sessions in memory with a fixed TTL. Tokens are
// opaque uuids; expired sessions are dropped lazily on resolve.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]Session
}

// NewSessionStore creates a store with the given session lifetime.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]Session),
	}
}

// Create registers a new session for id and returns it.
func (s *SessionStore) Create(id Identity) Session {
	sess := Session{
		Token:     uuid.NewString(),
		Identity:  id,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

// Resolve returns the identity behind token, if the session exists and
// has not expired.
func (s *SessionStore) Resolve(token string) (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return Identity{}, false
	}
	if time.Now().After(sess.ExpiresAt) {
		delete(s.sessions, token)
		return Identity{}, false
	}
	return sess.Identity, true
}

// Revoke drops the session for token, if any.
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Count returns the number of live sessions (expired ones included until
// they are resolved or revoked).
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
