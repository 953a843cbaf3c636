package bot

import (
	"sync"
	"time"

	"taskbot/internal/command"
)

// Session is the ephemeral per-owner state behind guided flows, currently
// the last structured prompt awaiting a plain-text reply.
type Session struct {
	Prompt    command.Prompt
	ExpiresAt time.Time
}

// SessionStore keeps per-owner sessions. Implementations must evict
// expired entries; the scheduling services never touch this state.
type SessionStore interface {
	Get(ownerID string) (Session, bool)
	Set(ownerID string, session Session)
	Delete(ownerID string)
}

const sessionTTL = 10 * time.Minute

// memorySessionStore is a mutex-guarded map with lazy TTL eviction.
type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemorySessionStore returns an in-process SessionStore.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{sessions: make(map[string]Session)}
}

func (s *memorySessionStore) Get(ownerID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[ownerID]
	if !ok {
		return Session{}, false
	}
	if time.Now().After(session.ExpiresAt) {
		delete(s.sessions, ownerID)
		return Session{}, false
	}
	return session, true
}

func (s *memorySessionStore) Set(ownerID string, session Session) {
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = time.Now().Add(sessionTTL)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Opportunistically drop whatever else has expired.
	now := time.Now()
	for id, existing := range s.sessions {
		if now.After(existing.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
	s.sessions[ownerID] = session
}

func (s *memorySessionStore) Delete(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, ownerID)
}
