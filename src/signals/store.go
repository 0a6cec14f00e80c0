package signals

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"tradesense/src/model"
)

// Store holds the latest ticket per session. Each consumer gets its own
// session-scoped slot; there is deliberately no process-global "latest signal"
// shared across tenants.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	maxAge   time.Duration
	now      func() time.Time
}

type sessionEntry struct {
	ticket    model.SignalTicket
	touchedAt time.Time
}

func NewStore(config Config) *Store {
	return &Store{
		sessions: make(map[string]sessionEntry),
		maxAge:   config.SessionMaxAge,
		now:      time.Now,
	}
}

// NewSession registers a fresh session and returns its id.
func (s *Store) NewSession() string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	s.sessions[id] = sessionEntry{touchedAt: s.now()}
	return id
}

// Put records the session's latest ticket.
func (s *Store) Put(sessionID string, ticket model.SignalTicket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	s.sessions[sessionID] = sessionEntry{ticket: ticket, touchedAt: s.now()}
}

// Latest returns the session's latest ticket. The second return value is false
// when the session is unknown or expired.
func (s *Store) Latest(sessionID string) (model.SignalTicket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[sessionID]
	if !ok || s.now().Sub(entry.touchedAt) > s.maxAge {
		return model.SignalTicket{}, false
	}
	return entry.ticket, true
}

func (s *Store) pruneLocked() {
	cutoff := s.now().Add(-s.maxAge)
	for id, entry := range s.sessions {
		if entry.touchedAt.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
