package session

import (
	"errors"
	"sync"
	"time"

	"github.com/efiling-portal/backend/internal/logging"
	"github.com/google/uuid"
)

// DefaultMaxSessions limits concurrently open upload sessions
const DefaultMaxSessions = 100

// ErrTooManySessions is returned when the cap is reached and nothing can be evicted.
var ErrTooManySessions = errors.New("too many open upload sessions")

var logger = logging.New("session")

// Manager keeps track of open upload sessions.
type Manager struct {
	sessions    map[string]*Session
	mu          sync.RWMutex
	maxSessions int
}

// NewManager creates a session manager. maxSessions <= 0 selects DefaultMaxSessions.
func NewManager(maxSessions int) *Manager {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
	}
}

// Create opens a new, empty session. When the cap is reached the least recently
// used session that is not submitting is closed to make room.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxSessions {
		if !m.evictOldestLocked() {
			return nil, ErrTooManySessions
		}
	}

	s := New(uuid.New().String())
	m.sessions[s.ID] = s
	logger.Infof("[Session %s] Opened", logging.ShortID(s.ID))
	return s, nil
}

func (m *Manager) evictOldestLocked() bool {
	var oldest *Session
	var oldestAt time.Time
	for _, s := range m.sessions {
		at, submitting := s.idleSince()
		if submitting {
			continue
		}
		if oldest == nil || at.Before(oldestAt) {
			oldest, oldestAt = s, at
		}
	}
	if oldest == nil {
		return false
	}

	delete(m.sessions, oldest.ID)
	oldest.Close()
	logger.Warnf("[Session %s] Evicted to stay under %d open sessions", logging.ShortID(oldest.ID), m.maxSessions)
	return true
}

// Get returns a session by ID and marks it as accessed.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if ok {
		s.touch()
	}
	return s, ok
}

// Touch marks a session as accessed so cleanup leaves it alone.
func (m *Manager) Touch(id string) bool {
	_, ok := m.Get(id)
	return ok
}

// Close removes a session and aborts its in-flight uploads.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	logger.Infof("[Session %s] Closed", logging.ShortID(id))
	return true
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupOldSessions closes sessions not accessed within maxAge. Sessions with a
// submission in flight are kept. It returns how many sessions were closed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		at, submitting := s.idleSince()
		if submitting || !at.Before(cutoff) {
			continue
		}
		delete(m.sessions, id)
		stale = append(stale, s)
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		logger.Infof("[Session %s] Cleaned up idle session (created %s ago)",
			logging.ShortID(s.ID), time.Since(s.CreatedAt).Round(time.Second))
	}
	return len(stale)
}

// CloseAll closes every session, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
