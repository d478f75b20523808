package session

import (
	"errors"
	"sync"
	"time"

	"github.com/efiling-portal/backend/internal/models"
)

var (
	// ErrClosed is returned when mutating a session that has been closed.
	ErrClosed = errors.New("session closed")
	// ErrEmpty is returned by TakeForFiling when there is nothing to file.
	ErrEmpty = errors.New("session has no uploads")
	// ErrNotReady is returned by TakeForFiling while any upload is not successful.
	ErrNotReady = errors.New("uploads not complete")
)

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	ID         string                 `json:"id"`
	Uploads    []models.TrackedUpload `json:"uploads"`
	Metadata   models.CaseMetadata    `json:"metadata"`
	Ready      bool                   `json:"ready"`
	Submitting bool                   `json:"submitting"`
	Version    uint64                 `json:"version"`
}

// Pending counts uploads that have not reached success.
func (s Snapshot) Pending() int {
	n := 0
	for _, u := range s.Uploads {
		if u.Status != models.UploadStatusSuccess {
			n++
		}
	}
	return n
}

type entry struct {
	upload models.TrackedUpload
	abort  func()
}

// Session is one visit to the document upload screen: the tracked uploads in
// insertion order plus the case metadata. All methods are safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	order        []string
	entries      map[string]*entry
	metadata     models.CaseMetadata
	submitting   bool
	closed       bool
	version      uint64
	changed      chan struct{}
	lastAccessed time.Time
}

// New creates an empty session.
func New(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		entries:      make(map[string]*entry),
		changed:      make(chan struct{}),
		lastAccessed: now,
	}
}

// bump must be called with mu held after every visible change.
func (s *Session) bump() {
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Session) readyLocked() bool {
	if len(s.order) == 0 {
		return false
	}
	for _, id := range s.order {
		if s.entries[id].upload.Status != models.UploadStatusSuccess {
			return false
		}
	}
	return true
}

func (s *Session) snapshotLocked() Snapshot {
	uploads := make([]models.TrackedUpload, 0, len(s.order))
	for _, id := range s.order {
		uploads = append(uploads, s.entries[id].upload)
	}
	return Snapshot{
		ID:         s.ID,
		Uploads:    uploads,
		Metadata:   s.metadata,
		Ready:      s.readyLocked(),
		Submitting: s.submitting,
		Version:    s.version,
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Watch returns the current state and a channel that is closed on the next change.
func (s *Session) Watch() (Snapshot, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), s.changed
}

// Ready reports batch readiness: at least one upload and every upload successful.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyLocked()
}

// Len returns the number of tracked uploads.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Get returns a copy of one upload.
func (s *Session) Get(id string) (models.TrackedUpload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return models.TrackedUpload{}, false
	}
	return e.upload, true
}

// Metadata returns the stored case metadata.
func (s *Session) Metadata() models.CaseMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata
}

// SetMetadata replaces the case metadata.
func (s *Session) SetMetadata(m models.CaseMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.metadata = m
	s.bump()
	return nil
}

// Add appends an upload. abort is called if the upload is later removed or the
// session is closed.
func (s *Session) Add(u models.TrackedUpload, abort func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.order = append(s.order, u.ID)
	s.entries[u.ID] = &entry{upload: u, abort: abort}
	s.bump()
	return nil
}

// Update applies fn to the upload if it still exists. fn runs under the session
// lock, so everything it changes becomes visible at once. It returns false when the
// upload is gone; fn returning false means nothing changed.
func (s *Session) Update(id string, fn func(u *models.TrackedUpload) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return false
	}
	if fn(&e.upload) {
		s.bump()
	}
	return true
}

// Remove deletes an upload and aborts its work. It reports whether the ID existed.
func (s *Session) Remove(id string) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.entries, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.bump()
	s.mu.Unlock()

	if e.abort != nil {
		e.abort()
	}
	return true
}

// BeginSubmit marks a submission in flight. It returns false if one already is.
func (s *Session) BeginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting || s.closed {
		return false
	}
	s.submitting = true
	s.bump()
	return true
}

// EndSubmit clears the in-flight marker.
func (s *Session) EndSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		s.submitting = false
		s.bump()
	}
}

// TakeForFiling atomically checks readiness and, if ready, clears every upload and
// the metadata, returning what was filed. Filed uploads are not aborted.
func (s *Session) TakeForFiling() ([]models.TrackedUpload, models.CaseMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, models.CaseMetadata{}, ErrClosed
	}
	if len(s.order) == 0 {
		return nil, models.CaseMetadata{}, ErrEmpty
	}
	if !s.readyLocked() {
		return nil, models.CaseMetadata{}, ErrNotReady
	}

	filed := make([]models.TrackedUpload, 0, len(s.order))
	for _, id := range s.order {
		filed = append(filed, s.entries[id].upload)
	}
	meta := s.metadata

	s.order = nil
	s.entries = make(map[string]*entry)
	s.metadata = models.CaseMetadata{}
	s.bump()

	return filed, meta, nil
}

// Close aborts every upload and rejects further changes.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	entries := s.entries
	s.order = nil
	s.entries = make(map[string]*entry)
	s.bump()
	s.mu.Unlock()

	for _, e := range entries {
		if e.abort != nil {
			e.abort()
		}
	}
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastAccessed = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed, s.submitting
}
