// Package session tracks the lifecycle of a single merge run. Each run
// gets a unique identifier used to isolate its staging directory, and a
// pair of flags that coordinate cooperative cancellation between the
// CLI signal handler and the merge pipeline.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Session identifies one merge run and carries its cancellation state.
// All methods are safe for concurrent use.
type Session struct {
	id string

	mu         sync.Mutex
	processing bool
	cancelled  bool
}

// New returns a fresh idle session with a unique identifier.
func New() *Session {
	return &Session{id: uuid.NewString()}
}

// ID returns the session identifier. It never changes after New.
func (s *Session) ID() string {
	return s.id
}

// IsProcessing reports whether a merge is currently running under this
// session.
func (s *Session) IsProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// IsCancelled reports whether cancellation has been requested.
func (s *Session) IsCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// SetProcessing marks the session as running or idle.
func (s *Session) SetProcessing(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = active
}

// Cancel requests cancellation if a merge is running. It returns false
// when the session is idle, in which case the flag is left untouched.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.processing {
		return false
	}
	s.cancelled = true
	return true
}

// Reset clears both flags so the session can host another run. The
// identifier is preserved.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false
	s.cancelled = false
}
