package exportqueue

import (
	"sync"

	"github.com/boothy-app/camera-core/internal/sessionmeta"
)

// SingleSession is the simplest ActiveSession: exactly one session is
// open at a time, swapped atomically when the host opens or closes one.
type SingleSession struct {
	mu      sync.Mutex
	rawDir  string
	handle  string
	meta    *sessionmeta.Store
	isOpen  bool
}

// NewSingleSession returns a resolver with no session open.
func NewSingleSession() *SingleSession {
	return &SingleSession{}
}

// Open registers rawDir as the active session's raw photo directory.
func (s *SingleSession) Open(handle, rawDir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = handle
	s.rawDir = rawDir
	s.meta = sessionmeta.New(rawDir)
	s.isOpen = true
}

// Close clears the active session.
func (s *SingleSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = false
	s.rawDir = ""
	s.handle = ""
	s.meta = nil
}

// RawDir implements ActiveSession.
func (s *SingleSession) RawDir() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rawDir, s.isOpen
}

// Metadata implements ActiveSession.
func (s *SingleSession) Metadata() *sessionmeta.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// SessionHandle implements ActiveSession.
func (s *SingleSession) SessionHandle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}
