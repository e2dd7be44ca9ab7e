package pipeline

import (
	"fmt"
	"log"
	"sync"
)

// SessionFactory builds a fresh session: new model sessions, a new
// watchlist snapshot, and a zeroed decider.
type SessionFactory func() (*Session, error)

// Manager owns the lifecycle of the single monitoring session. At most one
// session runs at a time; each start builds a new one through the factory.
type Manager struct {
	mu      sync.Mutex
	factory SessionFactory
	current *Session
}

// NewManager creates a manager around the factory.
func NewManager(factory SessionFactory) *Manager {
	return &Manager{factory: factory}
}

// StartSession builds and starts a new session. Fails when one is already
// running.
func (m *Manager) StartSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.Running() {
		return fmt.Errorf("a session is already running")
	}

	sess, err := m.factory()
	if err != nil {
		return fmt.Errorf("failed to build session: %w", err)
	}
	if err := sess.Start(); err != nil {
		return err
	}
	m.current = sess
	return nil
}

// StopSession stops the running session. Stopping when idle is a no-op.
func (m *Manager) StopSession() {
	m.mu.Lock()
	sess := m.current
	m.current = nil
	m.mu.Unlock()

	if sess == nil {
		return
	}
	sess.Stop()
	log.Printf("[Manager] Session stopped (sampled %d frames)", sess.Stats().FramesSampled)
}

// Running reports whether a session is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.Running()
}

// Stats returns the current (or last) session's counters.
func (m *Manager) Stats() SessionStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return SessionStats{}
	}
	return m.current.Stats()
}
