package model

import (
	"context"
	"sync"
)

// StaticSession replays canned outputs for every Run call. It backs tests
// and offline pipeline dry runs where no inference service is available.
type StaticSession struct {
	outputs [][]Tensor
	err     error

	mu     sync.Mutex
	ready  bool
	closed bool
	calls  int
}

// NewStaticSession creates a session that returns the given output sets in
// order, repeating the final set once the sequence is exhausted.
func NewStaticSession(outputs ...[]Tensor) *StaticSession {
	return &StaticSession{outputs: outputs}
}

// Fail makes every Run return err instead of canned outputs.
func (s *StaticSession) Fail(err error) *StaticSession {
	s.err = err
	return s
}

func (s *StaticSession) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.ready = true
	return nil
}

func (s *StaticSession) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready && !s.closed
}

func (s *StaticSession) Run(ctx context.Context, input Tensor) ([]Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if !s.ready {
		return nil, ErrNotInitialized
	}
	if s.err != nil {
		return nil, s.err
	}
	if len(s.outputs) == 0 {
		return nil, nil
	}

	idx := s.calls
	if idx >= len(s.outputs) {
		idx = len(s.outputs) - 1
	}
	s.calls++
	return s.outputs[idx], nil
}

// Calls returns how many Run invocations the session has served.
func (s *StaticSession) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *StaticSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.ready = false
	return nil
}

var _ Session = (*StaticSession)(nil)
