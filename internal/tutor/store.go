package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownSession is returned by stores and the orchestrator when a
// session id does not exist or has expired.
var ErrUnknownSession = errors.New("unknown session")

// ValidationError reports malformed student input for the current phase.
// The turn fails without mutating session state; the student re-enters.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// SessionStore persists session state between turns.
type SessionStore interface {
	Get(ctx context.Context, id string) (*SessionState, error)
	Put(ctx context.Context, state *SessionState) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore is an in-process SessionStore. States are kept as JSON bytes
// so callers never share pointers with the store, matching the isolation a
// Redis-backed store provides.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*SessionState, error) {
	s.mu.RLock()
	raw, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrUnknownSession)
	}
	var state SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decoding session %q: %w", id, err)
	}
	return &state, nil
}

func (s *MemoryStore) Put(_ context.Context, state *SessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session %q: %w", state.ID, err)
	}
	s.mu.Lock()
	s.sessions[state.ID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}
