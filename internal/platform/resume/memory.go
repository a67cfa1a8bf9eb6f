package resume

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore provides an in-memory implementation useful for testing and local development.
type MemoryStore struct {
	mu      sync.Mutex
	signals map[string]Signal
}

// NewMemoryStore constructs an empty memory-backed resume store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{signals: make(map[string]Signal)}
}

// Set implements the Store interface.
func (s *MemoryStore) Set(_ context.Context, signal Signal) error {
	if strings.TrimSpace(signal.SessionID) == "" {
		return ErrSessionRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[sessionKey(signal.SessionID)] = signal
	return nil
}

// Consume implements the Store interface.
func (s *MemoryStore) Consume(_ context.Context, sessionID string, now time.Time) (Signal, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Signal{}, false, ErrSessionRequired
	}
	now = now.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(sessionID)
	signal, ok := s.signals[key]
	if !ok {
		return Signal{}, false, nil
	}
	delete(s.signals, key)
	if signal.Expired(now) {
		return Signal{}, false, nil
	}
	return signal, true, nil
}
