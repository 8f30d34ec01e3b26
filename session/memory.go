package session

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu     sync.RWMutex
	states map[int64]string
}

// NewMemoryStore constructs an in-memory Store implementation for tests and
// single-process development runs.
func NewMemoryStore() Store {
	return &memoryStore{states: make(map[int64]string)}
}

func (m *memoryStore) Get(_ context.Context, chatID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[chatID]
	if !ok {
		return "", ErrNotFound
	}
	return state, nil
}

func (m *memoryStore) Set(_ context.Context, chatID int64, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[chatID] = state
	return nil
}
