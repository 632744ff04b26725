package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback used when Redis is unreachable
// at startup.  Sessions do not survive a restart and are not shared
// between instances.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]Session
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Session), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.ID] = s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if !m.now().Before(s.ExpiresAt) {
		delete(m.data, id)
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}
