package storage

import (
	"context"
	"sync"

	"github.com/developingchet/counterd/internal/counter"
)

var _ Store = (*MemStore)(nil)

// MemStore is the in-memory Store: one mutex over the whole map.
type MemStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{counters: make(map[string]int64)}
}

func (m *MemStore) Create(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.counters[name]; ok {
		return 0, counter.ErrConflict
	}
	m.counters[name] = 0
	return 0, nil
}

func (m *MemStore) Increment(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.counters[name]
	if !ok {
		return 0, counter.ErrNotFound
	}
	v++
	m.counters[name] = v
	return v, nil
}

func (m *MemStore) Get(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.counters[name]
	if !ok {
		return 0, counter.ErrNotFound
	}
	return v, nil
}

func (m *MemStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.counters[name]; !ok {
		return counter.ErrNotFound
	}
	delete(m.counters, name)
	return nil
}

func (m *MemStore) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters), nil
}

// Ping always succeeds for the in-memory store.
func (m *MemStore) Ping(context.Context) error { return nil }

func (m *MemStore) DBPath() string { return "" }

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error { return nil }
