package store

import "sync"

// MemoryStore is a Cache that lives only for the process. It backs tests
// and hosts without persistent storage.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string

	// FailWrites makes Set and Delete return this error when non-nil.
	FailWrites error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get implements Cache.
func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Cache.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.values[key] = value
	return nil
}

// Delete implements Cache.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	delete(m.values, key)
	return nil
}

// Close implements Cache.
func (m *MemoryStore) Close() error { return nil }

var _ Cache = (*MemoryStore)(nil)
