package storage

import "sync"

// MemoryStore is an in-process Store. It backs tests and hosts where the
// application injects its own keychain-based adapter and only needs a
// scratch store for ephemeral data.
type MemoryStore struct {
	items map[string][]byte
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string][]byte),
	}
}

// Put stores a copy of value under key
func (s *MemoryStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(value))
	copy(buf, value)
	s.items[key] = buf
	return nil
}

// Get returns a copy of the value stored under key
func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return nil, ErrKeyNotFound
	}

	buf := make([]byte, len(value))
	copy(buf, value)
	return buf, nil
}

// Delete removes the value stored under key
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}
