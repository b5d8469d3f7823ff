// Package storage provides the durable key/value store shared by the
// settings and invocation-ledger components. The store holds a handful of
// opaque blobs; every write replaces the whole value for its key.
package storage

import "sync"

// Store is the minimal surface the gateway needs from durable storage.
// Implementations must make Put atomic per key.
type Store interface {
	// Get returns the stored bytes for key. The second return is false
	// when the key has never been written.
	Get(key string) ([]byte, bool, error)
	// Put overwrites the value for key.
	Put(key string, value []byte) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(key string) error
	Close() error
}

// Memory is an in-process Store used by tests and by degraded runs where
// no database path is configured.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *Memory) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error { return nil }
