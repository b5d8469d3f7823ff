// Package settings holds the runtime-mutable gateway configuration that
// survives restarts: today, the configured contract identifier. An empty
// contract id puts the gateway in degraded mode: invocations are rejected
// and the synchronizer idles.
package settings

import (
	"strings"
	"sync"

	"fundflow/storage"
)

const contractIDKey = "contract_id"

// Settings wraps the injected durable store with an in-memory cache so
// reads never touch storage.
type Settings struct {
	store storage.Store

	mu         sync.RWMutex
	contractID string
}

// New loads the persisted contract identifier from the store.
func New(store storage.Store) (*Settings, error) {
	s := &Settings{store: store}
	raw, found, err := store.Get(contractIDKey)
	if err != nil {
		return nil, err
	}
	if found {
		s.contractID = strings.TrimSpace(string(raw))
	}
	return s, nil
}

// ContractID returns the configured contract identifier, or "" when the
// gateway is unconfigured.
func (s *Settings) ContractID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contractID
}

// SetContractID persists a new contract identifier. An empty value clears
// the configuration.
func (s *Settings) SetContractID(id string) error {
	trimmed := strings.TrimSpace(id)
	if err := s.store.Put(contractIDKey, []byte(trimmed)); err != nil {
		return err
	}
	s.mu.Lock()
	s.contractID = trimmed
	s.mu.Unlock()
	return nil
}
