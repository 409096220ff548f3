package core

import (
	"context"
	"strings"
	"sync"
)

// MemoryCredentialStore keeps credentials in process memory. It backs tests
// and short-lived CLI sessions that never persist secrets.
type MemoryCredentialStore struct {
	mu      sync.RWMutex
	records map[string]CredentialRecord
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{records: make(map[string]CredentialRecord)}
}

func (s *MemoryCredentialStore) Load(_ context.Context, providerID string) (CredentialRecord, error) {
	providerID = strings.TrimSpace(providerID)
	s.mu.RLock()
	record, ok := s.records[providerID]
	s.mu.RUnlock()
	if !ok {
		return CredentialRecord{}, ErrCredentialNotFound
	}
	return record.Clone(), nil
}

func (s *MemoryCredentialStore) Save(_ context.Context, record CredentialRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.records[strings.TrimSpace(record.ProviderID)] = record.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryCredentialStore) Delete(_ context.Context, providerID string) error {
	s.mu.Lock()
	delete(s.records, strings.TrimSpace(providerID))
	s.mu.Unlock()
	return nil
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)
