package snapshot

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"reelsync/internal/model"
)

// MemoryStore is an in-process Store. State is lost on restart, which
// is the cold-instance case every caller already has to handle; it is
// the default when no durable backend is configured, and the backend of
// choice in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshot  []byte
	artifacts map[string][]byte
	lease     *lease
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{artifacts: make(map[string][]byte)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (*model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, ErrNotFound
	}
	var snap model.Snapshot
	if err := json.Unmarshal(s.snapshot, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = data
	return nil
}

// SaveArtifact implements Store.
func (s *MemoryStore) SaveArtifact(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.artifacts[name] = cp
	return nil
}

// LoadArtifact implements Store.
func (s *MemoryStore) LoadArtifact(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.artifacts[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// AcquireLease implements Store.
func (s *MemoryStore) AcquireLease(_ context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if s.lease != nil && !s.lease.expired(now) && s.lease.Token != token {
		return ErrLeaseHeld
	}
	s.lease = &lease{Token: token, ExpiresAt: now.Add(ttl)}
	return nil
}

// ReleaseLease implements Store.
func (s *MemoryStore) ReleaseLease(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lease != nil && s.lease.Token == token {
		s.lease = nil
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
