package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"reelsync/internal/model"
)

const (
	snapshotFile = "snapshot.json"
	leaseFile    = "lease.json"
)

// FSStore persists snapshots as JSON files under a directory. Suitable
// for a repository checkout or a serverless instance's writable temp
// dir; callers already tolerate the file being gone on a cold instance.
type FSStore struct {
	dir string
	mu  sync.Mutex
}

// NewFSStore creates the directory if needed and returns a store
// writing into it.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// Load implements Store.
func (s *FSStore) Load(_ context.Context) (*model.Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, snapshotFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// Save implements Store. The file is written to a temp name and
// renamed so readers never observe a partial snapshot.
func (s *FSStore) Save(_ context.Context, snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return s.writeAtomic(snapshotFile, data)
}

// SaveArtifact implements Store.
func (s *FSStore) SaveArtifact(_ context.Context, name string, data []byte) error {
	return s.writeAtomic(artifactFileName(name), data)
}

// LoadArtifact implements Store.
func (s *FSStore) LoadArtifact(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, artifactFileName(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", name, err)
	}
	return data, nil
}

// AcquireLease implements Store.
func (s *FSStore) AcquireLease(_ context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	path := filepath.Join(s.dir, leaseFile)

	if data, err := os.ReadFile(path); err == nil {
		var current lease
		if err := json.Unmarshal(data, &current); err == nil {
			if !current.expired(now) && current.Token != token {
				return ErrLeaseHeld
			}
		}
	}

	data, err := json.Marshal(lease{Token: token, ExpiresAt: now.Add(ttl)})
	if err != nil {
		return err
	}
	return s.writeAtomic(leaseFile, data)
}

// ReleaseLease implements Store.
func (s *FSStore) ReleaseLease(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, leaseFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var current lease
	if err := json.Unmarshal(data, &current); err != nil || current.Token != token {
		return nil
	}
	return os.Remove(path)
}

// Close implements Store.
func (s *FSStore) Close() error { return nil }

func (s *FSStore) writeAtomic(name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", name, err)
	}
	return nil
}

// artifactFileName flattens an artifact name into a safe file name.
func artifactFileName(name string) string {
	return strings.ReplaceAll(name, string(os.PathSeparator), "_")
}
