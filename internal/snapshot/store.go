// Package snapshot persists the output of sync runs: the merged dataset,
// derived artifacts (sitemap, share-meta), and the lease that keeps
// concurrent runs from racing. Backends are pluggable; callers must
// tolerate a cold store returning ErrNotFound.
package snapshot

import (
	"context"
	"time"

	"reelsync/internal/model"
)

// Artifact names persisted alongside the snapshot.
const (
	ArtifactSitemap   = "sitemap.xml"
	ArtifactShareMeta = "share-meta.json"
)

// Store persists snapshots and derived artifacts between runs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the last saved snapshot, or ErrNotFound on a cold
	// store.
	Load(ctx context.Context) (*model.Snapshot, error)

	// Save persists a snapshot, replacing any previous one.
	Save(ctx context.Context, snap *model.Snapshot) error

	// SaveArtifact persists a derived artifact under a name.
	SaveArtifact(ctx context.Context, name string, data []byte) error

	// LoadArtifact returns a previously saved artifact, or ErrNotFound.
	LoadArtifact(ctx context.Context, name string) ([]byte, error)

	// AcquireLease claims the sync lease for token. Returns
	// ErrLeaseHeld while a different, unexpired token holds it.
	// Re-acquiring with the same token extends the lease.
	AcquireLease(ctx context.Context, token string, ttl time.Duration) error

	// ReleaseLease releases the lease if token still holds it.
	ReleaseLease(ctx context.Context, token string) error

	// Close releases any resources held by the store.
	Close() error
}

// Error represents an error type for store operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrNotFound indicates the snapshot or artifact does not exist.
	ErrNotFound Error = "snapshot: not found"

	// ErrLeaseHeld indicates another run currently holds the sync lease.
	ErrLeaseHeld Error = "snapshot: sync lease held by another run"
)

// lease is the serialized lease record shared by backends.
type lease struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (l lease) expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}
