package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"reelsync/internal/model"
)

const (
	blobSnapshot       = "snapshot"
	blobArtifactPrefix = "artifact:"
	blobLease          = "lease"
)

// SQLiteStore keeps snapshots and artifacts as rows in a single blob
// table. This is the durable single-file variant; one database, no
// migration tooling.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and initializes) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	schema := `CREATE TABLE IF NOT EXISTS blobs (
		name       TEXT PRIMARY KEY,
		data       BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating blobs table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) (*model.Snapshot, error) {
	data, err := s.get(ctx, blobSnapshot)
	if err != nil {
		return nil, err
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return s.put(ctx, blobSnapshot, data)
}

// SaveArtifact implements Store.
func (s *SQLiteStore) SaveArtifact(ctx context.Context, name string, data []byte) error {
	return s.put(ctx, blobArtifactPrefix+name, data)
}

// LoadArtifact implements Store.
func (s *SQLiteStore) LoadArtifact(ctx context.Context, name string) ([]byte, error) {
	return s.get(ctx, blobArtifactPrefix+name)
}

// AcquireLease implements Store. The check and write run inside one
// transaction; SQLite's locking makes the pair atomic across processes.
func (s *SQLiteStore) AcquireLease(ctx context.Context, token string, ttl time.Duration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	var data []byte
	err = tx.QueryRowContext(ctx, "SELECT data FROM blobs WHERE name = ?", blobLease).Scan(&data)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err == nil {
		var current lease
		if err := json.Unmarshal(data, &current); err == nil {
			if !current.expired(now) && current.Token != token {
				return ErrLeaseHeld
			}
		}
	}

	next, err := json.Marshal(lease{Token: token, ExpiresAt: now.Add(ttl)})
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO blobs (name, data, updated_at) VALUES (?, ?, ?) ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at",
		blobLease, next, now)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ReleaseLease implements Store.
func (s *SQLiteStore) ReleaseLease(ctx context.Context, token string) error {
	data, err := s.get(ctx, blobLease)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var current lease
	if err := json.Unmarshal(data, &current); err != nil || current.Token != token {
		return nil
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM blobs WHERE name = ?", blobLease)
	return err
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) get(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

func (s *SQLiteStore) put(ctx context.Context, name string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO blobs (name, data, updated_at) VALUES (?, ?, ?) ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at",
		name, data, time.Now())
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
