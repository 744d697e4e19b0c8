package snapshot

import (
	"fmt"
)

// Backend identifiers accepted by New.
const (
	BackendMemory = "memory"
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and configures a snapshot store backend.
type Config struct {
	// Backend is one of the Backend* constants. Empty means memory.
	Backend string
	// Dir is the data directory for the fs backend.
	Dir string
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string
	// RedisURL is the connection URL for the redis backend.
	RedisURL string
	// Prefix is the key prefix for the redis backend.
	Prefix string
}

// New creates the store described by cfg.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFS:
		return NewFSStore(cfg.Dir)
	case BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case BackendRedis:
		return NewRedisStore(RedisStoreOptions{URL: cfg.RedisURL, Prefix: cfg.Prefix})
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}
