// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"reelsync/internal/snapshot"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ServerHost string `env:"REELSYNC_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"REELSYNC_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"REELSYNC_ENV" envDefault:"development"`
	LogLevel   string `env:"REELSYNC_LOG_LEVEL" envDefault:"info"`

	// SiteURL is the public origin of the site the sitemap points at.
	SiteURL string `env:"REELSYNC_SITE_URL" envDefault:"https://example.com"`

	// Airtable configuration
	AirtableToken     string `env:"REELSYNC_AIRTABLE_TOKEN,required"`
	AirtableBaseID    string `env:"REELSYNC_AIRTABLE_BASE_ID,required"`
	ProjectsTable     string `env:"REELSYNC_TABLE_PROJECTS" envDefault:"Projects"`
	PostsTable        string `env:"REELSYNC_TABLE_POSTS" envDefault:"Posts"`
	ConfigTable       string `env:"REELSYNC_TABLE_CONFIG" envDefault:"Config"`
	AwardsTable       string `env:"REELSYNC_TABLE_AWARDS" envDefault:"Awards"`
	ClientsTable      string `env:"REELSYNC_TABLE_CLIENTS" envDefault:"Clients"`
	LastModifiedField string `env:"REELSYNC_LAST_MODIFIED_FIELD" envDefault:"Last Modified"`

	// Cloudinary configuration. Empty cloud name disables image sync;
	// the site then serves Airtable's expiring URLs directly.
	CloudinaryCloudName string `env:"REELSYNC_CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"REELSYNC_CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"REELSYNC_CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `env:"REELSYNC_CLOUDINARY_FOLDER" envDefault:"portfolio"`

	// Snapshot store configuration
	StoreBackend string `env:"REELSYNC_STORE_BACKEND" envDefault:"fs"` // memory, fs, sqlite, redis
	StoreDir     string `env:"REELSYNC_STORE_DIR" envDefault:"./data/snapshots"`
	StoreDBPath  string `env:"REELSYNC_STORE_DB_PATH" envDefault:"./data/reelsync.db"`
	RedisURL     string `env:"REELSYNC_REDIS_URL"`
	RedisPrefix  string `env:"REELSYNC_REDIS_PREFIX" envDefault:"reelsync:"`

	// Sync behavior
	TriggerToken string        `env:"REELSYNC_TRIGGER_TOKEN"` // bearer token for POST /api/sync, empty disables auth
	SyncSchedule string        `env:"REELSYNC_SYNC_SCHEDULE"` // cron expression, empty disables recurring sync
	SyncOnStart  bool          `env:"REELSYNC_SYNC_ON_START" envDefault:"true"`
	LeaseTTL     time.Duration `env:"REELSYNC_LEASE_TTL" envDefault:"5m"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// CloudinaryEnabled returns true if CDN image sync is configured.
func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// StoreConfig maps the store-related settings to a snapshot.Config.
func (c Config) StoreConfig() snapshot.Config {
	return snapshot.Config{
		Backend:    c.StoreBackend,
		Dir:        c.StoreDir,
		SQLitePath: c.StoreDBPath,
		RedisURL:   c.RedisURL,
		Prefix:     c.RedisPrefix,
	}
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	switch cfg.StoreBackend {
	case snapshot.BackendMemory, snapshot.BackendFS, snapshot.BackendSQLite:
	case snapshot.BackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REELSYNC_STORE_BACKEND=redis requires REELSYNC_REDIS_URL")
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if !strings.HasPrefix(cfg.SiteURL, "http://") && !strings.HasPrefix(cfg.SiteURL, "https://") {
		return nil, fmt.Errorf("REELSYNC_SITE_URL must be an absolute http(s) URL, got %q", cfg.SiteURL)
	}
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")

	if cfg.LeaseTTL <= 0 {
		return nil, fmt.Errorf("REELSYNC_LEASE_TTL must be positive, got %s", cfg.LeaseTTL)
	}

	return cfg, nil
}
