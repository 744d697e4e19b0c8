// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"reelsync/internal/airtable"
	"reelsync/internal/cloudinary"
	"reelsync/internal/config"
	"reelsync/internal/handler"
	"reelsync/internal/scheduler"
	"reelsync/internal/snapshot"
	syncpkg "reelsync/internal/sync"
	"reelsync/internal/transform"
	"reelsync/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("starting reelsync", "version", versionInfo.String(), "env", cfg.Env)

	store, err := snapshot.New(cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("initializing snapshot store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("error closing snapshot store", "error", err)
		}
	}()
	slog.Info("snapshot store ready", "backend", cfg.StoreBackend)

	tables := syncpkg.TableSet{
		Projects: cfg.ProjectsTable,
		Posts:    cfg.PostsTable,
		Config:   cfg.ConfigTable,
		Awards:   cfg.AwardsTable,
		Clients:  cfg.ClientsTable,
	}

	client := airtable.New(airtable.Options{
		BaseID:            cfg.AirtableBaseID,
		Token:             cfg.AirtableToken,
		LastModifiedField: cfg.LastModifiedField,
		OptionalTables:    tables.Optional(),
		Logger:            logger,
	})

	var uploader cloudinary.Uploader
	if cfg.CloudinaryEnabled() {
		uploader = cloudinary.New(cloudinary.Options{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
			Logger:    logger,
		})
		slog.Info("image sync enabled", "cloud", cfg.CloudinaryCloudName, "folder", cfg.CloudinaryFolder)
	} else {
		slog.Warn("image sync disabled, serving source image URLs")
	}

	orchestrator := syncpkg.NewOrchestrator(syncpkg.Options{
		Client:     client,
		Store:      store,
		Uploader:   uploader,
		Thumbnails: transform.NewVideoThumbnails(transform.ThumbnailOptions{Logger: logger}),
		Tables:     tables,
		SiteURL:    cfg.SiteURL,
		LeaseTTL:   cfg.LeaseTTL,
		Logger:     logger,
	})

	h := handler.New(handler.Options{
		Store:        store,
		Runner:       orchestrator,
		TriggerToken: cfg.TriggerToken,
		Version:      versionInfo.String(),
		Logger:       logger,
	})

	sched := scheduler.New(scheduler.Options{
		Schedule: cfg.SyncSchedule,
		Runner:   orchestrator,
		OnResult: h.RecordResult,
		Logger:   logger,
	})
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	if cfg.SyncOnStart {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			res, err := orchestrator.Run(ctx, false)
			if err != nil {
				slog.Error("startup sync failed", "error", err)
				return
			}
			h.RecordResult(res)
		}()
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           h.Routes(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// setupLogger builds the process logger: JSON in production, text in
// development, level from config.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
