package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"concierge/internal/config"
	"concierge/internal/records"
)

// ErrCorrupt marks a persisted document that exists but cannot be decoded.
var ErrCorrupt = errors.New("corrupt document")

// Store reads and writes the complete record collection.
type Store interface {
	Load(ctx context.Context) (records.Collection, error)
	Save(ctx context.Context, collection records.Collection) error
	// Location describes where documents live, for status output.
	Location() string
	Close() error
}

// Open returns the backend selected by cfg.Storage.Backend.
func Open(cfg *config.Config) (Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	switch cfg.Storage.Backend {
	case config.StorageSQLite:
		return OpenSQLite(cfg.DatabasePath())
	case config.StorageJSON, "":
		return OpenJSON(cfg.Paths.DataDir)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

// DocumentPaths lists the files the selected backend persists to.
func DocumentPaths(cfg *config.Config) []string {
	if cfg.Storage.Backend == config.StorageSQLite {
		return []string{cfg.DatabasePath()}
	}
	return []string{
		filepath.Join(cfg.Paths.DataDir, TicketsDocument),
		filepath.Join(cfg.Paths.DataDir, TasksDocument),
	}
}
