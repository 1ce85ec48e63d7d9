package storage

import (
	"fmt"
	"log/slog"

	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/internal/storage/memory"
	pgstorage "github.com/tandemdrive/tandem/internal/storage/postgres"
	sqlitestorage "github.com/tandemdrive/tandem/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration. The
// returned backend still needs Init.
func NewBackend(cfg config.Config, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Storage.Type {
	case "postgres":
		return pgstorage.New(cfg.DB, logger.With("component", "storage.postgres")), nil

	case "sqlite":
		backend, err := sqlitestorage.New(cfg.Storage.SQLite, logger.With("component", "storage.sqlite"))
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, nil

	case "memory", "":
		return memory.New(cfg.Storage.Memory), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Storage.Type)
	}
}
