// Package postgres implements the storage.Backend interface on PostgreSQL.
// It connects and prepares the schema, then delegates the queued writes to
// the embedded GORM backend.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/internal/database"
	gormstorage "github.com/tandemdrive/tandem/internal/storage/gorm"
)

// Backend wraps the GORM backend with a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	cfg config.DBConfig
	log *slog.Logger
}

// New creates a Postgres backend. The connection is opened by Init.
func New(cfg config.DBConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{Logger: logger}),
		cfg:     cfg,
		log:     logger,
	}
}

// Init connects, enables PostGIS when the server has it, migrates the
// schema and starts the writer.
func (b *Backend) Init() error {
	db, err := database.GetPostgresDB(b.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	if err := database.EnablePostGIS(db); err != nil {
		b.log.Warn("PostGIS unavailable, storing positions as plain WKB", "error", err)
	} else {
		b.log.Info("PostGIS extension ready")
	}

	b.SetDB(db)
	b.log.Info("Connected to database", "host", b.cfg.Host, "database", b.cfg.Database)
	return b.Backend.Init()
}
