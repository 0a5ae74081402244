// Package postgres implements the storage.Backend interface on PostgreSQL/PostGIS.
// Writes go through the queued GORM backend.
package postgres

import (
	"fmt"

	"github.com/OCAP2/awareness/internal/config"
	"github.com/OCAP2/awareness/internal/database"
	"github.com/OCAP2/awareness/internal/storage"
	gormstorage "github.com/OCAP2/awareness/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend wraps the GORM backend with a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	cfg     config.PostgresConfig
	manager *database.Manager
	log     zerolog.Logger
}

var _ storage.Backend = (*Backend)(nil)

// New creates a Postgres backend. The connection is opened by Init.
func New(cfg config.PostgresConfig, log zerolog.Logger) *Backend {
	return &Backend{
		cfg:     cfg,
		manager: database.NewManager(log),
		log:     log,
	}
}

// Init connects, migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if err := b.manager.ConnectPostgres(b.cfg); err != nil {
		return err
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:     b.manager.DB,
		Logger: b.log,
	})
	if err := b.Backend.Init(); err != nil {
		b.manager.Close()
		b.Backend = nil
		return fmt.Errorf("failed to init postgres backend: %w", err)
	}
	return nil
}

// Close flushes pending traces and closes the connection.
func (b *Backend) Close() error {
	var err error
	if b.Backend != nil {
		err = b.Backend.Close()
	}
	if cerr := b.manager.Close(); err == nil {
		err = cerr
	}
	return err
}
