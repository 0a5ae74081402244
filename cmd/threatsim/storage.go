package main

import (
	"fmt"

	"github.com/OCAP2/awareness/internal/config"
	"github.com/OCAP2/awareness/internal/influx"
	"github.com/OCAP2/awareness/internal/storage"
	influxstorage "github.com/OCAP2/awareness/internal/storage/influx"
	"github.com/OCAP2/awareness/internal/storage/memory"
	pgstorage "github.com/OCAP2/awareness/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/awareness/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// createStorageBackend builds the configured trace backend. Influx, when
// enabled, receives every trace next to it.
func createStorageBackend(cfg config.StorageConfig, log zerolog.Logger) (storage.Backend, error) {
	var backend storage.Backend
	switch cfg.Type {
	case "postgres":
		Logger.Info("Postgres storage backend selected", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		backend = pgstorage.New(cfg.Postgres, log)

	case "sqlite":
		Logger.Info("SQLite storage backend selected", "path", cfg.SQLite.Path)
		backend = sqlitestorage.New(cfg.SQLite, log)

	case "memory", "":
		Logger.Info("Memory storage backend selected", "outputDir", cfg.Memory.OutputDir)
		backend = memory.New(cfg.Memory)

	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, cfg.Type)
	}

	if !cfg.Influx.Enabled {
		return backend, nil
	}
	Logger.Info("Influx trace mirror enabled", "url", cfg.Influx.URL(), "bucket", cfg.Influx.Bucket)
	return storage.Fanout{backend, influxstorage.New(influx.NewManager(cfg.Influx, log))}, nil
}

// exportable finds the backend producing a trace file, if any.
func exportable(b storage.Backend) (storage.Exportable, bool) {
	switch b := b.(type) {
	case storage.Fanout:
		return b.Exportable()
	case storage.Exportable:
		return b, true
	}
	return nil, false
}
