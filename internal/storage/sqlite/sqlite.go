// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend. The only SQLite-specific concerns are creating the
// in-memory DB and dumping it to disk.
package sqlitestorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/awareness/internal/config"
	"github.com/OCAP2/awareness/internal/database"
	"github.com/OCAP2/awareness/internal/storage"
	gormstorage "github.com/OCAP2/awareness/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg      config.SQLiteConfig
	manager  *database.Manager
	log      zerolog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

var (
	_ storage.Backend    = (*Backend)(nil)
	_ storage.Exportable = (*Backend)(nil)
)

// New creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, log zerolog.Logger) *Backend {
	manager := database.NewManager(log)
	manager.SqliteFilePath = cfg.Path
	return &Backend{
		cfg:     cfg,
		manager: manager,
		log:     log,
	}
}

// Init opens the in-memory DB, initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.manager.ConnectSqlite(""); err != nil {
		return err
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:     b.manager.DB,
		Logger: b.log,
	})
	if err := b.Backend.Init(); err != nil {
		b.manager.Close()
		b.Backend = nil
		return fmt.Errorf("failed to init sqlite backend: %w", err)
	}

	b.stopChan = make(chan struct{})
	if b.cfg.Path != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// EndSession flushes the session and writes a final dump.
func (b *Backend) EndSession() error {
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	if b.cfg.Path == "" {
		return nil
	}
	return b.manager.DumpMemoryToDisk()
}

// Close stops the dump goroutine, flushes the embedded GORM backend and drops the in-memory DB.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
		b.stopChan = nil
	}
	var err error
	if b.Backend != nil {
		err = b.Backend.Close()
	}
	if cerr := b.manager.Close(); err == nil {
		err = cerr
	}
	return err
}

// GetExportedFilePath returns the dump file, empty when the DB is memory only.
func (b *Backend) GetExportedFilePath() string {
	return b.cfg.Path
}

// GetExportMetadata counts the rows of the current session.
func (b *Backend) GetExportMetadata() storage.ExportMetadata {
	var meta storage.ExportMetadata
	if b.Backend == nil || b.SessionID() == 0 {
		return meta
	}
	db := b.DB()
	id := b.SessionID()

	var row struct {
		Name     string
		Scenario string
	}
	db.Table("sessions").Select("name, scenario").Where("id = ?", id).Scan(&row)
	meta.SessionName = row.Name
	meta.Scenario = row.Scenario

	var n int64
	db.Table("selections").Where("session_id = ?", id).Count(&n)
	meta.Selections = int(n)
	db.Table("evictions").Where("session_id = ?", id).Count(&n)
	meta.Evictions = int(n)
	db.Table("hurts").Where("session_id = ?", id).Count(&n)
	meta.Hurts = int(n)

	var maxTime int64
	db.Table("selections").Where("session_id = ?", id).Select("COALESCE(MAX(sim_time), 0)").Scan(&maxTime)
	meta.Duration = float64(maxTime) / 1000
	return meta
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.manager.DumpMemoryToDisk(); err != nil {
				b.log.Error().Err(err).Msg("Error dumping to disk")
			}
		}
	}
}
