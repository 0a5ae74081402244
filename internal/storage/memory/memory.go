// Package memory keeps session traces in memory and exports them as JSON
// when the session ends.
package memory

import (
	"errors"
	"sync"

	"github.com/OCAP2/awareness/internal/config"
	"github.com/OCAP2/awareness/internal/storage"
	"github.com/OCAP2/awareness/pkg/core"
)

var errNoSession = errors.New("no session started")

// Backend stores session traces in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	selections []core.SelectionTrace
	evictions  []core.EvictionTrace
	hurts      []core.HurtTrace

	lastExportPath string
	lastExportMeta storage.ExportMetadata
	mu             sync.RWMutex
}

var (
	_ storage.Backend    = (*Backend)(nil)
	_ storage.Exportable = (*Backend)(nil)
)

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

func (b *Backend) Init() error  { return nil }
func (b *Backend) Close() error { return nil }

// StartSession begins recording a new session and drops anything recorded before.
func (b *Backend) StartSession(session *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = session
	b.selections = nil
	b.evictions = nil
	b.hurts = nil
	b.lastExportPath = ""
	b.lastExportMeta = storage.ExportMetadata{}
	return nil
}

// EndSession finalizes and exports the session traces
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return errNoSession
	}
	return b.exportJSON()
}

func (b *Backend) RecordSelection(t *core.SelectionTrace) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := *t
	rec.Active = append([]core.EntityID(nil), t.Active...)
	rec.Scores = append([]float64(nil), t.Scores...)
	b.selections = append(b.selections, rec)
	return nil
}

func (b *Backend) RecordEviction(t *core.EvictionTrace) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evictions = append(b.evictions, *t)
	return nil
}

func (b *Backend) RecordHurt(t *core.HurtTrace) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hurts = append(b.hurts, *t)
	return nil
}

// GetExportedFilePath returns the file written by the last EndSession.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata summarizes the last exported session.
func (b *Backend) GetExportMetadata() storage.ExportMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMeta
}
