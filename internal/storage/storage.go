// Package storage defines the interface every trace backend implements.
package storage

import (
	"errors"

	"github.com/OCAP2/awareness/pkg/core"
)

// ErrUnknownBackend is returned for a storage type no backend is registered for.
var ErrUnknownBackend = errors.New("unknown storage type")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(session *core.Session) error
	EndSession() error

	// Trace recording
	RecordSelection(t *core.SelectionTrace) error
	RecordEviction(t *core.EvictionTrace) error
	RecordHurt(t *core.HurtTrace) error
}

// Exportable is an optional interface for storage backends that produce
// a trace file when the session ends.
type Exportable interface {
	GetExportedFilePath() string
	GetExportMetadata() ExportMetadata
}

// ExportMetadata summarizes an exported session.
type ExportMetadata struct {
	SessionName string
	Scenario    string
	Selections  int
	Evictions   int
	Hurts       int
	// Duration is simulated time in seconds.
	Duration float64
}
