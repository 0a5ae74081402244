// Package gormstorage implements the storage.Backend interface using GORM
// with internal queues and a background DB writer goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/awareness/internal/database"
	"github.com/OCAP2/awareness/internal/model"
	"github.com/OCAP2/awareness/internal/model/convert"
	"github.com/OCAP2/awareness/internal/queue"
	"github.com/OCAP2/awareness/internal/storage"
	"github.com/OCAP2/awareness/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued traces are written when
// Dependencies.FlushInterval is unset.
const DefaultFlushInterval = 2 * time.Second

var errNoSession = errors.New("no session started")

// Dependencies holds all dependencies for the GORM storage backend.
// A nil DB runs the backend in queue-only mode.
type Dependencies struct {
	DB            *gorm.DB
	Logger        zerolog.Logger
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Selections *queue.Queue[model.Selection]
	Evictions  *queue.Queue[model.Eviction]
	Hurts      *queue.Queue[model.Hurt]
}

func newQueues() *queues {
	return &queues{
		Selections: queue.New[model.Selection](),
		Evictions:  queue.New[model.Eviction](),
		Hurts:      queue.New[model.Hurt](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Uint64

	writeMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

var _ storage.Backend = (*Backend)(nil)

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection, nil in queue-only mode.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init creates internal queues, runs schema migration, and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB == nil {
		close(b.done)
		return nil
	}

	if err := database.Setup(b.deps.DB, b.deps.Logger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	go b.writerLoop()
	return nil
}

// Close stops the DB writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	b.stopOnce.Do(func() { close(b.stopChan) })
	<-b.done
	return b.Flush()
}

// StartSession inserts the session row. Traces queued afterwards are stamped with its ID.
func (b *Backend) StartSession(s *core.Session) error {
	if b.deps.DB == nil {
		return nil
	}

	gormSession := convert.CoreToSession(*s)
	if err := b.deps.DB.Create(&gormSession).Error; err != nil {
		return fmt.Errorf("failed to insert new session: %w", err)
	}
	b.sessionID.Store(uint64(gormSession.ID))
	b.deps.Logger.Info().
		Str("session", s.ID.String()).
		Uint("id", gormSession.ID).
		Msg("Session started")
	return nil
}

// SessionID returns the row ID of the current session, 0 before StartSession.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

// EndSession flushes the queues and stamps the session end time.
func (b *Backend) EndSession() error {
	if b.deps.DB == nil {
		return nil
	}
	id := b.SessionID()
	if id == 0 {
		return errNoSession
	}
	if err := b.Flush(); err != nil {
		return err
	}
	if err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).Update("ended_at", time.Now()).Error; err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// RecordSelection converts and queues a selection trace.
func (b *Backend) RecordSelection(t *core.SelectionTrace) error {
	gormObj, err := convert.CoreToSelection(*t)
	if err != nil {
		return err
	}
	b.queues.Selections.Push(gormObj)
	return nil
}

// RecordEviction converts and queues an eviction trace.
func (b *Backend) RecordEviction(t *core.EvictionTrace) error {
	b.queues.Evictions.Push(convert.CoreToEviction(*t))
	return nil
}

// RecordHurt converts and queues a hurt trace.
func (b *Backend) RecordHurt(t *core.HurtTrace) error {
	b.queues.Hurts.Push(convert.CoreToHurt(*t))
	return nil
}

// Flush writes every queue to the database now. Failed batches are requeued
// and reported in the returned error.
func (b *Backend) Flush() error {
	if b.deps.DB == nil || b.queues == nil {
		return nil
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	sessionID := b.SessionID()
	log := b.deps.Logger

	return errors.Join(
		writeQueue(b.deps.DB, b.queues.Selections, "selections", log, func(items []model.Selection) {
			for i := range items {
				items[i].SessionID = sessionID
			}
		}),
		writeQueue(b.deps.DB, b.queues.Evictions, "evictions", log, func(items []model.Eviction) {
			for i := range items {
				items[i].SessionID = sessionID
			}
		}),
		writeQueue(b.deps.DB, b.queues.Hurts, "hurts", log, func(items []model.Hurt) {
			for i := range items {
				items[i].SessionID = sessionID
			}
		}),
	)
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log zerolog.Logger, prepare func([]T)) error {
	if q.Len() == 0 {
		return nil
	}

	items := q.Drain()
	if prepare != nil {
		prepare(items)
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error().Err(err).Str("table", name).Int("rows", len(items)).Msg("Error writing batch")
		tx.Rollback()
		q.Push(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Push(items...)
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}

	log.Debug().Str("table", name).Int("rows", len(items)).Msg("Batch written")
	return nil
}

// writerLoop periodically drains the queues into the DB until Close.
func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if b.SessionID() == 0 {
				continue
			}
			_ = b.Flush()
		}
	}
}
