// Package gormstorage implements the storage.Backend interface on any GORM
// dialector. Records are queued and written in batches by a background
// writer; sessions are inserted synchronously so their ID can stamp rows.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teammap/teammap/internal/database"
	"github.com/teammap/teammap/internal/model"
	"github.com/teammap/teammap/internal/model/convert"
	"github.com/teammap/teammap/internal/queue"
	"github.com/teammap/teammap/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultFlushInterval is how often queued records are written.
const DefaultFlushInterval = 2 * time.Second

// ErrNoDatabase is returned when the backend has no connection.
var ErrNoDatabase = errors.New("gorm storage: no database")

// Dependencies holds the collaborators of the backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

type queues struct {
	Selections      *queue.Queue[model.Selection]
	Classifications *queue.Queue[model.Classification]
	Overlays        *queue.Queue[model.OverlaySnapshot]
}

// Backend writes the journal through GORM.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Uint64
	started   atomic.Bool

	writeMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps: deps,
		queues: &queues{
			Selections:      queue.New[model.Selection](),
			Classifications: queue.New[model.Classification](),
			Overlays:        queue.New[model.OverlaySnapshot](),
		},
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDatabase
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return err
	}
	if b.started.CompareAndSwap(false, true) {
		go b.startDBWriters()
	}
	return nil
}

// Close stops the writer and flushes what is still queued.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() {
		close(b.stopChan)
	})
	if b.deps.DB == nil {
		return nil
	}
	if b.started.Load() {
		<-b.done
	}
	return b.Flush()
}

// StartSession inserts the session row and stamps later records with its ID.
func (b *Backend) StartSession(s *core.Session) error {
	if b.deps.DB == nil {
		return ErrNoDatabase
	}
	row := convert.CoreToSession(*s)
	row.ID = 0
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	s.ID = row.ID
	b.sessionID.Store(uint64(row.ID))
	b.deps.Logger.Info("Journal session started", "session_id", row.ID, "viewer_tz", s.ViewerTZ)
	return nil
}

// RecordSelection converts and queues a selection.
func (b *Backend) RecordSelection(r *core.SelectionRecord) error {
	b.queues.Selections.Push(convert.CoreToSelection(*r))
	return nil
}

// RecordClassification converts and queues a classification.
func (b *Backend) RecordClassification(r *core.ClassificationRecord) error {
	b.queues.Classifications.Push(convert.CoreToClassification(*r))
	return nil
}

// RecordOverlay converts and queues an overlay snapshot.
func (b *Backend) RecordOverlay(r *core.OverlayRecord) error {
	b.queues.Overlays.Push(convert.CoreToOverlaySnapshot(*r))
	return nil
}

// LastSelection flushes pending selections and returns the newest row.
func (b *Backend) LastSelection() (*core.SelectionRecord, error) {
	if b.deps.DB == nil {
		return nil, ErrNoDatabase
	}
	if err := b.Flush(); err != nil {
		return nil, err
	}

	var rows []model.Selection
	err := b.deps.DB.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "time"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying last selection: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	rec := convert.SelectionToCore(rows[0])
	return &rec, nil
}

// Pending returns the number of queued records.
func (b *Backend) Pending() int {
	return b.queues.Selections.Len() + b.queues.Classifications.Len() + b.queues.Overlays.Len()
}

// Flush writes every queue now. Failed batches are re-queued and their
// errors joined.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return ErrNoDatabase
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	sessionID := uint(b.sessionID.Load())
	log := b.deps.Logger

	errs := []error{
		writeQueue(b.deps.DB, b.queues.Selections, "selections", log, func(items []model.Selection) {
			for i := range items {
				items[i].SessionID = sessionID
			}
		}),
		writeQueue(b.deps.DB, b.queues.Classifications, "classifications", log, func(items []model.Classification) {
			for i := range items {
				items[i].SessionID = sessionID
			}
		}),
		writeQueue(b.deps.DB, b.queues.Overlays, "overlay snapshots", log, func(items []model.OverlaySnapshot) {
			for i := range items {
				items[i].SessionID = sessionID
			}
		}),
	}
	return errors.Join(errs...)
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T)) error {
	if q.Empty() {
		return nil
	}

	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		tx.Rollback()
		q.Requeue(items...)
		log.Error("Error writing journal batch", "table", name, "count", len(items), "error", err)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items...)
		return fmt.Errorf("committing %s: %w", name, err)
	}
	log.Debug("Wrote journal batch", "table", name, "count", len(items))
	return nil
}

// startDBWriters periodically drains the queues until Close.
func (b *Backend) startDBWriters() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}
