// internal/storage/memory/memory.go
package memory

import (
	"log/slog"
	"sync"

	"github.com/teammap/teammap/internal/config"
	"github.com/teammap/teammap/pkg/core"
)

// Backend keeps the session journal in memory and exports it to JSON on Close
type Backend struct {
	cfg    config.MemoryConfig
	logger *slog.Logger

	session         *core.Session
	selections      []core.SelectionRecord
	classifications []core.ClassificationRecord
	overlays        []core.OverlayRecord

	// newest selection found in a previous export
	previous *core.SelectionRecord

	exportPath string
	idCounter  uint
	mu         sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:    cfg,
		logger: logger,
	}
}

// Init loads the newest previous export so its last selection can be
// restored.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	prev, path, err := loadLatestExport(b.cfg.OutputDir)
	if err != nil {
		b.logger.Warn("Could not read previous journal export", "dir", b.cfg.OutputDir, "error", err)
		return nil
	}
	if prev == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(prev.Selections); n > 0 {
		last := prev.Selections[n-1]
		b.previous = &last
	}
	if prev.Session.ID > b.idCounter {
		b.idCounter = prev.Session.ID
	}
	b.logger.Debug("Loaded previous journal export", "path", path, "selections", len(prev.Selections))
	return nil
}

// Close exports the session
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil || b.cfg.OutputDir == "" {
		return nil
	}
	path, err := b.exportJSON()
	if err != nil {
		return err
	}
	b.exportPath = path
	b.logger.Info("Journal exported", "path", path)
	return nil
}

// StartSession begins a new journal session
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter

	session := *s
	b.session = &session
	b.selections = nil
	b.classifications = nil
	b.overlays = nil
	return nil
}

// RecordSelection appends a selection record
func (b *Backend) RecordSelection(r *core.SelectionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selections = append(b.selections, *r)
	return nil
}

// RecordClassification appends a classification record
func (b *Backend) RecordClassification(r *core.ClassificationRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := *r
	rec.Statuses = make(map[string]core.MarkerState, len(r.Statuses))
	for id, st := range r.Statuses {
		rec.Statuses[id] = st
	}
	rec.HighlightedTimezones = append([]string(nil), r.HighlightedTimezones...)
	b.classifications = append(b.classifications, rec)
	return nil
}

// RecordOverlay appends an overlay snapshot
func (b *Backend) RecordOverlay(r *core.OverlayRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overlays = append(b.overlays, *r)
	return nil
}

// LastSelection returns the newest selection of this session, falling
// back to the previous export's.
func (b *Backend) LastSelection() (*core.SelectionRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n := len(b.selections); n > 0 {
		last := b.selections[n-1]
		return &last, nil
	}
	if b.previous != nil {
		last := *b.previous
		return &last, nil
	}
	return nil, nil
}

// ExportedFilePath returns the path written by the last Close.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exportPath
}

// Counts returns the number of records held for the current session.
func (b *Backend) Counts() (selections, classifications, overlays int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.selections), len(b.classifications), len(b.overlays)
}
