// internal/storage/storage.go
package storage

import "github.com/teammap/teammap/pkg/core"

// Backend is the interface all selection journal implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management (assigns ID to the passed pointer)
	StartSession(s *core.Session) error

	// Recording
	RecordSelection(r *core.SelectionRecord) error
	RecordClassification(r *core.ClassificationRecord) error
	RecordOverlay(r *core.OverlayRecord) error

	// LastSelection returns the newest selection record across sessions,
	// or nil when the journal holds none.
	LastSelection() (*core.SelectionRecord, error)
}

// Exportable is an optional interface for backends that write the session
// to a file on Close.
type Exportable interface {
	ExportedFilePath() string
}
