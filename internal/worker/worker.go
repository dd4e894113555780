package worker

import (
	"context"
	"log/slog"

	"github.com/teammap/teammap/internal/parser"
	"github.com/teammap/teammap/internal/storage"
	"github.com/teammap/teammap/pkg/core"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Target is what inbound coordinator events are applied to. Implementations
// serialize the calls with the rest of their input.
type Target interface {
	ApplyClassification(c core.Classification) core.AvailabilitySummary
	// ApplySelectionSet restores or clears the selection and returns the
	// interval now held, if any.
	ApplySelectionSet(set core.SelectionSet) (core.Interval, bool)
	ViewerTZ() string
}

// PointWriter receives metric points. *influx.Manager implements it.
type PointWriter interface {
	WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Target  Target
	Parser  *parser.Parser
	Journal storage.Backend
	Metrics PointWriter
	Logger  *slog.Logger
}

// Manager handles inbound coordinator events and journals what the
// session does with them.
type Manager struct {
	deps Dependencies
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	return &Manager{deps: deps}
}

func (m *Manager) hasJournal() bool {
	return m.deps.Journal != nil
}

func (m *Manager) writePoint(bucket string, p *influxdb2_write.Point) {
	if m.deps.Metrics == nil {
		return
	}
	if err := m.deps.Metrics.WritePoint(context.Background(), bucket, p); err != nil {
		m.deps.Logger.Warn("Failed to write metric", "bucket", bucket, "error", err)
	}
}
