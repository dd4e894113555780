// Package session wires the map components into one serialized event loop.
// Pointer input, inbound coordinator events and timer callbacks all run
// under the session mutex, one at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teammap/teammap/internal/availability"
	"github.com/teammap/teammap/internal/cache"
	"github.com/teammap/teammap/internal/config"
	"github.com/teammap/teammap/internal/coordinator"
	"github.com/teammap/teammap/internal/dispatcher"
	"github.com/teammap/teammap/internal/geo"
	"github.com/teammap/teammap/internal/overlay"
	"github.com/teammap/teammap/internal/parser"
	"github.com/teammap/teammap/internal/render"
	"github.com/teammap/teammap/internal/schedule"
	"github.com/teammap/teammap/internal/scrubber"
	"github.com/teammap/teammap/internal/storage"
	"github.com/teammap/teammap/internal/tz"
	"github.com/teammap/teammap/internal/tzoverlay"
	"github.com/teammap/teammap/internal/worker"
	"github.com/teammap/teammap/pkg/core"
	"github.com/teammap/teammap/pkg/streaming"

	"github.com/peterstace/simplefeatures/geom"
)

// DefaultRestoreDelay is how long the coordinator has to send a selection
// before the journal's last one is restored.
const DefaultRestoreDelay = 2 * time.Second

// RosterSource provides the team members to place on the map.
type RosterSource interface {
	FetchRoster(ctx context.Context) ([]core.Person, error)
}

// Dependencies holds everything a Session is built from. Surface is
// required; the rest have usable defaults.
type Dependencies struct {
	Surface     render.Surface
	Clock       schedule.Clock
	Resolver    *tz.Resolver
	Coordinator config.CoordinatorConfig
	Journal     storage.Backend
	Metrics     worker.PointWriter
	Roster      RosterSource
	Boundaries  tzoverlay.Loader
	Sources     []string
	Overlay     config.OverlayConfig
	Scrubber    config.ScrubberConfig
	// RestoreDelay defaults to DefaultRestoreDelay.
	RestoreDelay   time.Duration
	Logger         *slog.Logger
	DispatchLogger dispatcher.Logger
}

// ErrClosed is returned for selection output produced after Close.
var ErrClosed = errors.New("session closed")

// Session is one run of the map client.
type Session struct {
	deps   Dependencies
	clock  schedule.Clock
	logger *slog.Logger

	// mu serializes every input
	mu        sync.Mutex
	scrub     *scrubber.Scrubber
	onDisplay func(scrubber.Display)
	restore   schedule.Timer
	// set once the coordinator has sent a selection instruction
	serverSelection bool
	started         bool
	closed          bool

	avail      *availability.Sync
	coord      coordinator.Channel
	dispatcher *dispatcher.Dispatcher
	worker     *worker.Manager
	night      *overlay.NightOverlay
	zones      *tzoverlay.Layer
	roster     *cache.RosterCache

	selection atomic.Pointer[core.Interval]
	info      atomic.Pointer[core.Session]
}

// New builds a session. Nothing connects or draws until Start.
func New(deps Dependencies) (*Session, error) {
	if deps.Surface == nil {
		return nil, fmt.Errorf("session needs a render surface")
	}
	if deps.Clock == nil {
		deps.Clock = schedule.Real()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.DispatchLogger == nil {
		deps.DispatchLogger = deps.Logger
	}
	if deps.Resolver == nil {
		deps.Resolver = tz.NewResolver(deps.Clock, deps.Logger)
	}
	if deps.RestoreDelay <= 0 {
		deps.RestoreDelay = DefaultRestoreDelay
	}

	s := &Session{
		deps:   deps,
		logger: deps.Logger,
		roster: cache.NewRosterCache(),
	}
	s.clock = schedule.Serialized(deps.Clock, &s.mu)

	coord, err := coordinator.New(deps.Coordinator, deps.Logger.With("component", "coordinator"), s.inbound)
	if err != nil {
		return nil, err
	}
	s.coord = coord
	s.avail = availability.New(deps.Surface, coord, deps.Resolver, deps.Logger.With("component", "availability"))

	s.scrub, err = scrubber.New(scrubber.Config{
		Throttle:  deps.Scrubber.Throttle,
		Tolerance: deps.Scrubber.Tolerance,
		MinWidth:  deps.Scrubber.MinWidth,
	}, s.clock, emitter{s}, deps.Logger.With("component", "scrubber"))
	if err != nil {
		return nil, fmt.Errorf("creating scrubber: %w", err)
	}
	s.scrub.OnDisplay(s.displayChanged)

	s.dispatcher, err = dispatcher.New(deps.DispatchLogger)
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	s.worker = worker.NewManager(worker.Dependencies{
		Target:  s,
		Parser:  parser.NewParser(deps.Logger),
		Journal: deps.Journal,
		Metrics: deps.Metrics,
		Logger:  deps.Logger.With("component", "worker"),
	})
	s.worker.RegisterHandlers(s.dispatcher)

	s.night = overlay.New(deps.Surface, s.clock, overlay.Config{
		RefreshInterval: deps.Overlay.RefreshInterval,
		MaxFailures:     deps.Overlay.MaxFailures,
	}, deps.Logger.With("component", "overlay"))
	s.night.OnDraw(s.overlayDrawn)

	if deps.Boundaries != nil {
		s.zones = tzoverlay.NewLayer(
			deps.Surface,
			deps.Boundaries,
			tzoverlay.NewBuilder(deps.Resolver, deps.Clock),
			deps.Sources,
			deps.Logger.With("component", "tzoverlay"),
		)
	}

	return s, nil
}

// Start connects to the coordinator, registers the viewer, places the roster,
// loads the timezone layer and starts the night overlay. Only a journal that
// fails to open is returned as an error; every other failure degrades its
// own layer and is logged.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	var last *core.SelectionRecord
	if s.deps.Journal != nil {
		if err := s.deps.Journal.Init(); err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		var err error
		if last, err = s.deps.Journal.LastSelection(); err != nil {
			s.logger.Warn("Failed to read last selection", "error", err)
		}
	}

	if err := s.coord.Init(); err != nil {
		s.logger.Error("Coordinator unavailable", "error", err)
	}

	viewer, err := s.avail.RegisterViewer()
	if err != nil {
		s.logger.Warn("Viewer registration failed", "error", err)
	}
	s.startJournalSession(viewer)

	s.placeRoster(ctx)

	if s.zones != nil {
		if err := s.zones.Load(ctx); err != nil {
			s.logger.Warn("Timezone overlay unavailable", "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.night.Start()
	if rec := last; rec != nil {
		if iv, ok := rec.Interval(); ok {
			s.restore = s.clock.AfterFunc(s.deps.RestoreDelay, func() { s.restoreSelection(iv) })
		}
	}
	return nil
}

func (s *Session) startJournalSession(v tz.Viewer) {
	info := &core.Session{
		ViewerTZ:    v.Zone,
		OffsetHours: v.OffsetHours,
		Coordinator: s.deps.Coordinator.URL,
		StartedAt:   s.deps.Clock.Now().UTC(),
	}
	if s.deps.Journal != nil {
		if err := s.deps.Journal.StartSession(info); err != nil {
			s.logger.Warn("Failed to record session", "error", err)
		}
	}
	s.info.Store(info)
}

func (s *Session) placeRoster(ctx context.Context) {
	if s.deps.Roster == nil {
		return
	}
	people, err := s.deps.Roster.FetchRoster(ctx)
	if err != nil {
		s.logger.Warn("Failed to fetch roster", "error", err)
		return
	}
	placer, canPlace := s.deps.Surface.(render.MarkerPlacer)
	placed := 0
	for _, p := range people {
		s.roster.Add(p)
		if !canPlace {
			continue
		}
		if err := placer.PlaceMarker(p, geo.MarkerPoint(p)); err != nil {
			s.logger.Warn("Failed to place marker", "id", p.ID, "error", err)
			continue
		}
		placed++
	}
	s.logger.Info("Roster loaded", "people", len(people), "placed", placed)
}

// restoreSelection runs on the serialized clock.
func (s *Session) restoreSelection(iv core.Interval) {
	s.restore = nil
	if s.closed || s.serverSelection {
		return
	}
	if _, has := s.scrub.Interval(); has {
		return
	}
	r := iv.Range()
	s.logger.Info("Restoring last selection", "aFrac", r.AFrac, "bFrac", r.BFrac)
	s.scrub.Rehydrate(core.SelectionSet{Range: &r})
}

// Close stops the timers, drains queued coordinator events and closes the
// channel and the journal.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.restore != nil {
		s.restore.Stop()
		s.restore = nil
	}
	s.scrub.Stop()
	s.night.Stop()
	s.mu.Unlock()

	// queued handlers take the session lock
	s.dispatcher.Close()

	if err := s.coord.Close(); err != nil {
		s.logger.Warn("Failed to close coordinator", "error", err)
	}
	if s.deps.Journal != nil {
		if err := s.deps.Journal.Close(); err != nil {
			return fmt.Errorf("closing journal: %w", err)
		}
		if exp, ok := s.deps.Journal.(storage.Exportable); ok && exp.ExportedFilePath() != "" {
			s.logger.Info("Journal exported", "path", exp.ExportedFilePath())
		}
	}
	return nil
}

func (s *Session) inbound(env streaming.Envelope) {
	_, err := s.dispatcher.Dispatch(dispatcher.Event{
		Type:      env.Type,
		Payload:   env.Payload,
		Timestamp: s.deps.Clock.Now(),
	})
	if err != nil {
		s.logger.Debug("Inbound event not handled", "type", env.Type, "error", err)
	}
}

func (s *Session) displayChanged(d scrubber.Display) {
	if iv, ok := s.scrub.Interval(); ok {
		s.selection.Store(&iv)
	} else {
		s.selection.Store(nil)
	}
	if s.onDisplay != nil {
		s.onDisplay(d)
	}
}

func (s *Session) overlayDrawn(np core.NightPolygon, f geom.GeoJSONFeature, at time.Time) {
	if err := s.worker.RecordOverlay(np, f, at); err != nil {
		s.logger.Warn("Failed to record overlay", "error", err)
	}
}

// emitter forwards scrubber output to the coordinator and journals commits.
type emitter struct {
	s *Session
}

// Both run under the session lock. A throttle callback already waiting on
// the lock when Close runs must not reach the coordinator.
func (e emitter) Hover(iv core.Interval) error {
	if e.s.closed {
		return ErrClosed
	}
	return e.s.avail.Hover(iv)
}

func (e emitter) Commit(iv core.Interval) error {
	if e.s.closed {
		return ErrClosed
	}
	if err := e.s.worker.RecordCommit(iv, e.s.deps.Clock.Now()); err != nil {
		e.s.logger.Warn("Failed to record commit", "error", err)
	}
	return e.s.avail.Commit(iv)
}

// ApplyClassification implements worker.Target.
func (s *Session) ApplyClassification(c core.Classification) core.AvailabilitySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.avail.Apply(c)
	return s.avail.Summary()
}

// ApplySelectionSet implements worker.Target.
func (s *Session) ApplySelectionSet(set core.SelectionSet) (core.Interval, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverSelection = true
	s.scrub.Rehydrate(set)
	return s.scrub.Interval()
}

// ViewerTZ implements worker.Target. It does not take the session lock, so
// it is safe to call from inside an input handler.
func (s *Session) ViewerTZ() string {
	if v, ok := s.avail.Viewer(); ok {
		return v.Zone
	}
	return ""
}
