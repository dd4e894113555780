// Package availability applies coordinator classifications to map markers
// and forwards the viewer's selection and timezone to the coordinator.
package availability

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/teammap/teammap/internal/render"
	"github.com/teammap/teammap/internal/tz"
	"github.com/teammap/teammap/pkg/core"
	"github.com/teammap/teammap/pkg/streaming"
)

// ErrNoCoordinator is returned when a message is sent before a coordinator
// channel is attached.
var ErrNoCoordinator = errors.New("no coordinator channel")

// Coordinator is the outbound side of the coordinator channel.
type Coordinator interface {
	Send(msgType string, payload any) error
	// RegisterViewer sends the viewer registration and keeps it for replay
	// after reconnects.
	RegisterViewer(p streaming.ViewerTZPayload) error
}

// ViewerResolver determines the local zone.
type ViewerResolver interface {
	ViewerZone() tz.Viewer
}

// Sync owns per-person marker state.
type Sync struct {
	surface  render.Surface
	coord    Coordinator
	resolver ViewerResolver
	logger   *slog.Logger

	mu          sync.Mutex
	states      map[string]core.MarkerState
	highlighted []string
	viewer      *tz.Viewer
}

// New creates a Sync drawing onto surface.
func New(surface render.Surface, coord Coordinator, resolver ViewerResolver, logger *slog.Logger) *Sync {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sync{
		surface:  surface,
		coord:    coord,
		resolver: resolver,
		logger:   logger,
		states:   make(map[string]core.MarkerState),
	}
}

// Apply renders a classification. An empty update resets every marker;
// otherwise only the listed people change. People without a marker are
// skipped.
func (s *Sync) Apply(c core.Classification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.highlighted = append([]string(nil), c.HighlightedTimezones...)

	if len(c.Statuses) == 0 {
		for _, id := range s.surface.MarkerIDs() {
			if m, ok := s.surface.Marker(id); ok {
				m.Remove(core.StateClasses...)
			}
		}
		s.states = make(map[string]core.MarkerState)
		return
	}

	skipped := 0
	for id, state := range c.Statuses {
		m, ok := s.surface.Marker(id)
		if !ok {
			skipped++
			continue
		}
		m.Remove(core.StateClasses...)
		if class := state.Class(); class != "" {
			m.Add(class)
		}
		s.states[id] = state
	}
	if skipped > 0 {
		s.logger.Debug("classification for unknown markers ignored", "count", skipped)
	}
}

// State returns the classification of one marker.
func (s *Sync) State(id string) core.MarkerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[id]; ok {
		return st
	}
	return core.StateUnset
}

// States returns a snapshot of every marker's state, unset included.
func (s *Sync) States() map[string]core.MarkerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]core.MarkerState)
	for _, id := range s.surface.MarkerIDs() {
		st, ok := s.states[id]
		if !ok {
			st = core.StateUnset
		}
		out[id] = st
	}
	return out
}

// Summary counts markers per state.
func (s *Sync) Summary() core.AvailabilitySummary {
	var sum core.AvailabilitySummary
	for _, st := range s.States() {
		switch st {
		case core.StateWorking:
			sum.Working++
		case core.StateEdge:
			sum.Edge++
		case core.StateOff:
			sum.Off++
		default:
			sum.Unset++
		}
	}
	return sum
}

// HighlightedTimezones returns the zones the coordinator marked in its last
// update, sorted.
func (s *Sync) HighlightedTimezones() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.highlighted...)
	sort.Strings(out)
	return out
}

// RegisterViewer reports the viewer's zone to the coordinator. It sends at
// most once per Sync; later calls return the registered viewer.
func (s *Sync) RegisterViewer() (tz.Viewer, error) {
	s.mu.Lock()
	if s.viewer != nil {
		v := *s.viewer
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	v := tz.Viewer{Zone: tz.UTCZone}
	if s.resolver != nil {
		v = s.resolver.ViewerZone()
	}
	if s.coord == nil {
		return v, ErrNoCoordinator
	}

	if err := s.coord.RegisterViewer(streaming.ViewerTZPayload{TZ: v.Zone, OffsetHours: v.OffsetHours}); err != nil {
		return v, fmt.Errorf("registering viewer timezone: %w", err)
	}

	s.mu.Lock()
	s.viewer = &v
	s.mu.Unlock()
	s.logger.Info("viewer timezone registered", "tz", v.Zone, "offsetHours", v.OffsetHours)
	return v, nil
}

// Viewer returns the registered viewer, if any.
func (s *Sync) Viewer() (tz.Viewer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewer == nil {
		return tz.Viewer{}, false
	}
	return *s.viewer, true
}

// Hover sends a hover_range for the interval.
func (s *Sync) Hover(iv core.Interval) error {
	return s.send(streaming.TypeHoverRange, rangePayload(iv))
}

// Commit sends a commit_range for the interval.
func (s *Sync) Commit(iv core.Interval) error {
	return s.send(streaming.TypeCommitRange, rangePayload(iv))
}

// ShowProfile asks the coordinator to open a person's profile.
func (s *Sync) ShowProfile(userID string) error {
	return s.send(streaming.TypeShowProfile, streaming.ShowProfilePayload{UserID: userID})
}

func (s *Sync) send(msgType string, payload any) error {
	if s.coord == nil {
		return ErrNoCoordinator
	}
	if err := s.coord.Send(msgType, payload); err != nil {
		return fmt.Errorf("sending %s: %w", msgType, err)
	}
	return nil
}

func rangePayload(iv core.Interval) streaming.RangePayload {
	r := iv.Range()
	return streaming.RangePayload{AFrac: r.AFrac, BFrac: r.BFrac}
}
