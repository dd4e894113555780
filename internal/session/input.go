package session

import (
	"log/slog"

	"github.com/teammap/teammap/internal/coordinator"
	"github.com/teammap/teammap/internal/overlay"
	"github.com/teammap/teammap/internal/scrubber"
	"github.com/teammap/teammap/internal/tz"
	"github.com/teammap/teammap/internal/tzoverlay"
	"github.com/teammap/teammap/pkg/core"
)

// PointerDown starts a drag at a client x coordinate on the track.
func (s *Session) PointerDown(clientX float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.scrub.PointerDown(s.deps.Surface.TrackBounds().Fraction(clientX))
}

// PointerMove updates an active drag. Moves without one are ignored.
func (s *Session) PointerMove(clientX float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.scrub.PointerMove(s.deps.Surface.TrackBounds().Fraction(clientX))
}

// PointerUp ends a drag and commits the selection.
func (s *Session) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.scrub.PointerUp()
}

// PointerLeave ends a drag when the pointer leaves the track.
func (s *Session) PointerLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.scrub.PointerLeave()
}

// MarkerClicked asks the coordinator to open the person's profile.
func (s *Session) MarkerClicked(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avail.ShowProfile(id)
}

// OnDisplay registers fn for scrubber display changes and calls it with the
// current display.
func (s *Session) OnDisplay(fn func(scrubber.Display)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisplay = fn
	if fn != nil {
		fn(s.scrub.Display())
	}
}

// Display returns the scrubber display.
func (s *Session) Display() scrubber.Display {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrub.Display()
}

// Selection returns the current selection without taking the session lock.
func (s *Session) Selection() (core.Interval, bool) {
	iv := s.selection.Load()
	if iv == nil {
		return core.Interval{}, false
	}
	return *iv, true
}

// States returns every marker's availability state.
func (s *Session) States() map[string]core.MarkerState {
	return s.avail.States()
}

// Summary counts markers per availability state.
func (s *Session) Summary() core.AvailabilitySummary {
	return s.avail.Summary()
}

// HighlightedTimezones returns the zones highlighted by the last update.
func (s *Session) HighlightedTimezones() []string {
	return s.avail.HighlightedTimezones()
}

// Viewer returns the registered viewer zone.
func (s *Session) Viewer() (tz.Viewer, bool) {
	return s.avail.Viewer()
}

// Info returns the journal session, once started.
func (s *Session) Info() (core.Session, bool) {
	info := s.info.Load()
	if info == nil {
		return core.Session{}, false
	}
	return *info, true
}

// Roster returns the placed team members ordered by id.
func (s *Session) Roster() []core.Person {
	return s.roster.All()
}

// Person looks up a roster entry.
func (s *Session) Person(id string) (core.Person, bool) {
	return s.roster.Get(id)
}

// Overlay returns the night overlay status.
func (s *Session) Overlay() overlay.Status {
	return s.night.Status()
}

// Zones returns the loaded timezone zones and their source.
func (s *Session) Zones() ([]tzoverlay.Zone, string) {
	if s.zones == nil {
		return nil, ""
	}
	return s.zones.Zones(), s.zones.Source()
}

// Coordinator returns the coordinator channel.
func (s *Session) Coordinator() coordinator.Channel {
	return s.coord
}

// LogAttrs returns the attributes added to every log record. It never takes
// the session lock.
func (s *Session) LogAttrs() []slog.Attr {
	var attrs []slog.Attr
	if v, ok := s.avail.Viewer(); ok {
		attrs = append(attrs, slog.String("viewerTz", v.Zone))
	}
	if iv, ok := s.Selection(); ok {
		r := iv.Range()
		attrs = append(attrs, slog.Group("selection",
			slog.Float64("aFrac", r.AFrac),
			slog.Float64("bFrac", r.BFrac),
		))
	}
	return attrs
}
