package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teammap/teammap/internal/config"
	"github.com/teammap/teammap/internal/coordinator"
	"github.com/teammap/teammap/internal/render"
	"github.com/teammap/teammap/internal/schedule"
	"github.com/teammap/teammap/internal/scrubber"
	"github.com/teammap/teammap/internal/storage/memory"
	"github.com/teammap/teammap/pkg/core"
	"github.com/teammap/teammap/pkg/streaming"
)

const eps = 1e-9

var epoch = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

type fakeRoster struct {
	people []core.Person
	err    error
}

func (f fakeRoster) FetchRoster(context.Context) ([]core.Person, error) {
	return f.people, f.err
}

type fakeBoundaries struct{}

func (fakeBoundaries) FetchTimezoneBoundaries(context.Context, []string) (geom.GeoJSONFeatureCollection, string, error) {
	return geom.GeoJSONFeatureCollection{
		{Properties: map[string]any{"tzid": "Europe/Berlin"}},
		{Properties: map[string]any{"tzid": "Asia/Tokyo"}},
	}, "memory://zones", nil
}

type fixture struct {
	session *Session
	surface *render.MemorySurface
	clock   *schedule.FakeClock
	journal *memory.Backend
}

func (f fixture) coord() *coordinator.Memory {
	return f.session.Coordinator().(*coordinator.Memory)
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		surface: render.NewMemorySurface(render.Rect{Left: 0, Width: 1000}),
		clock:   schedule.NewFakeClock(epoch),
		journal: memory.New(config.MemoryConfig{}, nil),
	}
	s, err := New(Dependencies{
		Surface:     f.surface,
		Clock:       f.clock,
		Coordinator: config.CoordinatorConfig{Type: "memory"},
		Journal:     f.journal,
		Roster: fakeRoster{people: []core.Person{
			{ID: "u1", Name: "Ada", Longitude: -0.12, Latitude: 51.5, Timezone: "Europe/London"},
			{ID: "u2", Name: "Kenji", Longitude: 139.7, Latitude: 35.7, Timezone: "Asia/Tokyo"},
		}},
		Boundaries: fakeBoundaries{},
	})
	require.NoError(t, err)
	f.session = s
	t.Cleanup(func() { _ = s.Close() })
	return f
}

func rangeOf(t *testing.T, env streaming.Envelope) streaming.RangePayload {
	t.Helper()
	var r streaming.RangePayload
	require.NoError(t, json.Unmarshal(env.Payload, &r))
	return r
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Dependencies{})
	assert.Error(t, err)

	_, err = New(Dependencies{
		Surface:     render.NewMemorySurface(render.Rect{}),
		Coordinator: config.CoordinatorConfig{Type: "carrier-pigeon"},
	})
	assert.Error(t, err)
}

func TestSession_Start(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))

	viewer, ok := f.coord().Viewer()
	require.True(t, ok, "viewer registered")
	assert.NotEmpty(t, viewer.TZ)
	assert.Equal(t, viewer.TZ, f.session.ViewerTZ())

	info, ok := f.session.Info()
	require.True(t, ok)
	assert.Equal(t, uint(1), info.ID)
	assert.Equal(t, viewer.TZ, info.ViewerTZ)
	assert.Equal(t, epoch, info.StartedAt)

	assert.Equal(t, []string{"u1", "u2"}, f.surface.MarkerIDs())
	_, placed := f.surface.Position("u2")
	assert.True(t, placed)
	assert.Len(t, f.session.Roster(), 2)

	night, updates := f.surface.NightOverlay()
	require.NotNil(t, night)
	assert.Equal(t, 1, updates)
	assert.True(t, f.session.Overlay().Running)

	zones, src := f.session.Zones()
	assert.Len(t, zones, 2)
	assert.Equal(t, "memory://zones", src)

	// idempotent
	require.NoError(t, f.session.Start(context.Background()))
	assert.Len(t, f.coord().SentOfType(streaming.TypeSetViewerTZ), 1)
}

func TestSession_RosterFailureIsContained(t *testing.T) {
	surface := render.NewMemorySurface(render.Rect{Width: 100})
	s, err := New(Dependencies{
		Surface:     surface,
		Clock:       schedule.NewFakeClock(epoch),
		Coordinator: config.CoordinatorConfig{Type: "memory"},
		Roster:      fakeRoster{err: errors.New("api down")},
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Start(context.Background()))
	assert.Empty(t, surface.MarkerIDs())
	night, _ := surface.NightOverlay()
	assert.NotNil(t, night)
	zones, _ := s.Zones()
	assert.Empty(t, zones)
}

func TestSession_OverlayRefreshesOnClock(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))

	f.clock.Advance(time.Minute)
	_, updates := f.surface.NightOverlay()
	assert.Equal(t, 2, updates)
	assert.Equal(t, epoch.Add(time.Minute), f.session.Overlay().LastDrawn)
}

func TestSession_DragHoversAndCommits(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))

	var displays []scrubber.Display
	f.session.OnDisplay(func(d scrubber.Display) { displays = append(displays, d) })
	require.Len(t, displays, 1)
	assert.False(t, displays[0].SelectionVisible)

	f.session.PointerDown(300)
	f.session.PointerMove(400)
	f.session.PointerMove(550)
	assert.Empty(t, f.coord().SentOfType(streaming.TypeHoverRange), "throttled")

	f.clock.Advance(scrubber.DefaultThrottle)
	hovers := f.coord().SentOfType(streaming.TypeHoverRange)
	require.Len(t, hovers, 1)
	r := rangeOf(t, hovers[0])
	assert.InDelta(t, 0.30, r.AFrac, eps)
	assert.InDelta(t, 0.55, r.BFrac, eps)

	f.session.PointerUp()
	commits := f.coord().SentOfType(streaming.TypeCommitRange)
	require.Len(t, commits, 1)
	r = rangeOf(t, commits[0])
	assert.InDelta(t, 0.55, r.BFrac, eps)

	last, err := f.journal.LastSelection()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, core.SourceCommit, last.Source)
	assert.InDelta(t, 0.30, last.AFrac, eps)

	iv, ok := f.session.Selection()
	require.True(t, ok)
	assert.InDelta(t, 0.25, iv.Width, eps)
	assert.True(t, f.session.Display().SelectionVisible)
	assert.True(t, displays[len(displays)-1].SelectionVisible)

	attrs := f.session.LogAttrs()
	require.Len(t, attrs, 2)
	assert.Equal(t, "viewerTz", attrs[0].Key)
	assert.Equal(t, "selection", attrs[1].Key)
}

func TestSession_MoveWithoutDragIsIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))

	f.session.PointerMove(500)
	f.clock.Advance(time.Second)

	_, ok := f.session.Selection()
	assert.False(t, ok)
	assert.Empty(t, f.coord().SentOfType(streaming.TypeHoverRange))
}

func TestSession_InboundClassification(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))

	require.NoError(t, f.coord().Inject(streaming.TypeOverlapUpdate, map[string]any{
		"statuses":              map[string]any{"u1": 2, "u2": 0, "ghost": 1},
		"highlighted_timezones": []string{"Europe/London"},
	}))

	assert.Eventually(t, func() bool {
		return f.session.Summary().Working == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{core.ClassWorking}, f.surface.Classes("u1"))
	assert.Equal(t, core.AvailabilitySummary{Working: 1, Off: 1}, f.session.Summary())
	assert.Equal(t, []string{"Europe/London"}, f.session.HighlightedTimezones())

	// an empty update resets every marker
	require.NoError(t, f.coord().Inject(streaming.TypeOverlapUpdate, map[string]any{
		"statuses": map[string]any{},
	}))
	assert.Eventually(t, func() bool {
		return f.session.Summary().Unset == 2
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, f.surface.Classes("u1"))
}

func TestSession_ServerSelection(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))

	require.NoError(t, f.coord().Inject(streaming.TypeTimeSelectionSet, map[string]any{
		"a_frac": 0.25, "b_frac": 0.5,
	}))
	assert.Eventually(t, func() bool {
		_, ok := f.session.Selection()
		return ok
	}, time.Second, 5*time.Millisecond)

	iv, _ := f.session.Selection()
	assert.InDelta(t, 0.25, iv.Left, eps)
	assert.InDelta(t, 0.25, iv.Width, eps)

	// a restored window is announced right away
	assert.Eventually(t, func() bool {
		return len(f.coord().SentOfType(streaming.TypeHoverRange)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		last, _ := f.journal.LastSelection()
		return last != nil && last.Source == core.SourceServer
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.coord().Inject(streaming.TypeTimeSelectionSet, map[string]any{"clear": true}))
	assert.Eventually(t, func() bool {
		_, ok := f.session.Selection()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestSession_RestoresJournalSelection(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.journal.RecordSelection(&core.SelectionRecord{
		Time: epoch.Add(-time.Hour), Source: core.SourceCommit, AFrac: 0.1, BFrac: 0.3,
	}))
	require.NoError(t, f.session.Start(context.Background()))

	_, ok := f.session.Selection()
	assert.False(t, ok, "coordinator gets a chance first")

	f.clock.Advance(DefaultRestoreDelay)

	iv, ok := f.session.Selection()
	require.True(t, ok)
	assert.InDelta(t, 0.1, iv.Left, eps)
	assert.InDelta(t, 0.2, iv.Width, eps)
	assert.Len(t, f.coord().SentOfType(streaming.TypeHoverRange), 1)
}

func TestSession_ServerSelectionWinsOverJournal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.journal.RecordSelection(&core.SelectionRecord{
		Time: epoch.Add(-time.Hour), Source: core.SourceCommit, AFrac: 0.1, BFrac: 0.3,
	}))
	require.NoError(t, f.session.Start(context.Background()))

	require.NoError(t, f.coord().Inject(streaming.TypeTimeSelectionSet, map[string]any{"clear": true}))
	assert.Eventually(t, func() bool {
		last, _ := f.journal.LastSelection()
		return last != nil && last.Source == core.SourceClear
	}, time.Second, 5*time.Millisecond)

	f.clock.Advance(DefaultRestoreDelay)
	_, ok := f.session.Selection()
	assert.False(t, ok)
}

func TestSession_MarkerClicked(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))

	require.NoError(t, f.session.MarkerClicked("u2"))

	sent := f.coord().SentOfType(streaming.TypeShowProfile)
	require.Len(t, sent, 1)
	var p streaming.ShowProfilePayload
	require.NoError(t, json.Unmarshal(sent[0].Payload, &p))
	assert.Equal(t, "u2", p.UserID)

	person, ok := f.session.Person("u2")
	require.True(t, ok)
	assert.Equal(t, "Kenji", person.Name)
}

func TestSession_Close(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))

	require.NoError(t, f.session.Close())
	require.NoError(t, f.session.Close())

	assert.False(t, f.session.Overlay().Running)
	assert.ErrorIs(t, f.session.MarkerClicked("u1"), coordinator.ErrNotConnected)

	f.session.PointerDown(100)
	f.session.PointerMove(600)
	_, ok := f.session.Selection()
	assert.False(t, ok, "input after close is ignored")
}

// heldClock hands out timer callbacks instead of running them, so a test can
// fire one that was already due when it could no longer be stopped.
type heldClock struct {
	*schedule.FakeClock
	due []func()
}

type firedTimer struct{}

func (firedTimer) Stop() bool { return false }

func (c *heldClock) AfterFunc(_ time.Duration, f func()) schedule.Timer {
	c.due = append(c.due, f)
	return firedTimer{}
}

func (c *heldClock) fire() {
	due := c.due
	c.due = nil
	for _, f := range due {
		f()
	}
}

func TestSession_NoHoverAfterClose(t *testing.T) {
	clock := &heldClock{FakeClock: schedule.NewFakeClock(epoch)}
	s, err := New(Dependencies{
		Surface:     render.NewMemorySurface(render.Rect{Left: 0, Width: 1000}),
		Clock:       clock,
		Coordinator: config.CoordinatorConfig{Type: "memory"},
	})
	require.NoError(t, err)
	coord := s.Coordinator().(*coordinator.Memory)

	s.PointerDown(300)
	s.PointerMove(500)
	require.NotEmpty(t, clock.due, "hover flush scheduled")

	// Close has taken the lock and marked the session closed, but has not
	// reached the coordinator yet.
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	clock.fire()
	assert.Empty(t, coord.SentOfType(streaming.TypeHoverRange))

	s.mu.Lock()
	s.closed = false
	s.mu.Unlock()
	require.NoError(t, s.Close())
}

func TestEmitter_RefusesAfterClose(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Close())

	e := emitter{f.session}
	iv := core.Interval{Left: 0.2, Width: 0.3}
	assert.ErrorIs(t, e.Hover(iv), ErrClosed)
	assert.ErrorIs(t, e.Commit(iv), ErrClosed)

	rec, err := f.journal.LastSelection()
	require.NoError(t, err)
	assert.Nil(t, rec)
}
