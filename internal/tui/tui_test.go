package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teammap/teammap/internal/channel"
	"github.com/teammap/teammap/internal/overlay"
	"github.com/teammap/teammap/internal/render"
	"github.com/teammap/teammap/internal/scrubber"
	"github.com/teammap/teammap/internal/tz"
	"github.com/teammap/teammap/pkg/core"
)

type fakeSession struct {
	calls    []string
	xs       []float64
	clicked  []string
	clickErr error
	display  scrubber.Display
	roster   []core.Person
	states   map[string]core.MarkerState
	overlay  overlay.Status
	hl       []string
}

func (f *fakeSession) PointerDown(x float64) {
	f.calls = append(f.calls, "down")
	f.xs = append(f.xs, x)
}

func (f *fakeSession) PointerMove(x float64) {
	f.calls = append(f.calls, "move")
	f.xs = append(f.xs, x)
}

func (f *fakeSession) PointerUp() { f.calls = append(f.calls, "up") }

func (f *fakeSession) MarkerClicked(id string) error {
	f.clicked = append(f.clicked, id)
	return f.clickErr
}

func (f *fakeSession) Display() scrubber.Display           { return f.display }
func (f *fakeSession) States() map[string]core.MarkerState { return f.states }
func (f *fakeSession) Roster() []core.Person               { return f.roster }
func (f *fakeSession) Overlay() overlay.Status             { return f.overlay }
func (f *fakeSession) HighlightedTimezones() []string      { return f.hl }

func (f *fakeSession) Viewer() (tz.Viewer, bool) {
	return tz.Viewer{Zone: "Europe/Berlin", OffsetHours: 1}, true
}

func newFake() *fakeSession {
	return &fakeSession{
		display: scrubber.Placeholder(),
		roster: []core.Person{
			{ID: "u1", Name: "Ada", Timezone: "Europe/London"},
			{ID: "u2", Name: "Kenji", Timezone: "Asia/Tokyo"},
		},
		states: map[string]core.MarkerState{"u1": core.StateWorking},
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func mouse(x, y int, action tea.MouseAction) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: tea.MouseButtonLeft}
}

func TestResizeSetsTrackBounds(t *testing.T) {
	surface := render.NewMemorySurface(render.Rect{})
	m := New(newFake(), surface, nil)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 44, Height: 30})

	assert.Equal(t, render.Rect{Left: 2, Top: trackRow, Width: 40, Height: 1}, surface.TrackBounds())
}

func TestDragOnTrack(t *testing.T) {
	s := newFake()
	m := New(s, nil, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 44, Height: 30})

	m, _ = update(t, m, mouse(12, trackRow, tea.MouseActionPress))
	m, _ = update(t, m, mouse(20, trackRow+3, tea.MouseActionMotion))
	m, _ = update(t, m, mouse(22, trackRow, tea.MouseActionRelease))

	assert.Equal(t, []string{"down", "move", "up"}, s.calls)
	assert.Equal(t, []float64{12, 20}, s.xs)
	assert.False(t, m.dragging)
}

func TestMotionWithoutPressIsIgnored(t *testing.T) {
	s := newFake()
	m := New(s, nil, nil)

	m, _ = update(t, m, mouse(12, trackRow, tea.MouseActionMotion))
	_, _ = update(t, m, mouse(12, trackRow, tea.MouseActionRelease))

	assert.Empty(t, s.calls)
}

func TestRightClickIsIgnored(t *testing.T) {
	s := newFake()
	m := New(s, nil, nil)

	msg := mouse(12, trackRow, tea.MouseActionPress)
	msg.Button = tea.MouseButtonRight
	_, _ = update(t, m, msg)

	assert.Empty(t, s.calls)
}

func TestClickRosterRowOpensProfile(t *testing.T) {
	s := newFake()
	m := New(s, nil, nil)

	m, _ = update(t, m, mouse(5, rosterRow+1, tea.MouseActionPress))
	assert.Equal(t, []string{"u2"}, s.clicked)
	assert.Contains(t, m.View(), "Opened profile of Kenji")

	m, _ = update(t, m, mouse(5, rosterRow+5, tea.MouseActionPress))
	assert.Equal(t, []string{"u2"}, s.clicked)

	s.clickErr = errors.New("coordinator not connected")
	m, _ = update(t, m, mouse(5, rosterRow, tea.MouseActionPress))
	assert.Contains(t, m.View(), "coordinator not connected")
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	} {
		t.Run(key.String(), func(t *testing.T) {
			m, cmd := update(t, New(newFake(), nil, nil), key)
			require.NotNil(t, cmd)
			assert.True(t, m.quitting)
			assert.Equal(t, tea.QuitMsg{}, cmd())
			assert.Empty(t, m.View())
		})
	}
}

func TestTickAdvancesClock(t *testing.T) {
	m := New(newFake(), nil, nil)
	at := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

	m, cmd := update(t, m, tickMsg(at))

	assert.Equal(t, at, m.now)
	assert.NotNil(t, cmd)
}

func TestDisplayUpdatesWakeTheModel(t *testing.T) {
	updates := channel.NewBuffered[scrubber.Display](1)
	m := New(newFake(), nil, updates)

	d := scrubber.Display{SelectionVisible: true, TimeText: "6:00 AM - 12:00 PM"}
	require.True(t, updates.TrySend(d))

	cmd := m.waitForDisplay()
	require.NotNil(t, cmd)
	assert.Equal(t, displayMsg(d), cmd())

	_, next := update(t, m, displayMsg(d))
	assert.NotNil(t, next)

	updates.Close()
	assert.Nil(t, m.waitForDisplay()())
}

func TestNoUpdatesChannel(t *testing.T) {
	assert.Nil(t, New(newFake(), nil, nil).waitForDisplay())
}

func TestView(t *testing.T) {
	s := newFake()
	s.hl = []string{"Asia/Tokyo"}
	m := New(s, nil, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 44, Height: 30})
	m.now = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

	view := m.View()
	assert.Contains(t, view, "Europe/Berlin")
	assert.Contains(t, view, scrubber.NoSelectionText)
	assert.Contains(t, view, "Ada")
	assert.Contains(t, view, "12:00:00 PM")
	assert.Contains(t, view, "9:00:00 PM")
	assert.Contains(t, view, "working")
	assert.Contains(t, view, "unset")
	assert.Contains(t, view, "Night overlay pending")
	assert.Contains(t, view, "Highlighted: Asia/Tokyo")
}

func TestViewDegradedOverlay(t *testing.T) {
	s := newFake()
	s.overlay = overlay.Status{Degraded: true, Failures: 3}

	assert.Contains(t, New(s, nil, nil).View(), overlay.PlaceholderText)
}

func TestRenderTrack(t *testing.T) {
	d := scrubber.Display{SelectionVisible: true, Left: 0.25, Width: 0.5}

	track := renderTrack(d, 8)

	assert.Equal(t, 4, countRune(track, '█'))
	assert.Equal(t, 4, countRune(track, '─'))
	assert.Empty(t, renderTrack(d, 0))
}

func TestRenderScale(t *testing.T) {
	scale := renderScale(24)

	assert.Len(t, []rune(scale), 24)
	assert.Equal(t, "0", scale[:1])
	assert.Equal(t, "6", scale[6:7])
	assert.Equal(t, "24", scale[22:])
}

func countRune(s string, r rune) int {
	n := 0
	for _, c := range s {
		if c == r {
			n++
		}
	}
	return n
}
