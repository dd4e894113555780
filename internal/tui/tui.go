// Package tui is a terminal host for a session: the scrubber track is driven
// by mouse drags and the roster shows each person's availability.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/teammap/teammap/internal/channel"
	"github.com/teammap/teammap/internal/overlay"
	"github.com/teammap/teammap/internal/render"
	"github.com/teammap/teammap/internal/scrubber"
	"github.com/teammap/teammap/internal/tz"
	"github.com/teammap/teammap/pkg/core"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Layout rows.
const (
	trackRow   = 2
	rosterRow  = 7
	trackInset = 2
)

var (
	colorGreen  = lipgloss.Color("#8ec07c")
	colorYellow = lipgloss.Color("#fabd2f")
	colorRed    = lipgloss.Color("#fb4934")
	colorBlue   = lipgloss.Color("#83a598")
	colorDim    = lipgloss.Color("#928374")
	colorHeader = lipgloss.Color("#fe8019")

	styleHeader   = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	styleSelected = lipgloss.NewStyle().Foreground(colorBlue)
	styleDim      = lipgloss.NewStyle().Foreground(colorDim)
	styleWorking  = lipgloss.NewStyle().Foreground(colorGreen)
	styleEdge     = lipgloss.NewStyle().Foreground(colorYellow)
	styleOff      = lipgloss.NewStyle().Foreground(colorRed)
)

// Session is the part of a session the terminal drives and displays.
type Session interface {
	PointerDown(clientX float64)
	PointerMove(clientX float64)
	PointerUp()
	MarkerClicked(id string) error
	Display() scrubber.Display
	States() map[string]core.MarkerState
	Roster() []core.Person
	Viewer() (tz.Viewer, bool)
	Overlay() overlay.Status
	HighlightedTimezones() []string
}

// Tracker receives the track position whenever the terminal is resized.
type Tracker interface {
	SetTrackBounds(r render.Rect)
}

type tickMsg time.Time

// displayMsg wakes the model when the selection changes outside a drag,
// such as a selection sent by the coordinator.
type displayMsg scrubber.Display

// Model is the bubbletea model.
type Model struct {
	session Session
	tracker Tracker
	updates channel.Receiver[scrubber.Display]

	width    int
	height   int
	now      time.Time
	dragging bool
	status   string
	quitting bool
}

// New creates a model for s. tracker and updates may be nil.
func New(s Session, tracker Tracker, updates channel.Receiver[scrubber.Display]) Model {
	return Model{session: s, tracker: tracker, updates: updates, now: time.Now()}
}

// Run shows the model full screen until the user quits.
func Run(s Session, tracker Tracker, updates channel.Receiver[scrubber.Display]) error {
	p := tea.NewProgram(New(s, tracker, updates), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) waitForDisplay() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	ch := m.updates.Receive()
	return func() tea.Msg {
		d, ok := <-ch
		if !ok {
			return nil
		}
		return displayMsg(d)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.waitForDisplay())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.tracker != nil {
			m.tracker.SetTrackBounds(m.trackBounds())
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg), nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case displayMsg:
		return m, m.waitForDisplay()
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) Model {
	x := float64(msg.X)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m
		}
		if msg.Y == trackRow {
			m.dragging = true
			m.session.PointerDown(x)
			return m
		}
		if i := msg.Y - rosterRow; i >= 0 {
			roster := m.session.Roster()
			if i < len(roster) {
				if err := m.session.MarkerClicked(roster[i].ID); err != nil {
					m.status = err.Error()
				} else {
					m.status = "Opened profile of " + roster[i].Name
				}
			}
		}
	case tea.MouseActionMotion:
		if m.dragging {
			m.session.PointerMove(x)
		}
	case tea.MouseActionRelease:
		if m.dragging {
			m.dragging = false
			m.session.PointerUp()
		}
	}
	return m
}

func (m Model) trackWidth() int {
	return max(m.width-2*trackInset, 0)
}

func (m Model) trackBounds() render.Rect {
	return render.Rect{
		Left:   trackInset,
		Top:    trackRow,
		Width:  float64(m.trackWidth()),
		Height: 1,
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	pad := strings.Repeat(" ", trackInset)

	// rows 0-1
	viewer := tz.UTCZone
	if v, ok := m.session.Viewer(); ok {
		viewer = v.Zone
	}
	b.WriteString(styleHeader.Render("teammap") + "  " + styleDim.Render(viewer) + "\n\n")

	// rows 2-4
	d := m.session.Display()
	b.WriteString(pad + renderTrack(d, m.trackWidth()) + "\n")
	b.WriteString(pad + styleDim.Render(renderScale(m.trackWidth())) + "\n")
	b.WriteString(pad + d.TimeText + "  " + styleDim.Render(d.DurationText) + "\n\n")

	// row 6 onwards
	b.WriteString(styleHeader.Render("Team") + "\n")
	states := m.session.States()
	for _, p := range m.session.Roster() {
		st, ok := states[p.ID]
		if !ok {
			st = core.StateUnset
		}
		fmt.Fprintf(&b, "%s%-20s %-22s %12s  %s\n",
			pad, p.Name, p.Timezone, tz.FormatClock(m.now, p.Timezone), stateLabel(st))
	}

	b.WriteString("\n" + overlayLine(m.session.Overlay()) + "\n")
	if hl := m.session.HighlightedTimezones(); len(hl) > 0 {
		b.WriteString(styleDim.Render("Highlighted: "+strings.Join(hl, ", ")) + "\n")
	}
	if m.status != "" {
		b.WriteString(m.status + "\n")
	}
	b.WriteString(styleDim.Render("drag on the track to select a window, click a name to open a profile, q to quit"))
	return b.String()
}

func renderTrack(d scrubber.Display, width int) string {
	if width <= 0 {
		return ""
	}
	var b strings.Builder
	for i := range width {
		frac := (float64(i) + 0.5) / float64(width)
		if d.SelectionVisible && frac >= d.Left && frac < d.Left+d.Width {
			b.WriteString(styleSelected.Render("█"))
			continue
		}
		b.WriteString("─")
	}
	return b.String()
}

// renderScale labels every six hours under the track.
func renderScale(width int) string {
	if width <= 0 {
		return ""
	}
	line := []rune(strings.Repeat(" ", width))
	for h := 0; h <= 24; h += 6 {
		label := []rune(fmt.Sprintf("%d", h))
		pos := min(h*width/24, width-len(label))
		copy(line[pos:], label)
	}
	return string(line)
}

func stateLabel(st core.MarkerState) string {
	switch st {
	case core.StateWorking:
		return styleWorking.Render("● working")
	case core.StateEdge:
		return styleEdge.Render("● edge")
	case core.StateOff:
		return styleOff.Render("● off")
	default:
		return styleDim.Render("○ unset")
	}
}

func overlayLine(st overlay.Status) string {
	switch {
	case st.Degraded:
		return styleOff.Render(overlay.PlaceholderText)
	case st.LastDrawn.IsZero():
		return styleDim.Render("Night overlay pending")
	default:
		return styleDim.Render(fmt.Sprintf("Night overlay %s hemisphere, drawn %s",
			st.NightSide, st.LastDrawn.Format("15:04 MST")))
	}
}
