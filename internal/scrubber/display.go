package scrubber

import (
	"fmt"
	"math"

	"github.com/teammap/teammap/pkg/core"
)

// Placeholder texts shown while nothing is selected.
const (
	NoSelectionText = "No selection"
	InstructionText = "Drag to select"
)

// Display is what the host shows for the current selection.
type Display struct {
	SelectionVisible   bool
	InstructionVisible bool
	Left               float64
	Width              float64
	TimeText           string
	DurationText       string
}

// Placeholder is the display for an empty selection.
func Placeholder() Display {
	return Display{
		InstructionVisible: true,
		TimeText:           NoSelectionText,
		DurationText:       InstructionText,
	}
}

// Render formats an interval as hour labels. Windows no wider than the
// minimum width render the placeholder.
func Render(iv *core.Interval) Display {
	if iv == nil || iv.Width <= core.MinSelectionWidth {
		return Placeholder()
	}

	start := int(math.Floor(iv.Left * 24))
	end := int(math.Floor(iv.Right() * 24))

	duration := fmt.Sprintf("%d hour window", end-start)
	if end-start == 1 {
		duration = "1 hour window"
	}

	return Display{
		SelectionVisible: true,
		Left:             iv.Left,
		Width:            iv.Width,
		TimeText:         formatHour(start) + " - " + formatHour(end),
		DurationText:     duration,
	}
}

func formatHour(h int) string {
	if h >= 24 {
		h = 23
	}
	switch {
	case h == 0:
		return "12:00 AM"
	case h < 12:
		return fmt.Sprintf("%d:00 AM", h)
	case h == 12:
		return "12:00 PM"
	default:
		return fmt.Sprintf("%d:00 PM", h-12)
	}
}
