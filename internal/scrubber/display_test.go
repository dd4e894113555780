package scrubber

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teammap/teammap/pkg/core"
)

func TestRender_Placeholder(t *testing.T) {
	for _, iv := range []*core.Interval{nil, {Left: 0.5, Width: 0}, {Left: 0.5, Width: 0.02}} {
		d := Render(iv)
		assert.False(t, d.SelectionVisible)
		assert.True(t, d.InstructionVisible)
		assert.Equal(t, "No selection", d.TimeText)
		assert.Equal(t, "Drag to select", d.DurationText)
	}
}

func TestRender_Labels(t *testing.T) {
	tests := []struct {
		name     string
		iv       core.Interval
		time     string
		duration string
	}{
		{"midnight to noon", core.Interval{Left: 0, Width: 0.5}, "12:00 AM - 12:00 PM", "12 hour window"},
		{"morning", core.Interval{Left: 0.30, Width: 0.25}, "7:00 AM - 1:00 PM", "6 hour window"},
		{"single hour", core.Interval{Left: 0.375, Width: 0.05}, "9:00 AM - 10:00 AM", "1 hour window"},
		{"whole day caps end hour", core.Interval{Left: 0, Width: 1}, "12:00 AM - 11:00 PM", "24 hour window"},
		{"evening", core.Interval{Left: 0.75, Width: 0.125}, "6:00 PM - 9:00 PM", "3 hour window"},
		{"sub-hour window", core.Interval{Left: 0.5, Width: 0.03}, "12:00 PM - 12:00 PM", "0 hour window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Render(&tt.iv)
			assert.True(t, d.SelectionVisible)
			assert.False(t, d.InstructionVisible)
			assert.Equal(t, tt.time, d.TimeText)
			assert.Equal(t, tt.duration, d.DurationText)
			assert.Equal(t, tt.iv.Left, d.Left)
			assert.Equal(t, tt.iv.Width, d.Width)
		})
	}
}
