package tz

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teammap/teammap/internal/schedule"
	"github.com/teammap/teammap/pkg/core"
)

func newTestResolver(at time.Time) *Resolver {
	return NewResolver(schedule.NewFakeClock(at), nil)
}

func TestResolveOffsetHours_MatchesPlatform(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	instants := []time.Time{
		time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
		// one minute either side of the spring-forward transition (07:00 UTC)
		time.Date(2024, 3, 10, 6, 59, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 7, 1, 0, 0, time.UTC),
	}

	for _, at := range instants {
		t.Run(at.Format(time.RFC3339), func(t *testing.T) {
			_, secs := at.In(loc).Zone()
			got := newTestResolver(at).ResolveOffsetHours("America/New_York", nil)
			require.True(t, got.Valid)
			assert.InDelta(t, float64(secs)/3600, got.Hours, 1e-9)
		})
	}
}

func TestResolveOffsetHours_FractionalZones(t *testing.T) {
	at := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	r := newTestResolver(at)

	tests := []struct {
		tzid string
		want float64
	}{
		{"Asia/Kolkata", 5.5},
		{"Asia/Kathmandu", 5.75},
		{"Australia/Eucla", 8.75},
		{"America/St_Johns", -3.5},
		{"UTC", 0},
	}
	for _, tt := range tests {
		t.Run(tt.tzid, func(t *testing.T) {
			got := r.ResolveOffsetHours(tt.tzid, nil)
			require.True(t, got.Valid)
			assert.InDelta(t, tt.want, got.Hours, 1e-9)
		})
	}
}

func TestResolveOffsetHours_AuxFallback(t *testing.T) {
	r := newTestResolver(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		tzid string
		aux  map[string]any
		want core.Offset
	}{
		{"utc_offset string", "Not/AZone", map[string]any{"utc_offset": "+05:30"}, core.Offset{Hours: 5.5, Valid: true}},
		{"offset decimal", "Not/AZone", map[string]any{"offset": "-3.5"}, core.Offset{Hours: -3.5, Valid: true}},
		{"gmt_offset numeric", "Not/AZone", map[string]any{"gmt_offset": 9.0}, core.Offset{Hours: 9, Valid: true}},
		{"int value", "Not/AZone", map[string]any{"offset": 3}, core.Offset{Hours: 3, Valid: true}},
		{"order respected", "Not/AZone", map[string]any{"utc_offset": "+1", "offset": "+2"}, core.Offset{Hours: 1, Valid: true}},
		{"bad aux falls through", "Not/AZone", map[string]any{"utc_offset": "soon", "gmt_offset": "+4"}, core.Offset{Hours: 4, Valid: true}},
		{"raw tzid", "UTC+08:45", nil, core.Offset{Hours: 8.75, Valid: true}},
		{"raw tzid with label", "Zone (GMT-9)", nil, core.Offset{Hours: -9, Valid: true}},
		{"fraction rounds to minutes", "Not/AZone", map[string]any{"offset": "+5.75"}, core.Offset{Hours: 5.75, Valid: true}},
		{"identifier dash is not a sign", "Somewhere/Port-au-Prince-2", nil, core.Unresolved},
		{"out of range", "Not/AZone", map[string]any{"offset": "+15"}, core.Unresolved},
		{"lower bound excluded", "Not/AZone", map[string]any{"offset": -12.0}, core.Unresolved},
		{"Etc/GMT+12 is UTC-12 and out of range", "Etc/GMT+12", nil, core.Unresolved},
		{"Etc/GMT+5 is behind UTC", "Etc/GMT+5", nil, core.Offset{Hours: -5, Valid: true}},
		{"Etc/GMT-14 is ahead of UTC", "Etc/GMT-14", nil, core.Offset{Hours: 14, Valid: true}},
		{"empty", "", nil, core.Unresolved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ResolveOffsetHours(tt.tzid, tt.aux)
			assert.Equal(t, tt.want.Valid, got.Valid)
			assert.InDelta(t, tt.want.Hours, got.Hours, 1e-9)
		})
	}
}

func TestIdentifierOffset_EtcGMTSign(t *testing.T) {
	tests := []struct {
		tzid string
		want float64
		ok   bool
	}{
		{"Etc/GMT+5", -5, true},
		{"Etc/GMT-9", 9, true},
		{"Etc/GMT-14", 14, true},
		{"Etc/GMT+12", 0, false},
		{"Etc/GMT", 0, false},
		{"Etc/GMT+5:30", 0, false},
		{"UTC+3", 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.tzid, func(t *testing.T) {
			got, ok := identifierOffset(tt.tzid)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestResolveOffsetHours_PlatformWinsOverAux(t *testing.T) {
	r := newTestResolver(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	got := r.ResolveOffsetHours("Asia/Tokyo", map[string]any{"utc_offset": "+01:00"})
	require.True(t, got.Valid)
	assert.InDelta(t, 9.0, got.Hours, 1e-9)
}

func TestParseOffsetHint(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"+5", 5, true},
		{"-8", -8, true},
		{"+05:30", 5.5, true},
		{"-09:30", -9.5, true},
		{"UTC+3", 3, true},
		{"GMT-10", -10, true},
		{"UTC +5.5", 5.5, true},
		{"5.5", 5.5, true},
		{"7", 7, true},
		{"+5:75", 0, false},
		{"America/Port-au-Prince", 0, false},
		{"zone-5", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseOffsetHint(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestShortOffset(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	assert.Equal(t, "GMT+05:30", ShortOffset(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), loc))
	assert.Equal(t, "GMT+00:00", ShortOffset(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.UTC))
}

func TestRoundHalfHour(t *testing.T) {
	assert.Equal(t, 5.5, RoundHalfHour(5.5))
	assert.Equal(t, 6.0, RoundHalfHour(5.75))
	assert.Equal(t, -3.5, RoundHalfHour(-3.5))
	assert.Equal(t, 8.5, RoundHalfHour(8.6))
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "UTC +5.5", FormatOffset(core.Offset{Hours: 5.5, Valid: true}))
	assert.Equal(t, "UTC -8", FormatOffset(core.Offset{Hours: -8, Valid: true}))
	assert.Equal(t, "UTC +0", FormatOffset(core.Offset{Valid: true}))
	assert.Equal(t, "UTC ?", FormatOffset(core.Unresolved))
}

func TestViewerZone(t *testing.T) {
	at := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	noLink := func(string) (string, error) { return "", errors.New("no link") }

	t.Run("TZ env", func(t *testing.T) {
		r := newTestResolver(at)
		r.getenv = func(string) string { return ":Europe/Berlin" }
		r.readlink = noLink

		v := r.ViewerZone()
		assert.Equal(t, "Europe/Berlin", v.Zone)
		assert.InDelta(t, 2.0, v.OffsetHours, 1e-9)
	})

	t.Run("localtime symlink", func(t *testing.T) {
		r := newTestResolver(at)
		r.getenv = func(string) string { return "" }
		r.readlink = func(string) (string, error) {
			return "/usr/share/zoneinfo/Asia/Kolkata", nil
		}

		v := r.ViewerZone()
		assert.Equal(t, "Asia/Kolkata", v.Zone)
		assert.InDelta(t, 5.5, v.OffsetHours, 1e-9)
	})

	t.Run("invalid env falls through", func(t *testing.T) {
		r := newTestResolver(at)
		r.getenv = func(string) string { return "Mars/Olympus" }
		r.readlink = func(string) (string, error) {
			return "../zoneinfo/America/Chicago", nil
		}

		assert.Equal(t, "America/Chicago", r.ViewerZone().Zone)
	})

	t.Run("nothing resolves", func(t *testing.T) {
		r := newTestResolver(at)
		r.getenv = func(string) string { return "" }
		r.readlink = noLink
		r.load = func(string) (*time.Location, error) { return nil, errors.New("no tzdata") }

		v := r.ViewerZone()
		assert.Equal(t, UTCZone, v.Zone)
		assert.Zero(t, v.OffsetHours)
	})
}
