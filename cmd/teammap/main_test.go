package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "migrate", "terminator", "solar", "offset"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestParseAt(t *testing.T) {
	fixed := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return fixed }

	got, err := parseAt("", now)
	require.NoError(t, err)
	assert.Equal(t, fixed, got)

	got, err = parseAt("2024-06-21T14:30:00+02:00", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 21, 12, 30, 0, 0, time.UTC), got)

	_, err = parseAt("yesterday", now)
	assert.ErrorContains(t, err, "RFC 3339")
}

func TestTerminatorCmd(t *testing.T) {
	out, err := execute(t, "terminator", "--at", "2024-06-21T12:00:00Z")
	require.NoError(t, err)

	var f struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string         `json:"type"`
			Coordinates [][][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &f))
	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, "Polygon", f.Geometry.Type)
	assert.Equal(t, "south", f.Properties["nightSide"])
	require.Len(t, f.Geometry.Coordinates, 1)

	ring := f.Geometry.Coordinates[0]
	require.NotEmpty(t, ring)
	assert.Equal(t, ring[0], ring[len(ring)-1])
	for _, p := range ring {
		assert.InDelta(t, 0, p[0], 180)
		assert.InDelta(t, 0, p[1], 90)
	}
}

func TestTerminatorCmd_Mercator(t *testing.T) {
	out, err := execute(t, "terminator", "--at", "2024-06-21T12:00:00Z", "--mercator")
	require.NoError(t, err)
	assert.Contains(t, out, "EPSG:3857")
	assert.Contains(t, out, `"Polygon"`)
}

func TestTerminatorCmd_BadInstant(t *testing.T) {
	_, err := execute(t, "terminator", "--at", "noon")
	assert.ErrorContains(t, err, "RFC 3339")
}

func TestSolarCmd(t *testing.T) {
	out, err := execute(t, "solar", "--at", "2024-06-21T12:00:00Z")
	require.NoError(t, err)

	assert.Contains(t, out, "time              2024-06-21T12:00:00Z")
	assert.Contains(t, out, "declination       23.4")
	assert.Contains(t, out, "night side        south")
}

func TestOffsetCmd(t *testing.T) {
	out, err := execute(t, "offset", "Asia/Kolkata")
	require.NoError(t, err)
	assert.Contains(t, out, "Asia/Kolkata  UTC +5.5")

	out, err = execute(t, "offset", "UTC+05:45")
	require.NoError(t, err)
	assert.Contains(t, out, "UTC +5.75")
}

func TestOffsetCmd_Errors(t *testing.T) {
	_, err := execute(t, "offset", "Mars/Olympus")
	assert.ErrorContains(t, err, `unknown timezone "Mars/Olympus"`)

	_, err = execute(t, "offset")
	assert.Error(t, err)
}

func TestSessionAttrs_EmptyBeforeSession(t *testing.T) {
	var a sessionAttrs
	assert.Nil(t, a.attrs())
}
