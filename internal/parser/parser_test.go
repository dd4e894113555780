package parser

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teammap/teammap/internal/geo"
	"github.com/teammap/teammap/pkg/core"
	"github.com/teammap/teammap/pkg/streaming"
)

func newTestParser() *Parser {
	return NewParser(slog.Default())
}

func TestNewParser(t *testing.T) {
	require.NotNil(t, newTestParser())
	require.NotNil(t, NewParser(nil).logger)
}

func TestParseIntFromFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"integer", "2", 2, false},
		{"negative", "-1", -1, false},
		{"float with trailing zero", "2.0", 2, false},
		{"exponent", "1e0", 1, false},
		{"fractional rejects", "1.5", 0, true},
		{"empty string", "", 0, true},
		{"non-numeric", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIntFromFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseEnvelope(t *testing.T) {
	p := newTestParser()

	env, err := p.ParseEnvelope([]byte(`{"type":"overlap_update","payload":{"statuses":{}}}`))
	require.NoError(t, err)
	assert.Equal(t, streaming.TypeOverlapUpdate, env.Type)
	assert.JSONEq(t, `{"statuses":{}}`, string(env.Payload))

	_, err = p.ParseEnvelope([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, ErrMissingType)

	_, err = p.ParseEnvelope([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseAck(t *testing.T) {
	p := newTestParser()

	ack, err := p.ParseAck([]byte(`{"type":"ack","for":"set_viewer_tz"}`))
	require.NoError(t, err)
	assert.Equal(t, streaming.TypeSetViewerTZ, ack.For)

	_, err = p.ParseAck([]byte(`{"type":"overlap_update"}`))
	assert.Error(t, err)
}

func TestParseClassification(t *testing.T) {
	p := newTestParser()

	c, err := p.ParseClassification(json.RawMessage(`{
		"statuses": {"u1": 2, "u2": 1, "u3": 0, "u4": 7, "u5": 2.0},
		"highlighted_timezones": ["Europe/Berlin"]
	}`))
	require.NoError(t, err)

	assert.Equal(t, map[string]core.MarkerState{
		"u1": core.StateWorking,
		"u2": core.StateEdge,
		"u3": core.StateOff,
		"u4": core.StateOff,
		"u5": core.StateWorking,
	}, c.Statuses)
	assert.Equal(t, []string{"Europe/Berlin"}, c.HighlightedTimezones)
}

func TestParseClassification_MalformedValuesDropOnlyTheirKey(t *testing.T) {
	p := newTestParser()

	c, err := p.ParseClassification(json.RawMessage(`{
		"statuses": {"ok": 1, "str": "2", "frac": 1.5, "nil": null, "bool": true, "obj": {}, "": 2}
	}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]core.MarkerState{"ok": core.StateEdge}, c.Statuses)
}

func TestParseClassification_EmptyIsReset(t *testing.T) {
	p := newTestParser()

	c, err := p.ParseClassification(json.RawMessage(`{"statuses": {}}`))
	require.NoError(t, err)
	assert.NotNil(t, c.Statuses)
	assert.Empty(t, c.Statuses)
}

func TestParseClassification_Errors(t *testing.T) {
	p := newTestParser()

	_, err := p.ParseClassification(json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrMissingStatuses)

	_, err = p.ParseClassification(json.RawMessage(`{"statuses": null}`))
	assert.ErrorIs(t, err, ErrMissingStatuses)

	_, err = p.ParseClassification(json.RawMessage(`{"statuses": {"a": "x", "b": 0.5}}`))
	assert.ErrorIs(t, err, ErrNoValidStatuses)

	_, err = p.ParseClassification(json.RawMessage(`{"statuses": [1, 2]}`))
	assert.Error(t, err)
}

func TestParseSelectionSet(t *testing.T) {
	p := newTestParser()

	set, err := p.ParseSelectionSet(json.RawMessage(`{"clear": true}`))
	require.NoError(t, err)
	assert.True(t, set.Clear)
	assert.Nil(t, set.Range)

	set, err = p.ParseSelectionSet(json.RawMessage(`{"a_frac": 0.25, "b_frac": 0.5}`))
	require.NoError(t, err)
	assert.False(t, set.Clear)
	require.NotNil(t, set.Range)
	assert.Equal(t, core.Range{AFrac: 0.25, BFrac: 0.5}, *set.Range)

	// out of range values are left for the selector to clamp
	set, err = p.ParseSelectionSet(json.RawMessage(`{"a_frac": -0.5, "b_frac": 2}`))
	require.NoError(t, err)
	assert.Equal(t, core.Range{AFrac: -0.5, BFrac: 2}, *set.Range)
}

func TestParseSelectionSet_Errors(t *testing.T) {
	p := newTestParser()

	_, err := p.ParseSelectionSet(json.RawMessage(`{"a_frac": 0.25}`))
	assert.ErrorIs(t, err, ErrIncompleteSelection)

	_, err = p.ParseSelectionSet(json.RawMessage(`{"clear": false}`))
	assert.ErrorIs(t, err, ErrIncompleteSelection)

	_, err = p.ParseSelectionSet(json.RawMessage(`{"a_frac": "x", "b_frac": 1}`))
	assert.Error(t, err)
}

func TestParseRoster(t *testing.T) {
	p := newTestParser()

	people, err := p.ParseRoster([]byte(`[
		{"id": 1, "name": " Ada ", "longitude": -0.1276, "latitude": 51.5072, "timezone": "Europe/London", "profile_picture": "/a.png"},
		{"id": "u-2", "name": "Grace", "location": "139.69, 35.68", "timezone": "Asia/Tokyo"},
		{"id": 1, "name": "Duplicate", "longitude": 0, "latitude": 0},
		{"name": "No id", "longitude": 0, "latitude": 0},
		{"id": "u-3", "name": "Nowhere"},
		{"id": "u-4", "name": "Off map", "longitude": 200, "latitude": 0}
	]`))
	require.NoError(t, err)
	require.Len(t, people, 2)

	assert.Equal(t, core.Person{
		ID:             "1",
		Name:           "Ada",
		Longitude:      -0.1276,
		Latitude:       51.5072,
		Timezone:       "Europe/London",
		ProfilePicture: "/a.png",
	}, people[0])
	assert.Equal(t, "u-2", people[1].ID)
	assert.Equal(t, 139.69, people[1].Longitude)
	assert.Equal(t, 35.68, people[1].Latitude)
}

func TestParseRoster_ObjectForm(t *testing.T) {
	p := newTestParser()

	people, err := p.ParseRoster([]byte(`{"users": [{"id": "a", "longitude": 10, "latitude": 20}]}`))
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "a", people[0].ID)
}

func TestParseRoster_Invalid(t *testing.T) {
	p := newTestParser()

	_, err := p.ParseRoster([]byte(`{"users": 3}`))
	assert.Error(t, err)

	_, err = p.ParseRoster([]byte(`nope`))
	assert.Error(t, err)

	people, err := p.ParseRoster([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, people)
}

func TestParsePerson_Errors(t *testing.T) {
	p := newTestParser()

	_, err := p.ParsePerson([]byte(`{"id": " ", "longitude": 1, "latitude": 1}`))
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = p.ParsePerson([]byte(`{"id": 1.5, "longitude": 1, "latitude": 1}`))
	assert.Error(t, err)

	_, err = p.ParsePerson([]byte(`{"id": "a", "location": "x,y"}`))
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)

	_, err = p.ParsePerson([]byte(`{"id": "a", "longitude": 1}`))
	assert.ErrorIs(t, err, ErrMissingPosition)
}
