package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/teammap/teammap/pkg/core"
	"github.com/teammap/teammap/pkg/streaming"
)

var (
	ErrMissingType         = errors.New("envelope has no type")
	ErrMissingStatuses     = errors.New("overlap_update has no statuses")
	ErrNoValidStatuses     = errors.New("overlap_update has no valid status")
	ErrIncompleteSelection = errors.New("time_selection_set needs clear or both a_frac and b_frac")
)

// parseIntFromFloat parses a JSON number that may be written as an integer
// ("2") or an integral float ("2.0", "2e0") into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// statusCode reads one classification value. Only JSON numbers with an
// integral value are accepted.
func statusCode(raw json.RawMessage) (int, error) {
	tok := string(bytes.TrimSpace(raw))
	if tok == "" || tok[0] == '"' || tok == "null" || tok == "true" || tok == "false" {
		return 0, fmt.Errorf("status %s is not a number", tok)
	}
	v, err := parseIntFromFloat(tok)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Parser provides pure bytes -> core struct conversion for coordinator
// traffic and roster data. It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseEnvelope decodes one websocket frame.
func (p *Parser) ParseEnvelope(data []byte) (streaming.Envelope, error) {
	var env streaming.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("error unmarshalling envelope: %w", err)
	}
	if env.Type == "" {
		return env, ErrMissingType
	}
	return env, nil
}

// ParseAck decodes an acknowledgement frame.
func (p *Parser) ParseAck(data []byte) (streaming.AckMessage, error) {
	var ack streaming.AckMessage
	if err := json.Unmarshal(data, &ack); err != nil {
		return ack, fmt.Errorf("error unmarshalling ack: %w", err)
	}
	if ack.Type != streaming.TypeAck {
		return ack, fmt.Errorf("not an ack: %q", ack.Type)
	}
	return ack, nil
}

// ParseClassification decodes an overlap_update payload. A value that is
// not an integer drops only its own key. An empty statuses object is a
// valid reset; a payload whose every value is invalid is rejected so it is
// not mistaken for one.
func (p *Parser) ParseClassification(payload json.RawMessage) (core.Classification, error) {
	var raw streaming.OverlapUpdatePayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return core.Classification{}, fmt.Errorf("error unmarshalling overlap_update: %w", err)
	}
	if raw.Statuses == nil {
		return core.Classification{}, ErrMissingStatuses
	}

	c := core.Classification{
		Statuses:             make(map[string]core.MarkerState, len(raw.Statuses)),
		HighlightedTimezones: raw.HighlightedTimezones,
	}
	for id, value := range raw.Statuses {
		if id == "" {
			p.logger.Warn("Skipping status with empty person id")
			continue
		}
		code, err := statusCode(value)
		if err != nil {
			p.logger.Warn("Skipping malformed status", "person", id, "error", err)
			continue
		}
		c.Statuses[id] = core.StateFromCode(code)
	}

	if len(raw.Statuses) > 0 && len(c.Statuses) == 0 {
		return core.Classification{}, ErrNoValidStatuses
	}
	return c, nil
}

// ParseSelectionSet decodes a time_selection_set payload. Fractions are
// not clamped here; the selector clamps them.
func (p *Parser) ParseSelectionSet(payload json.RawMessage) (core.SelectionSet, error) {
	var raw streaming.TimeSelectionSetPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return core.SelectionSet{}, fmt.Errorf("error unmarshalling time_selection_set: %w", err)
	}
	if raw.Clear {
		return core.SelectionSet{Clear: true}, nil
	}
	if raw.AFrac == nil || raw.BFrac == nil {
		return core.SelectionSet{}, ErrIncompleteSelection
	}
	return core.SelectionSet{Range: &core.Range{AFrac: *raw.AFrac, BFrac: *raw.BFrac}}, nil
}
