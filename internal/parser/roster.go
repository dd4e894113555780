package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/teammap/teammap/internal/geo"
	"github.com/teammap/teammap/pkg/core"
)

var (
	ErrMissingID       = errors.New("person has no id")
	ErrMissingPosition = errors.New("person has no position")
)

// ParseRoster decodes the team roster. It accepts either a bare array or
// an object with a "users" array. Invalid entries and repeated IDs are
// skipped and logged.
func (p *Parser) ParseRoster(data []byte) ([]core.Person, error) {
	var entries []json.RawMessage

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env rosterEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("error unmarshalling roster: %w", err)
		}
		entries = env.Users
	} else if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("error unmarshalling roster: %w", err)
	}

	people := make([]core.Person, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, raw := range entries {
		person, err := p.ParsePerson(raw)
		if err != nil {
			p.logger.Warn("Skipping roster entry", "index", i, "error", err)
			continue
		}
		if _, dup := seen[person.ID]; dup {
			p.logger.Warn("Skipping duplicate roster entry", "index", i, "id", person.ID)
			continue
		}
		seen[person.ID] = struct{}{}
		people = append(people, person)
	}

	p.logger.Debug("Parsed roster", "entries", len(entries), "people", len(people))
	return people, nil
}

// ParsePerson decodes one roster entry. Explicit longitude/latitude win
// over the location string.
func (p *Parser) ParsePerson(data []byte) (core.Person, error) {
	var e rosterEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return core.Person{}, fmt.Errorf("error unmarshalling person: %w", err)
	}

	id, err := personID(e.ID)
	if err != nil {
		return core.Person{}, err
	}

	person := core.Person{
		ID:             id,
		Name:           strings.TrimSpace(e.Name),
		Timezone:       strings.TrimSpace(e.Timezone),
		ProfilePicture: e.ProfilePicture,
	}

	switch {
	case e.Longitude != nil && e.Latitude != nil:
		pos, err := geo.Position2DFromString(
			strconv.FormatFloat(*e.Longitude, 'f', -1, 64) + "," + strconv.FormatFloat(*e.Latitude, 'f', -1, 64),
		)
		if err != nil {
			return core.Person{}, fmt.Errorf("person %s: %w", id, err)
		}
		person.Longitude, person.Latitude = pos.Lon, pos.Lat
	case e.Location != "":
		pos, err := geo.Position2DFromString(e.Location)
		if err != nil {
			return core.Person{}, fmt.Errorf("person %s: %w", id, err)
		}
		person.Longitude, person.Latitude = pos.Lon, pos.Lat
	default:
		return core.Person{}, fmt.Errorf("person %s: %w", id, ErrMissingPosition)
	}

	return person, nil
}

// personID normalizes a string or integral numeric id.
func personID(raw json.RawMessage) (string, error) {
	tok := string(bytes.TrimSpace(raw))
	if tok == "" || tok == "null" {
		return "", ErrMissingID
	}
	if tok[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("error unmarshalling id: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", ErrMissingID
		}
		return s, nil
	}
	v, err := parseIntFromFloat(tok)
	if err != nil {
		return "", fmt.Errorf("id %s: %w", tok, err)
	}
	return strconv.FormatInt(v, 10), nil
}
