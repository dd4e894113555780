// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/teammap/teammap/internal/model"
	"github.com/teammap/teammap/pkg/core"

	"gorm.io/datatypes"
)

// toJSON marshals v for a JSON column, falling back to empty.
func toJSON(v any, empty string) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON(empty)
	}
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session to a GORM model.Session.
func CoreToSession(s core.Session) model.Session {
	m := model.Session{
		ViewerTZ:    s.ViewerTZ,
		OffsetHours: s.OffsetHours,
		Coordinator: s.Coordinator,
		StartedAt:   s.StartedAt,
	}
	m.ID = s.ID
	return m
}

// CoreToSelection converts a core.SelectionRecord to a GORM model.Selection.
func CoreToSelection(r core.SelectionRecord) model.Selection {
	return model.Selection{
		Time:   r.Time,
		Source: r.Source,
		AFrac:  r.AFrac,
		BFrac:  r.BFrac,
	}
}

// CoreToClassification converts a core.ClassificationRecord to a GORM model.Classification.
// States are stored as their integer codes.
func CoreToClassification(r core.ClassificationRecord) model.Classification {
	codes := make(map[string]int, len(r.Statuses))
	for id, st := range r.Statuses {
		codes[id] = int(st)
	}
	return model.Classification{
		Time:                 r.Time,
		Statuses:             toJSON(codes, "{}"),
		HighlightedTimezones: toJSON(r.HighlightedTimezones, "[]"),
		Working:              r.Summary.Working,
		Edge:                 r.Summary.Edge,
		Off:                  r.Summary.Off,
		Unset:                r.Summary.Unset,
	}
}

// CoreToOverlaySnapshot converts a core.OverlayRecord to a GORM model.OverlaySnapshot.
func CoreToOverlaySnapshot(r core.OverlayRecord) model.OverlaySnapshot {
	feature := datatypes.JSON("{}")
	if len(r.Feature) > 0 {
		feature = datatypes.JSON(r.Feature)
	}
	return model.OverlaySnapshot{
		Time:              r.Time,
		NightSide:         r.NightSide,
		DeclinationDeg:    r.DeclinationDeg,
		EquationOfTimeMin: r.EquationOfTimeMin,
		Points:            r.Points,
		Feature:           feature,
	}
}

// SelectionToCore converts a GORM Selection to a core.SelectionRecord.
func SelectionToCore(m model.Selection) core.SelectionRecord {
	return core.SelectionRecord{
		Time:   m.Time,
		Source: m.Source,
		AFrac:  m.AFrac,
		BFrac:  m.BFrac,
	}
}

// ClassificationToCore converts a GORM Classification to a core.ClassificationRecord.
// A malformed JSON column is an error; an empty one decodes to no values.
func ClassificationToCore(m model.Classification) (core.ClassificationRecord, error) {
	var codes map[string]int
	if err := fromJSON(m.Statuses, &codes); err != nil {
		return core.ClassificationRecord{}, fmt.Errorf("classification statuses: %w", err)
	}
	statuses := make(map[string]core.MarkerState, len(codes))
	for id, code := range codes {
		statuses[id] = core.MarkerState(code)
	}

	var highlighted []string
	if err := fromJSON(m.HighlightedTimezones, &highlighted); err != nil {
		return core.ClassificationRecord{}, fmt.Errorf("classification highlighted timezones: %w", err)
	}

	return core.ClassificationRecord{
		Time:                 m.Time,
		Statuses:             statuses,
		HighlightedTimezones: highlighted,
		Summary: core.AvailabilitySummary{
			Working: m.Working,
			Edge:    m.Edge,
			Off:     m.Off,
			Unset:   m.Unset,
		},
	}, nil
}

func fromJSON(raw datatypes.JSON, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
