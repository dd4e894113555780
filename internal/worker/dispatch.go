package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teammap/teammap/internal/dispatcher"
	"github.com/teammap/teammap/internal/influx"
	"github.com/teammap/teammap/internal/solar"
	"github.com/teammap/teammap/pkg/core"
	"github.com/teammap/teammap/pkg/streaming"

	"github.com/peterstace/simplefeatures/geom"
)

// RegisterHandlers registers the inbound coordinator handlers with the
// dispatcher. Each type runs on its own worker, in arrival order.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(streaming.TypeOverlapUpdate, m.handleOverlapUpdate, dispatcher.Buffered(256), dispatcher.Logged())
	d.Register(streaming.TypeTimeSelectionSet, m.handleTimeSelectionSet, dispatcher.Buffered(64), dispatcher.Logged())
}

func (m *Manager) handleOverlapUpdate(e dispatcher.Event) (any, error) {
	c, err := m.deps.Parser.ParseClassification(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse overlap_update: %w", err)
	}

	sum := m.deps.Target.ApplyClassification(c)

	if m.hasJournal() {
		rec := core.ClassificationRecord{
			Time:                 e.Timestamp.UTC(),
			Statuses:             c.Statuses,
			HighlightedTimezones: c.HighlightedTimezones,
			Summary:              sum,
		}
		if err := m.deps.Journal.RecordClassification(&rec); err != nil {
			return sum, fmt.Errorf("failed to record classification: %w", err)
		}
	}
	m.writePoint(influx.BucketAvailability, influx.AvailabilityPoint(sum, m.deps.Target.ViewerTZ(), e.Timestamp))

	return sum, nil
}

func (m *Manager) handleTimeSelectionSet(e dispatcher.Event) (any, error) {
	set, err := m.deps.Parser.ParseSelectionSet(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse time_selection_set: %w", err)
	}

	iv, ok := m.deps.Target.ApplySelectionSet(set)

	rec := core.SelectionRecord{Time: e.Timestamp.UTC(), Source: core.SourceClear}
	if ok {
		r := iv.Range()
		rec.Source = core.SourceServer
		rec.AFrac, rec.BFrac = r.AFrac, r.BFrac
	}
	if err := m.record(rec); err != nil {
		return iv, err
	}
	return iv, nil
}

// RecordCommit journals a selection the viewer committed.
func (m *Manager) RecordCommit(iv core.Interval, at time.Time) error {
	r := iv.Range()
	return m.record(core.SelectionRecord{
		Time:   at.UTC(),
		Source: core.SourceCommit,
		AFrac:  r.AFrac,
		BFrac:  r.BFrac,
	})
}

func (m *Manager) record(rec core.SelectionRecord) error {
	if m.hasJournal() {
		if err := m.deps.Journal.RecordSelection(&rec); err != nil {
			return fmt.Errorf("failed to record selection: %w", err)
		}
	}
	if rec.Source != core.SourceClear {
		m.writePoint(influx.BucketSelection, influx.SelectionPoint(rec, m.deps.Target.ViewerTZ()))
	}
	return nil
}

// RecordOverlay journals a drawn night polygon.
func (m *Manager) RecordOverlay(np core.NightPolygon, f geom.GeoJSONFeature, at time.Time) error {
	if !m.hasJournal() {
		return nil
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode overlay feature: %w", err)
	}
	pos := solar.Compute(at)
	rec := core.OverlayRecord{
		Time:              at.UTC(),
		NightSide:         np.NightSide.String(),
		DeclinationDeg:    pos.DeclinationDeg,
		EquationOfTimeMin: pos.EquationOfTimeMin,
		Points:            len(np.Ring),
		Feature:           raw,
	}
	if err := m.deps.Journal.RecordOverlay(&rec); err != nil {
		return fmt.Errorf("failed to record overlay: %w", err)
	}
	return nil
}
