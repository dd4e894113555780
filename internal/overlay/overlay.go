// Package overlay keeps the night region on the render surface current.
package overlay

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teammap/teammap/internal/geo"
	"github.com/teammap/teammap/internal/render"
	"github.com/teammap/teammap/internal/schedule"
	"github.com/teammap/teammap/internal/solar"
	"github.com/teammap/teammap/pkg/core"

	"github.com/peterstace/simplefeatures/geom"
)

// Defaults for Config.
const (
	DefaultRefreshInterval = time.Minute
	DefaultMaxFailures     = 3
)

// PlaceholderText is shown in place of the overlay once it gives up.
const PlaceholderText = "Day/night overlay unavailable"

// Config controls the refresh cadence and failure budget.
type Config struct {
	RefreshInterval time.Duration
	MaxFailures     int
}

// Status is a snapshot for monitoring.
type Status struct {
	Running   bool      `json:"running"`
	Degraded  bool      `json:"degraded"`
	Failures  int       `json:"failures"`
	LastDrawn time.Time `json:"lastDrawn"`
	NightSide string    `json:"nightSide,omitempty"`
}

// NightOverlay recomputes the night polygon on a fixed cadence and replaces
// the surface's overlay source each time.
type NightOverlay struct {
	surface render.Surface
	clock   schedule.Clock
	cfg     Config
	logger  *slog.Logger

	mu        sync.Mutex
	task      *schedule.Task
	failures  int
	degraded  bool
	lastDrawn time.Time
	last      core.NightPolygon
	onDraw    DrawFunc
}

// DrawFunc observes every polygon pushed to the surface.
type DrawFunc func(np core.NightPolygon, f geom.GeoJSONFeature, at time.Time)

// New creates a NightOverlay. Zero config fields select the defaults.
func New(surface render.Surface, clock schedule.Clock, cfg Config, logger *slog.Logger) *NightOverlay {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if clock == nil {
		clock = schedule.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NightOverlay{
		surface: surface,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start draws the overlay immediately and then on every refresh interval.
// Calling Start on a running overlay does nothing.
func (o *NightOverlay) Start() {
	o.mu.Lock()
	if o.task != nil || o.degraded {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	_ = o.Refresh()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.degraded {
		return
	}
	o.task = schedule.Every(o.clock, o.cfg.RefreshInterval, func() { _ = o.Refresh() })
}

// Stop cancels the refresh task.
func (o *NightOverlay) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
}

func (o *NightOverlay) stopLocked() {
	if o.task != nil {
		o.task.Stop()
		o.task = nil
	}
}

// Refresh computes the polygon for the current instant and pushes it to
// the surface. After MaxFailures consecutive failures the overlay shows a
// placeholder and stops refreshing.
func (o *NightOverlay) Refresh() error {
	now := o.clock.Now().UTC()
	np := geo.BuildNightPolygon(solar.Compute(now), now)

	f, err := o.draw(np, now)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err == nil {
		if o.failures > 0 {
			o.logger.Info("night overlay recovered", "failures", o.failures)
		}
		o.failures = 0
		o.lastDrawn = now
		o.last = np
		if o.onDraw != nil {
			o.onDraw(np, f, now)
		}
		return nil
	}

	o.failures++
	if o.failures == 1 {
		o.logger.Warn("night overlay update failed", "error", err)
	}
	if o.failures >= o.cfg.MaxFailures && !o.degraded {
		o.degraded = true
		o.stopLocked()
		o.surface.ShowPlaceholder(render.LayerNight, PlaceholderText)
		o.logger.Error("night overlay disabled", "failures", o.failures, "error", err)
	}
	return err
}

func (o *NightOverlay) draw(np core.NightPolygon, now time.Time) (geom.GeoJSONFeature, error) {
	f, err := geo.Feature(np)
	if err != nil {
		return f, fmt.Errorf("building night feature: %w", err)
	}
	f.Properties["updatedAt"] = now.Format(time.RFC3339)
	if err := o.surface.SetNightOverlay(f); err != nil {
		return f, fmt.Errorf("updating night overlay: %w", err)
	}
	return f, nil
}

// OnDraw registers fn to run after every successful draw.
func (o *NightOverlay) OnDraw(fn DrawFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onDraw = fn
}

// Degraded reports whether the overlay gave up.
func (o *NightOverlay) Degraded() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.degraded
}

// Polygon returns the last polygon drawn.
func (o *NightOverlay) Polygon() (core.NightPolygon, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last, !o.lastDrawn.IsZero()
}

// Status returns a snapshot of the overlay's state.
func (o *NightOverlay) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := Status{
		Running:   o.task != nil,
		Degraded:  o.degraded,
		Failures:  o.failures,
		LastDrawn: o.lastDrawn,
	}
	if !o.lastDrawn.IsZero() {
		st.NightSide = o.last.NightSide.String()
	}
	return st
}
