package scrubber

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teammap/teammap/internal/schedule"
	"github.com/teammap/teammap/pkg/core"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultThrottle is the minimum spacing between hover emissions.
const DefaultThrottle = 80 * time.Millisecond

// Emitter receives the selection windows produced by the scrubber.
type Emitter interface {
	Hover(iv core.Interval) error
	Commit(iv core.Interval) error
}

// Config tunes the scrubber. Zero values select the defaults.
type Config struct {
	Throttle  time.Duration
	Tolerance float64
	MinWidth  float64
}

// Scrubber drives a Selector from pointer input, throttles hover emissions
// and keeps the display in sync. All methods, and the clock's callbacks,
// must be serialized by the caller.
type Scrubber struct {
	sel      *Selector
	emitter  Emitter
	throttle *schedule.Throttle
	logger   *slog.Logger

	display   Display
	onDisplay func(Display)

	emitted metric.Int64Counter
	failed  metric.Int64Counter
}

var (
	hoverAttr  = metric.WithAttributes(attribute.String("kind", "hover"))
	commitAttr = metric.WithAttributes(attribute.String("kind", "commit"))
)

// New creates a Scrubber whose hover throttle runs on clock.
func New(cfg Config, clock schedule.Clock, emitter Emitter, logger *slog.Logger) (*Scrubber, error) {
	if cfg.Throttle <= 0 {
		cfg.Throttle = DefaultThrottle
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scrubber{
		sel:     NewSelector(cfg.Tolerance, cfg.MinWidth),
		emitter: emitter,
		logger:  logger,
		display: Placeholder(),
	}
	s.throttle = schedule.NewThrottle(clock, cfg.Throttle, s.flushHover)

	m := meter()
	var err error
	s.emitted, err = m.Int64Counter(
		"scrubber.emissions",
		metric.WithDescription("Selection windows sent to the coordinator"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating emissions counter: %w", err)
	}
	s.failed, err = m.Int64Counter(
		"scrubber.emissions.failed",
		metric.WithDescription("Selection windows the coordinator channel rejected"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return s, nil
}

// OnDisplay registers a callback invoked whenever the display changes.
func (s *Scrubber) OnDisplay(fn func(Display)) {
	s.onDisplay = fn
	if fn != nil {
		fn(s.display)
	}
}

// Display returns the current display state.
func (s *Scrubber) Display() Display {
	return s.display
}

// State returns the selector's gesture state.
func (s *Scrubber) State() State {
	return s.sel.State()
}

// Interval returns the current selection.
func (s *Scrubber) Interval() (core.Interval, bool) {
	return s.sel.Interval()
}

// PointerDown starts a drag at track fraction x.
func (s *Scrubber) PointerDown(x float64) {
	s.sel.PointerDown(x)
}

// PointerMove updates the selection and schedules a hover emission. Moves
// outside a drag are ignored.
func (s *Scrubber) PointerMove(x float64) {
	iv, ok := s.sel.PointerMove(x)
	if !ok {
		return
	}
	s.render(&iv)
	s.throttle.Trigger()
}

// PointerUp ends the drag and commits the selection if there is one. A
// pending hover is left to fire; replaying the same window is harmless.
func (s *Scrubber) PointerUp() {
	iv, ok := s.sel.PointerUp()
	if !ok {
		if _, has := s.sel.Interval(); !has {
			s.render(nil)
		}
		return
	}
	s.emit(s.emitter.Commit, iv, commitAttr, "commit")
}

// PointerLeave behaves like PointerUp.
func (s *Scrubber) PointerLeave() {
	s.PointerUp()
}

// Rehydrate applies a coordinator instruction to clear or restore the
// selection. A restored window is announced immediately.
func (s *Scrubber) Rehydrate(set core.SelectionSet) {
	if set.Clear || set.Range == nil {
		s.sel.Clear()
		s.render(nil)
		return
	}

	iv := s.sel.Set(set.Range.AFrac, set.Range.BFrac)
	s.render(&iv)
	s.emit(s.emitter.Hover, iv, hoverAttr, "hover")
}

// Clear drops the selection without notifying the coordinator.
func (s *Scrubber) Clear() {
	s.sel.Clear()
	s.render(nil)
}

// Stop cancels a pending hover emission.
func (s *Scrubber) Stop() {
	s.throttle.Stop()
}

func (s *Scrubber) flushHover() {
	iv, ok := s.sel.Interval()
	if !ok {
		return
	}
	s.emit(s.emitter.Hover, iv, hoverAttr, "hover")
}

func (s *Scrubber) emit(send func(core.Interval) error, iv core.Interval, attr metric.AddOption, kind string) {
	if err := send(iv); err != nil {
		s.failed.Add(context.Background(), 1, attr)
		s.logger.Warn("failed to send selection", "kind", kind, "error", err)
		return
	}
	s.emitted.Add(context.Background(), 1, attr)
}

func (s *Scrubber) render(iv *core.Interval) {
	s.display = Render(iv)
	if s.onDisplay != nil {
		s.onDisplay(s.display)
	}
}
