// Package monitor periodically writes a session status file.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/teammap/teammap/internal/influx"
	"github.com/teammap/teammap/internal/overlay"
	"github.com/teammap/teammap/internal/scrubber"
	"github.com/teammap/teammap/internal/tz"
	"github.com/teammap/teammap/internal/tzoverlay"
	"github.com/teammap/teammap/internal/worker"
	"github.com/teammap/teammap/pkg/core"
)

// DefaultInterval is used when Dependencies.Interval is not positive.
const DefaultInterval = 30 * time.Second

// Source is the session state the monitor reports on.
type Source interface {
	Selection() (core.Interval, bool)
	Display() scrubber.Display
	Summary() core.AvailabilitySummary
	HighlightedTimezones() []string
	Viewer() (tz.Viewer, bool)
	Overlay() overlay.Status
	Zones() ([]tzoverlay.Zone, string)
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Source   Source
	Metrics  worker.PointWriter
	Path     string
	Interval time.Duration
	Logger   *slog.Logger
}

// Status is the snapshot written to the status file.
type Status struct {
	Time           time.Time                `json:"time"`
	ViewerTZ       string                   `json:"viewerTz"`
	Selection      *core.Range              `json:"selection"`
	SelectionText  string                   `json:"selectionText"`
	Summary        core.AvailabilitySummary `json:"summary"`
	Highlighted    []string                 `json:"highlightedTimezones,omitempty"`
	Overlay        overlay.Status           `json:"overlay"`
	TimezoneSource string                   `json:"timezoneSource,omitempty"`
	Zones          int                      `json:"zones"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	now       func() time.Time
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		deps:     deps,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current program status
func (s *Service) GetStatus() Status {
	src := s.deps.Source
	st := Status{
		Time:          s.now().UTC(),
		SelectionText: src.Display().TimeText,
		Summary:       src.Summary(),
		Highlighted:   src.HighlightedTimezones(),
		Overlay:       src.Overlay(),
	}
	if v, ok := src.Viewer(); ok {
		st.ViewerTZ = v.Zone
	}
	if iv, ok := src.Selection(); ok {
		r := iv.Range()
		st.Selection = &r
	}
	zones, from := src.Zones()
	st.Zones = len(zones)
	st.TimezoneSource = from
	return st
}

// WriteStatus replaces the contents of f with one snapshot. With metrics
// configured the snapshot also goes to the status bucket.
func (s *Service) WriteStatus(f *os.File) error {
	st := s.GetStatus()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncating status file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("rewinding status file: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing status file: %w", err)
	}

	if s.deps.Metrics != nil {
		p := influx.StatusPoint(influx.StatusFields{
			Markers:         st.Summary.Working + st.Summary.Edge + st.Summary.Off + st.Summary.Unset,
			Zones:           st.Zones,
			OverlayFailures: st.Overlay.Failures,
			OverlayDegraded: st.Overlay.Degraded,
			Selected:        st.Selection != nil,
		}, st.ViewerTZ, st.Time)
		if err := s.deps.Metrics.WritePoint(context.Background(), influx.BucketStatus, p); err != nil {
			s.deps.Logger.Warn("Failed to write status point", "error", err)
		}
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}

	if dir := filepath.Dir(s.deps.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("creating status directory: %w", err)
		}
	}
	statusFile, err := os.Create(s.deps.Path)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("creating status file: %w", err)
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		defer statusFile.Close()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor", "path", s.deps.Path, "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			if err := s.WriteStatus(statusFile); err != nil {
				logger.Error("Error writing status", "error", err)
			}
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the last write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning || s.stopChan == nil {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.stopChan = nil
	done := s.done
	s.mu.Unlock()
	<-done
}
