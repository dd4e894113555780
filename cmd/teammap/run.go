package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/teammap/teammap/internal/api"
	"github.com/teammap/teammap/internal/channel"
	"github.com/teammap/teammap/internal/config"
	"github.com/teammap/teammap/internal/influx"
	"github.com/teammap/teammap/internal/logging"
	"github.com/teammap/teammap/internal/monitor"
	"github.com/teammap/teammap/internal/render"
	"github.com/teammap/teammap/internal/scrubber"
	"github.com/teammap/teammap/internal/session"
	"github.com/teammap/teammap/internal/storage"
	"github.com/teammap/teammap/internal/tui"
	"github.com/teammap/teammap/internal/worker"

	"github.com/spf13/cobra"
)

// headlessTrack is the track size used until a terminal reports its width.
var headlessTrack = render.Rect{Width: 1000, Height: 1}

func newRunCmd(configDir *string) *cobra.Command {
	var useTUI bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the coordinator and keep the map up to date",
		Long: `Connects to the coordinator, registers the viewer timezone, places the
team roster and keeps the night overlay current until interrupted.
With --tui the time window is selected by dragging across the terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), *configDir, useTUI)
		},
	}
	cmd.Flags().BoolVar(&useTUI, "tui", false, "select the time window from the terminal")

	return cmd
}

func runSession(ctx context.Context, configDir string, useTUI bool) error {
	rt, err := setupRuntime(configDir)
	if err != nil {
		return err
	}
	defer rt.close()

	attrs := &sessionAttrs{}
	rt.slog.WithContext(attrs.attrs)
	logger := rt.slog.Logger()

	var points worker.PointWriter
	metrics := influx.NewManager(rt.zerolog("influx"), filepath.Join(config.GetString("logsDir"), "influx_backup.lp.gz"))
	switch err := metrics.Connect(); {
	case errors.Is(err, influx.ErrDisabled):
		logger.Debug("InfluxDB disabled")
	case err != nil:
		logger.Warn("InfluxDB unavailable", "error", err)
	default:
		points = metrics
		defer func() {
			if err := metrics.Close(); err != nil {
				logger.Warn("Failed to close InfluxDB", "error", err)
			}
		}()
	}

	journal, err := storage.NewBackend(config.GetStorageConfig(), rt.slog.Component("storage"))
	if err != nil {
		return fmt.Errorf("creating journal: %w", err)
	}

	apiCfg := config.GetAPIConfig()
	client := api.NewFromConfig(apiCfg, rt.slog.Component("api"))
	if err := client.Healthcheck(); err != nil {
		logger.Info("Roster server is offline", "url", apiCfg.ServerURL, "error", err)
	} else {
		logger.Info("Roster server is online", "url", apiCfg.ServerURL)
	}

	surface := render.NewMemorySurface(headlessTrack)
	sess, err := session.New(session.Dependencies{
		Surface:        surface,
		Coordinator:    config.GetCoordinatorConfig(),
		Journal:        journal,
		Metrics:        points,
		Roster:         client,
		Boundaries:     client,
		Sources:        apiCfg.TimezoneSources,
		Overlay:        config.GetOverlayConfig(),
		Scrubber:       config.GetScrubberConfig(),
		Logger:         rt.slog.Component("session"),
		DispatchLogger: logging.NewDispatcherLogger(rt.zerolog("dispatcher")),
	})
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	attrs.set(sess)
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Error("Failed to close session", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sess.Start(ctx); err != nil {
		return err
	}

	if monCfg := config.GetMonitorConfig(); monCfg.Enabled {
		mon := monitor.NewService(monitor.Dependencies{
			Source:   sess,
			Metrics:  points,
			Path:     monCfg.Path,
			Interval: monCfg.Interval,
			Logger:   rt.slog.Component("monitor"),
		})
		if err := mon.Start(); err != nil {
			logger.Warn("Status monitor unavailable", "error", err)
		} else {
			defer mon.Stop()
		}
	}

	if useTUI {
		updates := channel.NewBuffered[scrubber.Display](8)
		sess.OnDisplay(func(d scrubber.Display) { updates.TrySend(d) })
		return tui.Run(sess, surface, updates)
	}

	sess.OnDisplay(func(d scrubber.Display) {
		logger.Info("Selection changed", "time", d.TimeText, "duration", d.DurationText)
	})
	logger.Info("Running headless", "log", rt.logPath)
	fmt.Fprintf(os.Stderr, "%s running, logging to %s\n", Name, rt.logPath)

	<-ctx.Done()
	logger.Info("Shutting down")
	return nil
}
