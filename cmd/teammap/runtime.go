package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/teammap/teammap/internal/config"
	"github.com/teammap/teammap/internal/logging"
	intOtel "github.com/teammap/teammap/internal/otel"
	"github.com/teammap/teammap/internal/session"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// runtime holds the process-wide logging and telemetry of one run.
type runtime struct {
	start   time.Time
	level   string
	logPath string
	logFile *os.File
	slog    *logging.SlogManager
	otel    *intOtel.Provider
	gelf    *gelf.Writer
}

// setupRuntime loads the config and moves logging from stderr to the
// session log file, adding the OTel and Graylog sinks when enabled.
func setupRuntime(configDir string) (*runtime, error) {
	rt := &runtime{
		start: time.Now(),
		slog:  logging.NewSlogManager(),
	}

	// stderr until the log file exists
	rt.slog.Setup(os.Stderr, "info", nil)
	logger := rt.slog.Logger()

	if err := config.Load(configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		logger.Info("Loaded config", "dir", configDir)
	}
	rt.level = config.GetString("logLevel")

	rt.logPath = logging.LogFilePath(config.GetString("logsDir"), Name, rt.start)
	f, err := logging.OpenLogFile(rt.logPath)
	if err != nil {
		return nil, err
	}
	rt.logFile = f

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		rt.otel, err = intOtel.New(intOtel.FromSettings(otelCfg, f))
		if err != nil {
			logger.Error("Failed to initialize OTel provider", "error", err)
		} else if otelCfg.Endpoint != "" {
			logger.Info("OTel provider initialized", "file", rt.logPath, "endpoint", otelCfg.Endpoint)
		} else {
			logger.Info("OTel provider initialized", "file", rt.logPath)
		}
	}

	var extra []slog.Handler
	if config.GetBool("graylog.enabled") {
		addr := config.GetString("graylog.address")
		h, w, err := logging.NewGelfHandler(addr, rt.level)
		if err != nil {
			logger.Warn("Graylog sink unavailable", "address", addr, "error", err)
		} else {
			extra = append(extra, h)
			rt.gelf = w
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if rt.otel != nil {
		otelLogProvider = rt.otel.LoggerProvider()
	}
	rt.slog.Setup(f, rt.level, otelLogProvider, extra...)
	rt.slog.Logger().Info("Logging to file", "path", rt.logPath, "version", Version)
	return rt, nil
}

// zerolog returns a logger for the manager-style subsystems, writing to the
// session log file.
func (rt *runtime) zerolog(component string) zerolog.Logger {
	return logging.NewZerolog(rt.logFile, rt.level, component)
}

func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := rt.slog.Logger()
	logger.Info("Session finished", "duration", time.Since(rt.start).Round(time.Second))

	if err := rt.slog.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "flushing logs: %v\n", err)
	}
	if rt.otel != nil {
		if err := rt.otel.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "shutting down telemetry: %v\n", err)
		}
	}
	if rt.gelf != nil {
		rt.gelf.Close()
	}
	if rt.logFile != nil {
		rt.logFile.Close()
	}
}

// sessionAttrs feeds the session's log attributes to the context handler.
// The session is created after logging is set up, so it starts empty.
type sessionAttrs struct {
	s atomic.Pointer[session.Session]
}

func (a *sessionAttrs) set(s *session.Session) {
	a.s.Store(s)
}

func (a *sessionAttrs) attrs() []slog.Attr {
	if s := a.s.Load(); s != nil {
		return s.LogAttrs()
	}
	return nil
}
