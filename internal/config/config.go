package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "teammap.cfg.json"

// OverlayConfig holds day/night overlay refresh settings
type OverlayConfig struct {
	RefreshInterval time.Duration
	MaxFailures     int
}

// ScrubberConfig holds time-range selector settings
type ScrubberConfig struct {
	Throttle  time.Duration
	Tolerance float64
	MinWidth  float64
}

// CoordinatorConfig holds the event channel settings
type CoordinatorConfig struct {
	Type   string // "websocket" or "memory"
	URL    string
	Secret string
}

// APIConfig holds the roster and timezone boundary sources
type APIConfig struct {
	ServerURL       string
	APIKey          string
	TimezoneSources []string
	Timeout         time.Duration
}

// MemoryConfig holds in-memory journal settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite journal settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig holds selection journal settings
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled        bool
	ServiceName    string
	BatchTimeout   time.Duration
	MetricInterval time.Duration
	Endpoint       string
	Insecure       bool
}

// MonitorConfig holds status file settings
type MonitorConfig struct {
	Enabled  bool
	Interval time.Duration
	Path     string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers every default value. Load calls it; commands that
// run without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./teammaplogs")

	viper.SetDefault("coordinator.type", "websocket")
	viper.SetDefault("coordinator.url", "ws://localhost:4000/socket/teammap")
	viper.SetDefault("coordinator.secret", "")

	viper.SetDefault("overlay.refreshInterval", "1m")
	viper.SetDefault("overlay.maxFailures", 3)

	viper.SetDefault("scrubber.throttle", "80ms")
	viper.SetDefault("scrubber.tolerance", 0.03)
	viper.SetDefault("scrubber.minWidth", 0.02)

	viper.SetDefault("api.serverUrl", "http://localhost:4000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.timeout", "10s")
	viper.SetDefault("api.timezoneSources", []string{
		"/data/timezones.geojson",
		"https://raw.githubusercontent.com/evansiroky/timezone-boundary-builder/master/dist/timezones.geojson",
	})

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./journal")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./journal/teammap.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "teammap")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "teammap-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "30s")
	viper.SetDefault("monitor.path", "./teammaplogs/status.json")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "teammap")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.metricInterval", "1m")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetOverlayConfig returns the overlay refresh settings.
func GetOverlayConfig() OverlayConfig {
	return OverlayConfig{
		RefreshInterval: viper.GetDuration("overlay.refreshInterval"),
		MaxFailures:     viper.GetInt("overlay.maxFailures"),
	}
}

// GetScrubberConfig returns the selector settings.
func GetScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		Throttle:  viper.GetDuration("scrubber.throttle"),
		Tolerance: viper.GetFloat64("scrubber.tolerance"),
		MinWidth:  viper.GetFloat64("scrubber.minWidth"),
	}
}

// GetCoordinatorConfig returns the coordinator channel settings.
func GetCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Type:   viper.GetString("coordinator.type"),
		URL:    viper.GetString("coordinator.url"),
		Secret: viper.GetString("coordinator.secret"),
	}
}

// GetAPIConfig returns the roster and boundary source settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL:       viper.GetString("api.serverUrl"),
		APIKey:          viper.GetString("api.apiKey"),
		TimezoneSources: viper.GetStringSlice("api.timezoneSources"),
		Timeout:         viper.GetDuration("api.timeout"),
	}
}

// GetStorageConfig returns the journal settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// GetMonitorConfig returns the status file settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:  viper.GetBool("monitor.enabled"),
		Interval: viper.GetDuration("monitor.interval"),
		Path:     viper.GetString("monitor.path"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
	}
}
