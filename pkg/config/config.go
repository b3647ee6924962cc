package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root workstore configuration.
type Config struct {
	// Storage configures the backing-store lifecycle and the SQLite
	// backend.
	Storage StorageConfig `yaml:"storage" validate:"required"`

	// Telemetry configures logging, tracing, and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig configures the storage manager and SQLite backend.
type StorageConfig struct {
	// BaseDir is the directory holding per-workspace working folders.
	BaseDir string `yaml:"base_dir" validate:"required"`

	// FormatVersion is the storage format version marker.
	FormatVersion string `yaml:"format_version" validate:"required"`

	// FailFast propagates open failures instead of degrading to the
	// no-op store. Intended for test and diagnostic use.
	FailFast bool `yaml:"fail_fast"`

	// WatchWorkingFolder invalidates the cached store when its database
	// is deleted externally.
	WatchWorkingFolder bool `yaml:"watch_working_folder"`

	// MaxOpenConns limits the SQLite connection pool per store.
	MaxOpenConns int `yaml:"max_open_conns" validate:"gte=0"`

	// MaxIdleConns limits idle pooled connections per store.
	MaxIdleConns int `yaml:"max_idle_conns" validate:"gte=0"`

	// ConnMaxLifetime bounds connection reuse.
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" validate:"gte=0"`
}

// TelemetryConfig configures the observability stack.
type TelemetryConfig struct {
	// LogLevel sets the minimum log level.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error fatal"`

	// LogFormat selects console or json output.
	LogFormat string `yaml:"log_format" validate:"omitempty,oneof=console json"`

	// MetricsEnabled controls Prometheus metrics collection.
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// TracingEnabled controls OpenTelemetry tracing.
	TracingEnabled bool `yaml:"tracing_enabled"`

	// TracingExporter selects the trace exporter (otlp, stdout, none).
	TracingExporter string `yaml:"tracing_exporter" validate:"omitempty,oneof=otlp stdout none"`

	// TracingEndpoint is the OTLP endpoint when the otlp exporter is used.
	TracingEndpoint string `yaml:"tracing_endpoint"`
}

// Default returns the default configuration. The base directory lives
// under the user cache dir so that workspace databases survive reboots but
// stay out of the way.
func Default() *Config {
	baseDir := filepath.Join(os.TempDir(), "workstore")
	if cacheDir, err := os.UserCacheDir(); err == nil {
		baseDir = filepath.Join(cacheDir, "workstore")
	}
	return &Config{
		Storage: StorageConfig{
			BaseDir:            baseDir,
			FormatVersion:      "1",
			FailFast:           false,
			WatchWorkingFolder: false,
			MaxOpenConns:       25,
			MaxIdleConns:       5,
			ConnMaxLifetime:    5 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			LogLevel:        "info",
			LogFormat:       "console",
			MetricsEnabled:  true,
			TracingEnabled:  false,
			TracingExporter: "stdout",
		},
	}
}

// Load reads the YAML configuration at path, layered over the defaults.
// A missing file is not an error; the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
