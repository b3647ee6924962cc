package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Storage.BaseDir == "" {
		t.Error("expected a default base directory")
	}
	if cfg.Storage.FormatVersion == "" {
		t.Error("expected a default format version")
	}
	if cfg.Storage.FailFast {
		t.Error("expected fail-fast to default off")
	}
	if cfg.Telemetry.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Telemetry.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected the defaults to validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("expected a missing file to fall back to defaults: %v", err)
	}
	if *cfg != *Default() {
		t.Error("expected the defaults back unchanged")
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workstore.yaml")
	content := `
storage:
  base_dir: /var/cache/workstore
  format_version: "3"
  fail_fast: true
  conn_max_lifetime: 1m
telemetry:
  log_level: debug
  log_format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Storage.BaseDir != "/var/cache/workstore" {
		t.Errorf("expected base dir from file, got %q", cfg.Storage.BaseDir)
	}
	if cfg.Storage.FormatVersion != "3" {
		t.Errorf("expected format version from file, got %q", cfg.Storage.FormatVersion)
	}
	if !cfg.Storage.FailFast {
		t.Error("expected fail-fast from file")
	}
	if cfg.Storage.ConnMaxLifetime != time.Minute {
		t.Errorf("expected conn max lifetime from file, got %v", cfg.Storage.ConnMaxLifetime)
	}
	if cfg.Telemetry.LogLevel != "debug" || cfg.Telemetry.LogFormat != "json" {
		t.Errorf("expected telemetry overrides from file, got %+v", cfg.Telemetry)
	}

	// Fields the file omits keep their defaults.
	if cfg.Storage.MaxOpenConns != 25 {
		t.Errorf("expected default max open conns, got %d", cfg.Storage.MaxOpenConns)
	}
	if !cfg.Telemetry.MetricsEnabled {
		t.Error("expected metrics to stay enabled by default")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "bad log level",
			content: `
telemetry:
  log_level: loud
`,
		},
		{
			name: "bad tracing exporter",
			content: `
telemetry:
  tracing_exporter: carrier-pigeon
`,
		},
		{
			name: "empty format version",
			content: `
storage:
  base_dir: /var/cache/workstore
  format_version: ""
`,
		},
		{
			name:    "malformed yaml",
			content: "storage: [not a mapping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "workstore.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("failed to write config file: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected the config to be rejected")
			}
		})
	}
}
