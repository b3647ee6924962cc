package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/workstore/workstore/pkg/config"
	"github.com/workstore/workstore/pkg/storage"
	"github.com/workstore/workstore/pkg/storage/sqlite"
	"github.com/workstore/workstore/pkg/telemetry"
)

var (
	// Global flags
	configPath    string
	workspacePath string
	verbose       bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "workstore",
		Short: "Workstore - per-workspace persistent stream storage",
		Long: `Workstore manages one persistent stream store per workspace.

Streams are named byte blobs scoped to the whole workspace, a project, or
a single document, optionally tagged with a checksum for cheap staleness
checks. The store lives in a SQLite database inside a per-workspace
working folder; a corrupt database is deleted and rebuilt transparently.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "workstore.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&workspacePath, "workspace", "w", ".", "workspace root path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(newPutCommand())
	rootCmd.AddCommand(newGetCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newInfoCommand())
	rootCmd.AddCommand(newResetCommand())

	return rootCmd
}

// environment bundles everything a subcommand needs to talk to a
// workspace store.
type environment struct {
	cfg      *config.Config
	tel      *telemetry.Telemetry
	backend  *sqlite.Backend
	manager  *storage.Manager
	identity storage.Identity
	watcher  *storage.FolderWatcher
}

// setup builds the storage stack from the config file and global flags.
func setup() (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	telCfg := telemetry.DefaultConfig()
	telCfg.Logging.Level = cfg.Telemetry.LogLevel
	telCfg.Logging.Format = cfg.Telemetry.LogFormat
	telCfg.Metrics.Enabled = cfg.Telemetry.MetricsEnabled
	telCfg.Tracing.Enabled = cfg.Telemetry.TracingEnabled
	telCfg.Tracing.Exporter = cfg.Telemetry.TracingExporter
	telCfg.Tracing.Endpoint = cfg.Telemetry.TracingEndpoint
	if verbose {
		telCfg.Logging.Level = "debug"
	}

	tel, err := telemetry.NewTelemetry(telCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	backend, err := sqlite.NewBackend(sqlite.Config{
		BaseDir:         cfg.Storage.BaseDir,
		FormatVersion:   cfg.Storage.FormatVersion,
		MaxOpenConns:    cfg.Storage.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.MaxIdleConns,
		ConnMaxLifetime: cfg.Storage.ConnMaxLifetime,
		Logger:          tel.Logger,
		Metrics:         tel.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}

	manager := storage.NewManager(backend, storage.Options{
		FailFast: cfg.Storage.FailFast,
		Logger:   tel.Logger,
		Metrics:  tel.Metrics,
		Tracer:   tel.Tracer,
	})

	root, err := filepath.Abs(workspacePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace path: %w", err)
	}

	env := &environment{
		cfg:      cfg,
		tel:      tel,
		backend:  backend,
		manager:  manager,
		identity: storage.NewIdentity(root, cfg.Storage.FormatVersion),
	}

	if cfg.Storage.WatchWorkingFolder {
		// The watcher only attaches once the folder exists; first use of a
		// fresh workspace runs unwatched.
		if folder, ok := backend.ResolveWorkingFolder(env.identity); ok {
			if _, statErr := os.Stat(folder); statErr == nil {
				watcher, err := storage.WatchWorkingFolder(folder, manager.Shutdown, tel.Logger)
				if err != nil {
					tel.Logger.WithError(err).Warn("Failed to watch working folder")
				} else {
					env.watcher = watcher
				}
			}
		}
	}

	return env, nil
}

// close releases the manager's cached store and flushes telemetry.
func (e *environment) close(ctx context.Context) {
	if e.watcher != nil {
		_ = e.watcher.Close()
	}
	e.manager.Shutdown()
	_ = e.tel.Shutdown(ctx)
}

// streamKey builds a StreamKey from the shared scope flags.
func streamKey(scope, project, document, name string) (storage.StreamKey, error) {
	var key storage.StreamKey
	switch storage.Scope(scope) {
	case storage.ScopeGlobal:
		key = storage.GlobalKey(name)
	case storage.ScopeProject:
		key = storage.ProjectKey(project, name)
	case storage.ScopeDocument:
		key = storage.DocumentKey(project, document, name)
	default:
		return key, fmt.Errorf("unknown scope %q (want global, project, or document)", scope)
	}
	return key, key.Validate()
}
