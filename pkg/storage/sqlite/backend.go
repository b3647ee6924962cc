package sqlite

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/workstore/workstore/pkg/storage"
	"github.com/workstore/workstore/pkg/telemetry"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// VersionMarkerFileName is the name of the format-version marker file kept
// next to the database. A marker written by an incompatible version makes
// the open fail as corruption, forcing a clean-slate rebuild.
const VersionMarkerFileName = "storage.version"

// Config holds SQLite backend configuration.
type Config struct {
	// BaseDir is the directory under which per-workspace working folders
	// are created.
	BaseDir string

	// FormatVersion is written to the working folder's version marker and
	// checked on every open.
	FormatVersion string

	// MaxOpenConns limits the connection pool. Zero means the default.
	MaxOpenConns int

	// MaxIdleConns limits idle pooled connections. Zero means the default.
	MaxIdleConns int

	// ConnMaxLifetime bounds connection reuse. Zero means the default.
	ConnMaxLifetime time.Duration

	// Logger receives backend diagnostics. Optional.
	Logger *telemetry.Logger

	// Metrics receives stream operation metrics. Optional.
	Metrics *telemetry.Metrics
}

// Backend opens SQLite-backed workspace stores. It implements
// storage.Backend.
type Backend struct {
	cfg     Config
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
}

// NewBackend creates a new SQLite backend.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if cfg.FormatVersion == "" {
		return nil, fmt.Errorf("format version is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}

	return &Backend{
		cfg:     cfg,
		logger:  logger.NewComponentLogger("storage.sqlite"),
		metrics: metrics,
	}, nil
}

// ResolveWorkingFolder maps an identity to a folder under the base
// directory named by a digest of the root path and format version, so that
// distinct workspaces and distinct format versions never collide.
func (b *Backend) ResolveWorkingFolder(id storage.Identity) (string, bool) {
	if id.Root == "" {
		return "", false
	}
	sum := sha256.Sum256([]byte(id.Root + "\x00" + id.Version))
	return filepath.Join(b.cfg.BaseDir, hex.EncodeToString(sum[:8])), true
}

// OpenOrCreate opens or creates the workspace database at databasePath.
// Failures come back classified so the manager's retry policy can decide
// between a plain retry and a delete-and-retry.
func (b *Backend) OpenOrCreate(ctx context.Context, id storage.Identity, workingFolder, databasePath string) (storage.Store, error) {
	if err := os.MkdirAll(workingFolder, 0o755); err != nil {
		return nil, storage.NewTransientError("mkdir", workingFolder, err)
	}

	if err := b.checkVersionMarker(workingFolder); err != nil {
		return nil, err
	}

	// WAL mode and a busy timeout, same connection parameters for every
	// workspace database.
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", databasePath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, b.classify("open", databasePath, err)
	}

	db.SetMaxOpenConns(b.cfg.MaxOpenConns)
	db.SetMaxIdleConns(b.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(b.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, b.classify("ping", databasePath, err)
	}

	if err := b.migrate(db); err != nil {
		_ = db.Close()
		return nil, b.classify("migrate", databasePath, err)
	}

	store := &Store{
		db:         db,
		path:       databasePath,
		instanceID: uuid.New().String(),
		metrics:    b.metrics,
	}
	b.logger.WithIdentity(id.String()).WithStoreID(store.instanceID).Debug("workspace database opened")
	return store, nil
}

// IsCorruption implements storage.Backend.
func (b *Backend) IsCorruption(err error) bool {
	return storage.IsCorruption(err)
}

// checkVersionMarker verifies the working folder's format-version marker,
// writing it atomically on first use. A mismatch means the folder holds a
// database from an incompatible version and reads as corruption.
func (b *Backend) checkVersionMarker(workingFolder string) error {
	markerPath := filepath.Join(workingFolder, VersionMarkerFileName)

	raw, err := os.ReadFile(markerPath)
	switch {
	case err == nil:
		if got := strings.TrimSpace(string(raw)); got != b.cfg.FormatVersion {
			return storage.NewCorruptionError("version-check", markerPath,
				fmt.Errorf("format version mismatch: folder has %q, want %q", got, b.cfg.FormatVersion))
		}
		return nil
	case errors.Is(err, os.ErrNotExist):
		content := bytes.NewReader([]byte(b.cfg.FormatVersion + "\n"))
		if err := atomic.WriteFile(markerPath, content); err != nil {
			return storage.NewTransientError("version-write", markerPath, err)
		}
		return nil
	default:
		return storage.NewTransientError("version-read", markerPath, err)
	}
}

// migrate runs the embedded schema migrations.
func (b *Backend) migrate(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// corruptionMarkers are substrings of SQLite error messages that indicate
// damaged on-disk state rather than a transient condition.
var corruptionMarkers = []string{
	"database disk image is malformed",
	"file is not a database",
	"file is encrypted or is not a database",
	"database corruption",
}

// classify wraps an open failure as corruption or transient based on the
// SQLite error text.
func (b *Backend) classify(op, path string, err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range corruptionMarkers {
		if strings.Contains(msg, marker) {
			return storage.NewCorruptionError(op, path, err)
		}
	}
	return storage.NewTransientError(op, path, err)
}
