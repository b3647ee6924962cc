package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/workstore/workstore/pkg/storage"
	"github.com/workstore/workstore/pkg/telemetry"
)

// Store is one opened workspace database. It implements storage.Store and
// is safe for concurrent use; the manager shares a single instance across
// all callers for the same identity.
type Store struct {
	db         *sql.DB
	path       string
	instanceID string
	metrics    *telemetry.Metrics
}

// InstanceID returns the unique ID of this opened instance, used to
// correlate log lines across the store's lifetime.
func (s *Store) InstanceID() string {
	return s.instanceID
}

// ChecksumMatches reports whether the stream named by key exists and is
// tagged with the given checksum. Untagged streams never match.
func (s *Store) ChecksumMatches(ctx context.Context, key storage.StreamKey, checksum storage.Checksum) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}

	query := `
		SELECT checksum
		FROM streams
		WHERE scope = ? AND project = ? AND document = ? AND name = ?
	`

	var stored []byte
	err := s.db.QueryRowContext(ctx, query, string(key.Scope), key.Project, key.Document, key.Name).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read stream checksum: %w", err)
	}

	return bytes.Equal(stored, checksum[:]), nil
}

// ReadStream returns the stream named by key, or a nil reader if it is
// absent. When checksum is non-nil, a stored stream whose tag does not
// match reads as absent: stale data is indistinguishable from no data.
func (s *Store) ReadStream(ctx context.Context, key storage.StreamKey, checksum *storage.Checksum) (io.ReadCloser, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	query := `
		SELECT checksum, data
		FROM streams
		WHERE scope = ? AND project = ? AND document = ? AND name = ?
	`

	var stored []byte
	var data []byte
	err := s.db.QueryRowContext(ctx, query, string(key.Scope), key.Project, key.Document, key.Name).Scan(&stored, &data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}

	if checksum != nil && !bytes.Equal(stored, checksum[:]) {
		return nil, nil
	}

	s.metrics.RecordStreamRead(string(key.Scope))
	return io.NopCloser(bytes.NewReader(data)), nil
}

// WriteStream persists the stream named by key, replacing any previous
// contents, optionally tagging it with a checksum.
func (s *Store) WriteStream(ctx context.Context, key storage.StreamKey, data io.Reader, checksum *storage.Checksum) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}

	payload, err := io.ReadAll(data)
	if err != nil {
		return false, fmt.Errorf("failed to read stream payload: %w", err)
	}

	var tag []byte
	if checksum != nil {
		tag = checksum[:]
	}

	query := `
		INSERT INTO streams (scope, project, document, name, checksum, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scope, project, document, name) DO UPDATE SET
			checksum = excluded.checksum,
			data = excluded.data,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		string(key.Scope),
		key.Project,
		key.Document,
		key.Name,
		tag,
		payload,
		time.Now().UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return false, fmt.Errorf("failed to write stream: %w", err)
	}

	s.metrics.RecordStreamWrite(string(key.Scope))
	return true, nil
}

// Close closes the database connection. The shared-handle layer guarantees
// it runs exactly once, after the last reference is released.
func (s *Store) Close() error {
	return s.db.Close()
}
