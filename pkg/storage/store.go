package storage

import (
	"context"
	"errors"
	"io"
)

// DatabaseFileName is the file name of the backing database inside a
// workspace's working folder. The full path is derived deterministically so
// that reopening the same identity always targets the same file.
const DatabaseFileName = "workspace.db"

// Store is the contract a backing store satisfies. Implementations must be
// safe for concurrent use; the manager hands one instance to many callers.
type Store interface {
	// ChecksumMatches reports whether the stream named by key exists and is
	// tagged with the given checksum.
	ChecksumMatches(ctx context.Context, key StreamKey, checksum Checksum) (bool, error)

	// ReadStream returns the stream named by key, or a nil reader if the
	// stream is absent. When checksum is non-nil, a stored stream whose tag
	// does not match reads as absent.
	ReadStream(ctx context.Context, key StreamKey, checksum *Checksum) (io.ReadCloser, error)

	// WriteStream persists the stream named by key, optionally tagging it
	// with a checksum. It reports whether the write was persisted.
	WriteStream(ctx context.Context, key StreamKey, data io.Reader, checksum *Checksum) (bool, error)

	// Close tears the store down. Called exactly once, by the last released
	// reference.
	Close() error
}

// Backend opens backing stores for workspace identities. Implementations
// decide where a workspace's files live and how open failures classify.
type Backend interface {
	// ResolveWorkingFolder maps an identity to its working folder. The
	// second result is false when the identity has no on-disk location, in
	// which case no store is attempted for it.
	ResolveWorkingFolder(id Identity) (string, bool)

	// OpenOrCreate opens or creates the backing store at databasePath
	// inside workingFolder.
	OpenOrCreate(ctx context.Context, id Identity, workingFolder, databasePath string) (Store, error)

	// IsCorruption reports whether an OpenOrCreate failure indicates a
	// corrupt store that should be deleted before retrying.
	IsCorruption(err error) bool
}

// ErrReleased is returned when a store reference is used after Close.
var ErrReleased = errors.New("storage: store reference already released")

// ErrNoStorage is returned by the failing fallback store when fail-fast is
// configured and no backing store could ever be created.
var ErrNoStorage = errors.New("storage: no backing store available")
