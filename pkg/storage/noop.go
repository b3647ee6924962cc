package storage

import (
	"context"
	"io"
)

// NoOpStore satisfies the Store contract without persisting anything:
// checksum matches always report false, reads always report absent, and
// writes always report not persisted. Callers cannot tell it apart from a
// real store that happens to be empty and full.
type NoOpStore struct{}

// ChecksumMatches implements Store. Nothing ever matches.
func (NoOpStore) ChecksumMatches(context.Context, StreamKey, Checksum) (bool, error) {
	return false, nil
}

// ReadStream implements Store. Every stream is absent.
func (NoOpStore) ReadStream(context.Context, StreamKey, *Checksum) (io.ReadCloser, error) {
	return nil, nil
}

// WriteStream implements Store. Writes are accepted but never persisted.
func (NoOpStore) WriteStream(context.Context, StreamKey, io.Reader, *Checksum) (bool, error) {
	return false, nil
}

// Close implements Store.
func (NoOpStore) Close() error {
	return nil
}

// failingStore is the fail-fast counterpart of NoOpStore: every operation
// reports ErrNoStorage. Handed out when fail-fast is configured and no
// backing store can ever be created for the identity.
type failingStore struct{}

func (failingStore) ChecksumMatches(context.Context, StreamKey, Checksum) (bool, error) {
	return false, ErrNoStorage
}

func (failingStore) ReadStream(context.Context, StreamKey, *Checksum) (io.ReadCloser, error) {
	return nil, ErrNoStorage
}

func (failingStore) WriteStream(context.Context, StreamKey, io.Reader, *Checksum) (bool, error) {
	return false, ErrNoStorage
}

func (failingStore) Close() error {
	return nil
}

// The process-wide fallback stores live behind permanent handles: the
// package itself holds the initial reference forever, so tryAcquire on them
// never fails and their stores are never torn down.
var (
	noopHandle    = newHandle(NoOpStore{}, nil)
	failingHandle = newHandle(failingStore{}, nil)
)

// NoOp returns a fresh reference to the shared no-op store.
func NoOp() *StoreRef {
	return noopHandle.tryAcquire()
}
