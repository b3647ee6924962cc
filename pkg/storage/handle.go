package storage

import (
	"context"
	"io"
	"sync/atomic"
)

// handle is a reference-counted wrapper around one Store. The count starts
// at 1 for the creator's own reference; every acquired StoreRef adds one.
// When the count reaches zero the store is torn down exactly once and the
// handle is dead for good: tryAcquire on a dead handle fails rather than
// resurrecting it.
type handle struct {
	store Store
	refs  atomic.Int64

	// onClose, when set, observes the result of the final teardown.
	onClose func(err error)
}

func newHandle(store Store, onClose func(err error)) *handle {
	h := &handle{store: store, onClose: onClose}
	h.refs.Store(1)
	return h
}

// tryAcquire increments the count and returns a new reference, or nil if
// the handle has already been torn down. The increment only happens while
// the count is still above zero, so a reference obtained here is always
// backed by a live store.
func (h *handle) tryAcquire() *StoreRef {
	for {
		n := h.refs.Load()
		if n <= 0 {
			return nil
		}
		if h.refs.CompareAndSwap(n, n+1) {
			return &StoreRef{h: h}
		}
	}
}

// release drops one reference. The reference that brings the count to zero
// tears the store down; teardown never runs twice because the count never
// goes back above zero.
func (h *handle) release() error {
	n := h.refs.Add(-1)
	if n > 0 {
		return nil
	}
	if n < 0 {
		panic("storage: handle released more times than acquired")
	}
	err := h.store.Close()
	if h.onClose != nil {
		h.onClose(err)
	}
	return err
}

// StoreRef is a caller-held reference to a shared store. It re-exposes the
// Store surface and must be closed exactly once when the caller is done;
// the underlying store is only torn down after every reference, including
// the manager's own, has been released.
type StoreRef struct {
	h        *handle
	released atomic.Bool
}

// ChecksumMatches implements Store.
func (r *StoreRef) ChecksumMatches(ctx context.Context, key StreamKey, checksum Checksum) (bool, error) {
	if r.released.Load() {
		return false, ErrReleased
	}
	return r.h.store.ChecksumMatches(ctx, key, checksum)
}

// ReadStream implements Store.
func (r *StoreRef) ReadStream(ctx context.Context, key StreamKey, checksum *Checksum) (io.ReadCloser, error) {
	if r.released.Load() {
		return nil, ErrReleased
	}
	return r.h.store.ReadStream(ctx, key, checksum)
}

// WriteStream implements Store.
func (r *StoreRef) WriteStream(ctx context.Context, key StreamKey, data io.Reader, checksum *Checksum) (bool, error) {
	if r.released.Load() {
		return false, ErrReleased
	}
	return r.h.store.WriteStream(ctx, key, data, checksum)
}

// Close releases this reference. Closing a reference twice is a programmer
// error and panics, since a double release could tear the store down while
// other callers still hold live references.
func (r *StoreRef) Close() error {
	if r.released.Swap(true) {
		panic("storage: store reference closed twice")
	}
	return r.h.release()
}
