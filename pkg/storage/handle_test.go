package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
)

// countingStore is a minimal Store that records teardown calls.
type countingStore struct {
	mu     sync.Mutex
	closed int
	data   map[StreamKey][]byte
}

func newCountingStore() *countingStore {
	return &countingStore{data: make(map[StreamKey][]byte)}
}

func (s *countingStore) ChecksumMatches(_ context.Context, key StreamKey, checksum Checksum) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[key]
	if !ok {
		return false, nil
	}
	return ChecksumOf(data) == checksum, nil
}

func (s *countingStore) ReadStream(_ context.Context, key StreamKey, checksum *Checksum) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	if checksum != nil && ChecksumOf(data) != *checksum {
		return nil, nil
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *countingStore) WriteStream(_ context.Context, key StreamKey, data io.Reader, _ *Checksum) (bool, error) {
	payload, err := io.ReadAll(data)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = payload
	return true, nil
}

func (s *countingStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *countingStore) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// TestHandleTeardownAfterLastRelease verifies the store is torn down
// exactly once, when the last reference is released.
func TestHandleTeardownAfterLastRelease(t *testing.T) {
	store := newCountingStore()
	h := newHandle(store, nil)

	ref1 := h.tryAcquire()
	ref2 := h.tryAcquire()
	if ref1 == nil || ref2 == nil {
		t.Fatal("expected acquires on a live handle to succeed")
	}

	if err := ref1.Close(); err != nil {
		t.Fatalf("failed to close ref1: %v", err)
	}
	if store.closeCount() != 0 {
		t.Errorf("store closed while references remain, close count %d", store.closeCount())
	}

	if err := ref2.Close(); err != nil {
		t.Fatalf("failed to close ref2: %v", err)
	}
	if store.closeCount() != 0 {
		t.Errorf("store closed while the owning reference remains, close count %d", store.closeCount())
	}

	// The creator's own reference is the last one.
	if err := h.release(); err != nil {
		t.Fatalf("failed to release owning reference: %v", err)
	}
	if store.closeCount() != 1 {
		t.Errorf("expected exactly one teardown, got %d", store.closeCount())
	}
}

// TestHandleAcquireAfterTeardownFails verifies tryAcquire cannot
// resurrect a dead handle.
func TestHandleAcquireAfterTeardownFails(t *testing.T) {
	store := newCountingStore()
	h := newHandle(store, nil)

	if err := h.release(); err != nil {
		t.Fatalf("failed to release owning reference: %v", err)
	}
	if store.closeCount() != 1 {
		t.Fatalf("expected teardown after last release, got %d", store.closeCount())
	}

	if ref := h.tryAcquire(); ref != nil {
		t.Error("expected tryAcquire on a dead handle to fail")
	}
	if store.closeCount() != 1 {
		t.Errorf("expected no further teardown, got %d", store.closeCount())
	}
}

// TestStoreRefDoubleClosePanics verifies the double-release guard.
func TestStoreRefDoubleClosePanics(t *testing.T) {
	h := newHandle(newCountingStore(), nil)
	ref := h.tryAcquire()
	if ref == nil {
		t.Fatal("expected acquire on a live handle to succeed")
	}
	if err := ref.Close(); err != nil {
		t.Fatalf("failed to close ref: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected second Close to panic")
		}
	}()
	_ = ref.Close()
}

// TestStoreRefUseAfterClose verifies operations on a released reference
// fail with ErrReleased instead of touching the store.
func TestStoreRefUseAfterClose(t *testing.T) {
	h := newHandle(newCountingStore(), nil)
	ref := h.tryAcquire()
	if err := ref.Close(); err != nil {
		t.Fatalf("failed to close ref: %v", err)
	}

	ctx := context.Background()
	if _, err := ref.ReadStream(ctx, GlobalKey("x"), nil); err != ErrReleased {
		t.Errorf("expected ErrReleased from ReadStream, got %v", err)
	}
	if _, err := ref.WriteStream(ctx, GlobalKey("x"), bytes.NewReader(nil), nil); err != ErrReleased {
		t.Errorf("expected ErrReleased from WriteStream, got %v", err)
	}
	if _, err := ref.ChecksumMatches(ctx, GlobalKey("x"), Checksum{}); err != ErrReleased {
		t.Errorf("expected ErrReleased from ChecksumMatches, got %v", err)
	}
}

// TestHandleConcurrentAcquireRelease hammers the refcount from many
// goroutines and verifies exactly one teardown at the end.
func TestHandleConcurrentAcquireRelease(t *testing.T) {
	store := newCountingStore()
	h := newHandle(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ref := h.tryAcquire()
				if ref == nil {
					t.Error("acquire failed while the owning reference is held")
					return
				}
				if err := ref.Close(); err != nil {
					t.Errorf("failed to close ref: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if store.closeCount() != 0 {
		t.Fatalf("store torn down while the owning reference remains, close count %d", store.closeCount())
	}
	if err := h.release(); err != nil {
		t.Fatalf("failed to release owning reference: %v", err)
	}
	if store.closeCount() != 1 {
		t.Errorf("expected exactly one teardown, got %d", store.closeCount())
	}
}

// TestHandleOnCloseHook verifies the teardown hook observes the close.
func TestHandleOnCloseHook(t *testing.T) {
	var hookCalls int
	h := newHandle(newCountingStore(), func(err error) {
		hookCalls++
		if err != nil {
			t.Errorf("unexpected teardown error: %v", err)
		}
	})

	if err := h.release(); err != nil {
		t.Fatalf("failed to release owning reference: %v", err)
	}
	if hookCalls != 1 {
		t.Errorf("expected one hook call, got %d", hookCalls)
	}
}
