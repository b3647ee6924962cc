package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"github.com/workstore/workstore/pkg/telemetry"
)

// Options configures a Manager.
type Options struct {
	// FailFast makes open failures propagate out of GetStore instead of
	// being retried and degraded to the no-op store. Intended for test and
	// diagnostic builds where a silent fallback would hide bugs.
	FailFast bool

	// Logger receives manager diagnostics. Optional.
	Logger *telemetry.Logger

	// Metrics receives manager metrics. Optional.
	Metrics *telemetry.Metrics

	// Tracer records spans around store opens. Optional.
	Tracer *telemetry.Tracer
}

// Manager owns at most one live backing store at a time, keyed by workspace
// identity. Callers share the current store through reference-counted
// StoreRefs; switching identities installs a fresh store while outstanding
// references to the old one stay valid until released.
type Manager struct {
	backend  Backend
	failFast bool
	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer

	// openSem serializes the slow path so that concurrent GetStore calls
	// for the same new identity open the backend exactly once. Acquire is
	// context-aware, so callers can bail out while an open is in flight.
	openSem *semaphore.Weighted

	// mu guards slot. It is held only to read or swap the pointer, never
	// across backend I/O or handle teardown.
	mu   sync.RWMutex
	slot *cacheSlot
}

// cacheSlot pairs the manager's current handle with the identity it was
// created for. The manager's own reference is included in the handle's
// count for as long as the slot holds it.
type cacheSlot struct {
	identity Identity
	handle   *handle
}

// NewManager creates a manager over the given backend.
func NewManager(backend Backend, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = telemetry.NopTracer()
	}
	return &Manager{
		backend:  backend,
		failFast: opts.FailFast,
		logger:   logger.NewComponentLogger("storage.manager"),
		metrics:  metrics,
		tracer:   tracer,
		openSem:  semaphore.NewWeighted(1),
	}
}

// GetStore returns a reference to the backing store for the given identity,
// opening one if necessary. The caller must Close the reference when done.
//
// Under normal configuration GetStore never fails for storage reasons: open
// failures degrade to the no-op store. It fails only on context
// cancellation, or on any open failure when fail-fast is configured.
func (m *Manager) GetStore(ctx context.Context, id Identity) (*StoreRef, error) {
	workingFolder, ok := m.backend.ResolveWorkingFolder(id)
	if !ok {
		// No on-disk location for this workspace. The fallback stores are
		// shared and stateless, so the slot is never consulted.
		m.metrics.RecordNoopFallback()
		if m.failFast {
			return failingHandle.tryAcquire(), nil
		}
		return noopHandle.tryAcquire(), nil
	}

	// Fast path: reuse the current handle without the exclusive section.
	// tryAcquire can lose a race with a concurrent swap that released the
	// manager's reference; that just means we take the slow path.
	m.mu.RLock()
	slot := m.slot
	m.mu.RUnlock()
	if slot != nil && slot.identity == id {
		if ref := slot.handle.tryAcquire(); ref != nil {
			m.metrics.RecordSlotHit()
			return ref, nil
		}
	}

	return m.replaceStore(ctx, id, workingFolder)
}

// replaceStore is the slow path: open a store for id and install it as the
// new slot contents, releasing the manager's reference to the old handle.
func (m *Manager) replaceStore(ctx context.Context, id Identity, workingFolder string) (*StoreRef, error) {
	if err := m.openSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	// Double-checked: another caller may have installed a matching handle
	// while we were waiting for the semaphore.
	m.mu.RLock()
	old := m.slot
	m.mu.RUnlock()
	if old != nil && old.identity == id {
		if ref := old.handle.tryAcquire(); ref != nil {
			m.openSem.Release(1)
			m.metrics.RecordSlotHit()
			return ref, nil
		}
	}

	store, err := m.openWithRetry(ctx, id, workingFolder)
	if err != nil {
		m.openSem.Release(1)
		return nil, err
	}

	h := newHandle(store, func(closeErr error) {
		m.metrics.HandleClosed()
		if closeErr != nil {
			m.logger.WithIdentity(id.String()).WithError(closeErr).Warn("backing store teardown failed")
		}
	})
	m.metrics.HandleOpened()

	// The caller's reference is taken before the handle is published: the
	// moment the slot is swapped, a concurrent switch to another identity
	// may displace the handle and drop the manager's reference. Cannot
	// fail, this goroutine holds the only reference so far.
	ref := h.tryAcquire()

	// The displaced handle is re-read under the lock: a concurrent
	// Shutdown may have detached (and released) the one we saw earlier.
	m.mu.Lock()
	displaced := m.slot
	m.slot = &cacheSlot{identity: id, handle: h}
	m.mu.Unlock()
	m.openSem.Release(1)

	// The manager's reference to the displaced handle is dropped outside
	// the critical section; if callers still hold references the store
	// survives until the last of them closes.
	if displaced != nil {
		m.metrics.RecordSlotSwap()
		if err := displaced.handle.release(); err != nil {
			m.logger.WithIdentity(displaced.identity.String()).WithError(err).Warn("backing store teardown failed")
		}
	}

	return ref, nil
}

// openWithRetry attempts to open the backing store at most twice. A
// corruption-classified failure on the first attempt deletes the working
// folder, best-effort, to force a clean slate before the retry. Two
// failures degrade to the no-op store unless fail-fast is configured, in
// which case the first failure propagates untouched.
func (m *Manager) openWithRetry(ctx context.Context, id Identity, workingFolder string) (Store, error) {
	databasePath := filepath.Join(workingFolder, DatabaseFileName)
	logger := m.logger.WithIdentity(id.String())

	ctx, span := m.tracer.StartOpenSpan(ctx, id.String(), databasePath)
	defer span.End()

	const maxAttempts = 2
	for attempt := 0; attempt < maxAttempts; attempt++ {
		start := time.Now()
		store, err := m.backend.OpenOrCreate(ctx, id, workingFolder, databasePath)
		if err == nil {
			m.metrics.RecordOpen("success", time.Since(start).Seconds())
			telemetry.RecordSuccess(span)
			logger.WithField("database", databasePath).Debug("backing store opened")
			return store, nil
		}

		telemetry.RecordError(span, err)
		if ctx.Err() != nil {
			// Cancellation is never swallowed; the slot stays untouched.
			return nil, ctx.Err()
		}
		if m.failFast {
			m.metrics.RecordOpen("error", time.Since(start).Seconds())
			return nil, err
		}

		if attempt == 0 && m.backend.IsCorruption(err) {
			// A damaged store cannot be reopened in place. Deleting the
			// working folder is best-effort; the retry recreates it.
			m.metrics.RecordOpen("corruption", time.Since(start).Seconds())
			m.metrics.RecordCorruptionRecovery()
			logger.WithError(err).Error("backing store corrupt, deleting working folder")
			if rmErr := os.RemoveAll(workingFolder); rmErr != nil {
				logger.WithError(rmErr).Warn("failed to delete working folder")
			}
		} else {
			m.metrics.RecordOpen("error", time.Since(start).Seconds())
			logger.WithError(err).Warn("backing store open failed")
		}
	}

	m.metrics.RecordNoopFallback()
	telemetry.AddEvent(span, "noop_fallback", attribute.String("storage.identity", id.String()))
	logger.Warn("backing store unavailable, degrading to no-op store")
	return NoOpStore{}, nil
}

// Shutdown detaches and releases the manager's reference to the current
// handle. References already handed to callers remain valid until they are
// closed; a later GetStore creates a fresh store. Safe to call from any
// goroutine, including while opens are in flight.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	slot := m.slot
	m.slot = nil
	m.mu.Unlock()

	if slot == nil {
		return
	}
	if err := slot.handle.release(); err != nil {
		m.logger.WithIdentity(slot.identity.String()).WithError(err).Warn("backing store teardown failed")
	}
}
