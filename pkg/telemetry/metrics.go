package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the storage lifecycle.
type Metrics struct {
	config MetricsConfig

	// Store lifecycle metrics
	opensTotal           *prometheus.CounterVec
	openDuration         *prometheus.HistogramVec
	slotHits             prometheus.Counter
	slotSwaps            prometheus.Counter
	corruptionRecoveries prometheus.Counter
	noopFallbacks        prometheus.Counter
	activeHandles        prometheus.Gauge

	// Stream metrics
	streamReads  *prometheus.CounterVec
	streamWrites *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		opensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_opens_total",
				Help:      "Total number of backing store open attempts",
			},
			[]string{"result"},
		),
		openDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_open_duration_seconds",
				Help:      "Duration of backing store open attempts in seconds",
				Buckets:   buckets,
			},
			[]string{"result"},
		),
		slotHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_slot_hits_total",
				Help:      "Total number of GetStore calls served from the cached handle",
			},
		),
		slotSwaps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_slot_swaps_total",
				Help:      "Total number of cached handles displaced by a new identity",
			},
		),
		corruptionRecoveries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_corruption_recoveries_total",
				Help:      "Total number of working folders deleted after a corruption-classified open failure",
			},
		),
		noopFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_noop_fallbacks_total",
				Help:      "Total number of GetStore calls answered with the no-op store",
			},
		),
		activeHandles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_active_handles",
				Help:      "Current number of live backing store handles",
			},
		),
		streamReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_reads_total",
				Help:      "Total number of stream reads by scope",
			},
			[]string{"scope"},
		),
		streamWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_writes_total",
				Help:      "Total number of stream writes by scope",
			},
			[]string{"scope"},
		),
	}

	registry.MustRegister(
		m.opensTotal,
		m.openDuration,
		m.slotHits,
		m.slotSwaps,
		m.corruptionRecoveries,
		m.noopFallbacks,
		m.activeHandles,
		m.streamReads,
		m.streamWrites,
	)

	return m, nil
}

// NopMetrics returns a metrics instance that records nothing.
func NopMetrics() *Metrics {
	return &Metrics{}
}

// RecordOpen records one open attempt with its result and duration.
func (m *Metrics) RecordOpen(result string, seconds float64) {
	if m.opensTotal == nil {
		return
	}
	m.opensTotal.WithLabelValues(result).Inc()
	m.openDuration.WithLabelValues(result).Observe(seconds)
}

// RecordSlotHit records a GetStore call served from the cached handle.
func (m *Metrics) RecordSlotHit() {
	if m.slotHits == nil {
		return
	}
	m.slotHits.Inc()
}

// RecordSlotSwap records a cached handle displaced by a new identity.
func (m *Metrics) RecordSlotSwap() {
	if m.slotSwaps == nil {
		return
	}
	m.slotSwaps.Inc()
}

// RecordCorruptionRecovery records a working folder deleted for recovery.
func (m *Metrics) RecordCorruptionRecovery() {
	if m.corruptionRecoveries == nil {
		return
	}
	m.corruptionRecoveries.Inc()
}

// RecordNoopFallback records a GetStore call answered with the no-op store.
func (m *Metrics) RecordNoopFallback() {
	if m.noopFallbacks == nil {
		return
	}
	m.noopFallbacks.Inc()
}

// HandleOpened records a new live backing store handle.
func (m *Metrics) HandleOpened() {
	if m.activeHandles == nil {
		return
	}
	m.activeHandles.Inc()
}

// HandleClosed records the teardown of a backing store handle.
func (m *Metrics) HandleClosed() {
	if m.activeHandles == nil {
		return
	}
	m.activeHandles.Dec()
}

// RecordStreamRead records a stream read for the given scope.
func (m *Metrics) RecordStreamRead(scope string) {
	if m.streamReads == nil {
		return
	}
	m.streamReads.WithLabelValues(scope).Inc()
}

// RecordStreamWrite records a stream write for the given scope.
func (m *Metrics) RecordStreamWrite(scope string) {
	if m.streamWrites == nil {
		return
	}
	m.streamWrites.WithLabelValues(scope).Inc()
}

// Handler returns an HTTP handler serving the metrics registry.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
