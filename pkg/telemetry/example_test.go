package telemetry_test

import (
	"context"
	"fmt"
	"time"

	"github.com/workstore/workstore/pkg/telemetry"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	// Create configuration
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = "workstore"
	cfg.ServiceVersion = "1.0.0"

	// Initialize telemetry
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	// Add telemetry to context
	ctx := tel.WithContext(context.Background())

	// Use telemetry
	logger := telemetry.FromContext(ctx)
	logger.Info("Storage service started")

	// Output can vary, so we don't specify output for this example
}

// Example_structuredLogging demonstrates structured logging features.
func Example_structuredLogging() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Component-specific logger
	logger := tel.Logger.NewComponentLogger("storage.manager")

	// Add context fields
	logger = logger.WithIdentity("/workspaces/alpha@v1").WithStoreID("store-123")

	// Log at different levels
	logger.Debug("Opening backing store")
	logger.Info("Backing store opened")
	logger.Warn("Backing store open retried")

	// Log with error
	err := fmt.Errorf("database is locked")
	logger.WithError(err).Error("Failed to open backing store")

	// Output varies, no output specified
}

// Example_distributedTracing demonstrates tracing a store open.
func Example_distributedTracing() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Tracing.Exporter = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start a span around a store open
	_, span := tel.Tracer.StartOpenSpan(ctx, "/workspaces/alpha@v1", "/var/cache/workstore/abc/workspace.db")
	defer span.End()

	// Simulate work
	time.Sleep(10 * time.Millisecond)

	// Record success
	telemetry.RecordSuccess(span)

	// Output varies, no output specified
}

// Example_metricsCollection demonstrates metrics collection.
func Example_metricsCollection() {
	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = true

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Record store lifecycle metrics
	start := time.Now()
	time.Sleep(5 * time.Millisecond)
	tel.Metrics.RecordOpen("success", time.Since(start).Seconds())
	tel.Metrics.HandleOpened()

	// Record cache behavior
	tel.Metrics.RecordSlotHit()
	tel.Metrics.RecordSlotSwap()

	// Record recovery and fallback events
	tel.Metrics.RecordCorruptionRecovery()
	tel.Metrics.RecordNoopFallback()

	// Record stream traffic
	tel.Metrics.RecordStreamRead("global")
	tel.Metrics.RecordStreamWrite("project")

	tel.Metrics.HandleClosed()

	fmt.Println("Metrics recorded successfully")
	// Output: Metrics recorded successfully
}

// Example_productionConfiguration demonstrates production-ready configuration.
func Example_productionConfiguration() {
	cfg := telemetry.ProductionConfig()

	// Customize for your environment
	cfg.ServiceName = "workstore"
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "production"

	// Configure OTLP exporter
	cfg.Tracing.Exporter = "otlp"
	cfg.Tracing.Endpoint = "otel-collector.monitoring.svc.cluster.local:4317"
	cfg.Tracing.SamplingRate = 0.1 // 10% sampling
	cfg.Tracing.Insecure = false   // Use TLS in production

	// Configure metrics
	cfg.Metrics.Namespace = "workstore"

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	fmt.Println("Production configuration validated")
	// Output: Production configuration validated
}

// Example_errorRecording demonstrates error recording on spans.
func Example_errorRecording() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start a span
	_, span := tel.Tracer.StartOpenSpan(ctx, "/workspaces/alpha@v1", "/var/cache/workstore/abc/workspace.db")
	defer span.End()

	// Simulate an error
	err := fmt.Errorf("database disk image is malformed")

	if err != nil {
		// Record error on span
		telemetry.RecordError(span, err)

		// Log error
		logger := telemetry.FromContext(ctx)
		logger.WithError(err).Error("Backing store open failed")
	}

	fmt.Println("Error recording complete")
	// Output: Error recording complete
}

// Example_multipleComponents demonstrates telemetry in a multi-component system.
func Example_multipleComponents() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Component-specific loggers
	managerLogger := tel.Logger.NewComponentLogger("storage.manager")
	backendLogger := tel.Logger.NewComponentLogger("storage.sqlite")
	watcherLogger := tel.Logger.NewComponentLogger("storage.watcher")

	managerLogger.Info("Manager initialized")
	backendLogger.Info("Backend ready")
	watcherLogger.Info("Watching working folder")

	fmt.Println("Multi-component logging complete")
	// Output: Multi-component logging complete
}
