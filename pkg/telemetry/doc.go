// Package telemetry provides observability instrumentation for workstore.
//
// It integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), and Prometheus metrics behind small wrappers so that the
// storage packages can instrument themselves without caring which exporters
// are configured.
//
// Initialize telemetry once at startup:
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// and hand the components to the storage manager via storage.Options.
package telemetry
