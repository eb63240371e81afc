// Package telemetry provides an OpenTelemetry implementation of core.Telemetry.
//
// The provider traces every event a response handler emits and records
// counters as histograms. Spans can be written to a stdout exporter, shipped
// over OTLP/gRPC, or kept in process with exporter "none".
//
//	tel, shutdown, err := telemetry.NewFromConfig(ctx, cfg.Telemetry, cfg.Name, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	defer shutdown(ctx)
package telemetry
