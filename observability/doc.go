// Package observability provides OpenTelemetry tracing and metrics for
// pipeline runs.
//
// Exporting is opt-in. With Config.Enabled false the global no-op providers
// stay in place and spans and instruments cost nothing:
//
//	shutdown, err := observability.Init(ctx, cfg.Observability)
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanStage)
//	defer span.End()
//
//	observability.DefaultMetrics().RecordStage(ctx, "reducer", "ok", in, out, duration)
package observability
