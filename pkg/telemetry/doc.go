// Package telemetry groups hubflow's observability packages.
//
//   - logging: structured log/slog loggers with secret redaction
//   - metrics: Prometheus collectors for eligibility, rules and reconciliation
//   - tracing: OpenTelemetry spans exported over OTLP
//   - health: liveness and readiness probes
package telemetry
