// Package tracing provides OpenTelemetry tracing for hubflow.
//
// Spans are exported over OTLP gRPC when telemetry.tracing.enabled is set.
// Otherwise New returns a noop tracer, and so does a nil *Tracer, so
// components can take a tracer unconditionally.
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: otel-collector:4317
//	    sample_ratio: 0.1
//
// HTTP requests carry W3C trace context (traceparent, tracestate). The
// server extracts it in HTTPMiddleware and echoes the trace ID in the
// X-Trace-ID response header.
package tracing
