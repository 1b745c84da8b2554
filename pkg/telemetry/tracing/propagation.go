package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by hubflow spans.
const (
	AttrRuleSetVersion = attribute.Key("hubflow.rules.version")
	AttrRunID          = attribute.Key("hubflow.reconciliation.run_id")
	AttrJobType        = attribute.Key("hubflow.reconciliation.job_type")
	AttrDegraded       = attribute.Key("hubflow.eligibility.degraded")
)

// HTTPMiddleware extracts W3C trace context from incoming requests and
// wraps each request in a server span named after its route.
func HTTPMiddleware(t *Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := t.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			),
		)
		defer span.End()

		if sc := span.SpanContext(); sc.IsValid() {
			w.Header().Set("X-Trace-ID", sc.TraceID().String())
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
