package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_Disabled(t *testing.T) {
	tr, err := New(&config.TracingConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tr.Enabled() {
		t.Error("disabled config produced an enabled tracer")
	}

	ctx, span := tr.Start(context.Background(), "op")
	defer span.End()
	if TraceID(ctx) != "" {
		t.Error("noop tracer produced a valid trace ID")
	}
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil, "test"); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNilTracer(t *testing.T) {
	var tr *Tracer
	_, span := tr.Start(context.Background(), "op")
	span.End()
	if tr.Enabled() {
		t.Error("nil tracer reports enabled")
	}
}

func newRecordingTracer() (*Tracer, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return &Tracer{tracer: provider.Tracer("test"), provider: provider, enabled: true}, rec
}

func TestEnd_RecordsError(t *testing.T) {
	tr, rec := newRecordingTracer()

	_, span := tr.Start(context.Background(), "failing")
	End(span, errors.New("boom"))

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if len(spans[0].Events()) == 0 {
		t.Error("error event not recorded")
	}
}

func TestHTTPMiddleware(t *testing.T) {
	tr, rec := newRecordingTracer()

	var sawTrace bool
	h := HTTPMiddleware(tr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawTrace = TraceID(r.Context()) != ""
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/rules", nil))

	if !sawTrace {
		t.Error("handler context carries no trace")
	}
	if w.Header().Get("X-Trace-ID") == "" {
		t.Error("X-Trace-ID header missing")
	}
	if got := rec.Ended(); len(got) != 1 || got[0].Name() != "GET /v1/rules" {
		t.Errorf("unexpected spans: %v", got)
	}
}

func TestNewSampler(t *testing.T) {
	for _, ratio := range []float64{0, 0.5, 1} {
		if newSampler(ratio) == nil {
			t.Errorf("newSampler(%v) returned nil", ratio)
		}
	}
}
