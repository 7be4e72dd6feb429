package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// recordingProvider hands out a tracer that notes span names.
type recordingProvider struct {
	noop.TracerProvider
	started []string
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return &recordingTracer{p: p}
}

type recordingTracer struct {
	noop.Tracer
	p *recordingProvider
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.p.started = append(t.p.started, name)
	return t.Tracer.Start(ctx, name, opts...)
}

func TestTraceStartsSpan(t *testing.T) {
	p := &recordingProvider{}
	r := chi.NewRouter()
	r.Use(Trace(WithTracerProvider(p)))
	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/state", nil))

	if len(p.started) != 1 || p.started[0] != "GET /state" {
		t.Errorf("spans = %v", p.started)
	}
}

func TestTraceFilter(t *testing.T) {
	p := &recordingProvider{}
	called := false
	h := Trace(
		WithTracerProvider(p),
		WithRequestFilter(func(r *http.Request) bool { return r.URL.Path != "/metrics" }),
	)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !called {
		t.Error("filtered requests must still be served")
	}
	if len(p.started) != 0 {
		t.Errorf("filtered request traced: %v", p.started)
	}
}
