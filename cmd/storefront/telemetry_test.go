package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vango-dev/storefront/internal/config"
)

func TestSetupTracingDisabled(t *testing.T) {
	shutdown, err := setupTracing(context.Background(), config.New().Telemetry)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestTracerProviderSampling(t *testing.T) {
	cfg := config.New().Telemetry

	rec := tracetest.NewSpanRecorder()
	tp := newTracerProvider(cfg, sdktrace.WithSpanProcessor(rec))
	_, span := tp.Tracer("test").Start(context.Background(), "navigate")
	span.End()
	require.Len(t, rec.Ended(), 1)

	res := rec.Ended()[0].Resource()
	name, ok := res.Set().Value("service.name")
	require.True(t, ok)
	assert.Equal(t, config.DefaultServiceName, name.AsString())

	cfg.SampleRatio = 0
	rec = tracetest.NewSpanRecorder()
	tp = newTracerProvider(cfg, sdktrace.WithSpanProcessor(rec))
	_, span = tp.Tracer("test").Start(context.Background(), "navigate")
	span.End()
	assert.Empty(t, rec.Ended(), "ratio 0 samples nothing")
}
