package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracer_DisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), DefaultConfig("storefront"))
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_EnabledInstallsProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := DefaultConfig("storefront")
	cfg.Enabled = true
	cfg.OTLPEndpoint = "127.0.0.1:0"

	shutdown, err := InitTracer(context.Background(), cfg)
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return rec
}

func TestEnd_RecordsError(t *testing.T) {
	rec := withRecorder(t)

	_, span := Tracer("test").Start(context.Background(), "history.enrich")
	End(span, errors.New("area fetch failed"), attribute.Int("missing_products", 2))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.Int("missing_products", 2))
	assert.Len(t, ended[0].Events(), 1)
}

func TestInjectHeaders_WritesTraceparent(t *testing.T) {
	withRecorder(t)

	ctx, span := Tracer("test").Start(context.Background(), "backend.call")
	defer span.End()

	h := http.Header{}
	InjectHeaders(ctx, h)
	assert.NotEmpty(t, h.Get("traceparent"))
}
