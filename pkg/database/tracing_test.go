package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func TestTraceQuery_Success(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "LoadCart", "SELECT lines FROM carts WHERE customer_id = $1")
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "db.LoadCart", span.Name)
	assert.Equal(t, codes.Unset, span.Status.Code)

	attrs := map[string]string{}
	for _, a := range span.Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "LoadCart", attrs["db.operation"])
}

func TestTraceQuery_Error(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "SaveCart", "INSERT INTO carts ...")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.NotEmpty(t, spans[0].Events)
}

func TestTraceQuery_ChildOfParent(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "parent")
	_, end := TraceQuery(ctx, "DeleteCart", "DELETE FROM carts WHERE customer_id = $1")
	end(nil)
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent.SpanID())
}

func TestSlowQueryLogging(t *testing.T) {
	setupTestTracer(t)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	tests := []struct {
		name      string
		threshold time.Duration
		err       error
		wantLog   bool
	}{
		{"slow", time.Nanosecond, nil, true},
		{"slow with error", time.Nanosecond, errors.New("unique violation"), true},
		{"fast", time.Hour, nil, false},
		{"disabled", 0, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetSlowQueryLogging(tt.threshold, slog.New(slog.NewJSONHandler(&buf, nil)))

			_, end := TraceQuery(context.Background(), "ScanCarts", "SELECT * FROM carts")
			time.Sleep(time.Microsecond)
			end(tt.err)

			if !tt.wantLog {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), "slow query detected")
			assert.Contains(t, buf.String(), "ScanCarts")
			if tt.err != nil {
				assert.Contains(t, buf.String(), tt.err.Error())
			}
		})
	}
}
