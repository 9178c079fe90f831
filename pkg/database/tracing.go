package database

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/veryfrut/storefront/pkg/database"

type slowQuery struct {
	threshold time.Duration
	logger    *slog.Logger
}

var slowQueryCfg atomic.Pointer[slowQuery]

// SetSlowQueryLogging logs queries slower than threshold as warnings.
// A zero threshold or nil logger disables it.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	if threshold <= 0 || logger == nil {
		slowQueryCfg.Store(nil)
		return
	}
	slowQueryCfg.Store(&slowQuery{threshold: threshold, logger: logger})
}

// TraceQuery starts a client span for a SQL statement. Call the returned
// function with the operation's error when it completes:
//
//	ctx, end := database.TraceQuery(ctx, "SaveCart", upsertCart)
//	defer func() { end(err) }()
func TraceQuery(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		sq := slowQueryCfg.Load()
		if sq == nil {
			return
		}
		elapsed := time.Since(start)
		if elapsed < sq.threshold {
			return
		}
		attrs := []any{
			slog.String("operation", operation),
			slog.String("statement", statement),
			slog.Duration("duration", elapsed),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		sq.logger.WarnContext(ctx, "slow query detected", attrs...)
	}
}
