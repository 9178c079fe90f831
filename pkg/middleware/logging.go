package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veryfrut/storefront/pkg/logger"
)

// CorrelationHeader carries the request id between the browser, this
// service and the backend API.
const CorrelationHeader = "X-Correlation-ID"

// RequestLogging assigns a correlation ID and logs each request with its
// status and duration. Health probes and static assets are logged at debug.
func RequestLogging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			correlationID := r.Header.Get(CorrelationHeader)
			if correlationID == "" || len(correlationID) > 128 {
				correlationID = uuid.NewString()
			}

			ctx := logger.WithCorrelationID(r.Context(), correlationID)
			r = r.WithContext(ctx)
			w.Header().Set(CorrelationHeader, correlationID)

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			level := slog.LevelInfo
			switch {
			case sw.statusCode >= 500:
				level = slog.LevelError
			case isQuietPath(r.URL.Path):
				level = slog.LevelDebug
			}

			l.Log(ctx, level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", sw.bytes),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.String("correlation_id", correlationID),
			)
		})
	}
}

func isQuietPath(path string) bool {
	return strings.HasPrefix(path, "/health/") || path == "/metrics" || strings.HasPrefix(path, "/_next/")
}
