package middleware

import (
	"log/slog"
	"net/http"

	"github.com/veryfrut/storefront/pkg/logger"
)

// RequestLogger stores a logger enriched with correlation_id, user_id, role,
// trace_id and span_id in the request context. Mount it after
// RequestLogging, Tracing and, on authenticated routes, Auth.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if userID := UserIDFromContext(ctx); userID != "" {
				ctx = logger.WithUser(ctx, userID, RoleFromContext(ctx))
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
