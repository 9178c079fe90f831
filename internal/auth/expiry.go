package auth

import (
	"context"
	"net/http"
	"sync/atomic"
)

type expiryKey struct{}

// MarkSessionExpired flags the current request's session as rejected by the
// backend. It is the backend client's 401 policy.
func MarkSessionExpired(ctx context.Context) {
	if flag, ok := ctx.Value(expiryKey{}).(*atomic.Bool); ok {
		flag.Store(true)
	}
}

// SessionExpired reports whether MarkSessionExpired was called for ctx.
func SessionExpired(ctx context.Context) bool {
	flag, ok := ctx.Value(expiryKey{}).(*atomic.Bool)
	return ok && flag.Load()
}

// TrackExpiry clears the session cookies on any response written after the
// backend rejected the session token.
func TrackExpiry(cfg CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			flag := &atomic.Bool{}
			ctx := context.WithValue(r.Context(), expiryKey{}, flag)
			next.ServeHTTP(&expiryWriter{ResponseWriter: w, flag: flag, cfg: cfg}, r.WithContext(ctx))
		})
	}
}

type expiryWriter struct {
	http.ResponseWriter
	flag        *atomic.Bool
	cfg         CookieConfig
	wroteHeader bool
}

func (w *expiryWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if w.flag.Load() {
			ClearSession(w.ResponseWriter, w.cfg)
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *expiryWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *expiryWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *expiryWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
