package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/veryfrut/storefront/pkg/logger"
)

func newTestLogger(w *bytes.Buffer) *slog.Logger {
	return logger.NewWithWriter("storefront-test", "debug", w)
}

func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var out map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestRequestLogger_IncludesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("test")
	}))

	ctx := logger.WithCorrelationID(context.Background(), "corr-test-123")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil).WithContext(ctx)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got := lastLogLine(t, &buf)["correlation_id"]; got != "corr-test-123" {
		t.Errorf("correlation_id = %v, want %q", got, "corr-test-123")
	}
}

func TestRequestLogger_IncludesUserAndRoleFromAuth(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("test")
	}))

	ctx := WithClaims(context.Background(), "tok", &Claims{UserID: "42", Role: "customer"})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil).WithContext(ctx)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := lastLogLine(t, &buf)
	if out["user_id"] != "42" || out["role"] != "customer" {
		t.Errorf("user_id/role = %v/%v, want 42/customer", out["user_id"], out["role"])
	}
}

func TestRequestLogger_Anonymous_OmitsUser(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("test")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if _, ok := lastLogLine(t, &buf)["user_id"]; ok {
		t.Error("expected no user_id field for anonymous requests")
	}
}

func TestRequestLogging_GeneratesAndEchoesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	handler := RequestLogging(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", nil))

	if seen == "" || rec.Header().Get(CorrelationHeader) != seen {
		t.Fatalf("correlation id not propagated: ctx=%q header=%q", seen, rec.Header().Get(CorrelationHeader))
	}
	out := lastLogLine(t, &buf)
	if out["status"] != float64(http.StatusAccepted) {
		t.Errorf("status = %v, want 202", out["status"])
	}
	if out["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", out["level"])
	}
}

func TestRequestLogging_KeepsInboundCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogging(newTestLogger(&buf))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(CorrelationHeader, "from-browser")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(CorrelationHeader); got != "from-browser" {
		t.Errorf("header = %q, want from-browser", got)
	}
}

func TestRequestLogging_HealthProbesAtDebug(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogging(newTestLogger(&buf))(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if got := lastLogLine(t, &buf)["level"]; got != "DEBUG" {
		t.Errorf("level = %v, want DEBUG", got)
	}
}

func TestRecovery_WritesEnvelope(t *testing.T) {
	var buf bytes.Buffer
	handler := Recovery(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil cart")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"INTERNAL_ERROR"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Error("expected panic to be logged")
	}
}
