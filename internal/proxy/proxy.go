// Package proxy forwards admin catalog and upload requests to the backend
// unchanged apart from the path prefix and credentials.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	stdhttputil "net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/veryfrut/storefront/pkg/httputil"
	"github.com/veryfrut/storefront/pkg/logger"
	"github.com/veryfrut/storefront/pkg/middleware"
	"github.com/veryfrut/storefront/pkg/tracing"
)

// Resources are the backend collections reachable through the admin proxy.
var Resources = []string{"categories", "areas", "unit-measurements", "products", "uploads"}

// Config tunes the upstream transport.
type Config struct {
	Prefix          string
	DialTimeout     time.Duration
	ResponseTimeout time.Duration
	IdleTimeout     time.Duration
	MaxIdleConns    int
}

// DefaultConfig mounts the proxy under /api/v1/admin.
func DefaultConfig() Config {
	return Config{
		Prefix:          "/api/v1/admin",
		DialTimeout:     5 * time.Second,
		ResponseTimeout: 30 * time.Second,
		IdleTimeout:     90 * time.Second,
		MaxIdleConns:    100,
	}
}

// Admin reverse proxies /<prefix>/<resource>/... to <backend>/<resource>/...
type Admin struct {
	proxy          *stdhttputil.ReverseProxy
	prefix         string
	allowed        map[string]struct{}
	tokens         func(ctx context.Context) string
	onUnauthorized func(ctx context.Context)
	logger         *slog.Logger
}

// Option configures an Admin proxy.
type Option func(*Admin)

// WithTokenSource overrides where bearer tokens come from.
func WithTokenSource(ts func(ctx context.Context) string) Option {
	return func(a *Admin) { a.tokens = ts }
}

// WithUnauthorizedPolicy sets the callback run on upstream 401 responses.
func WithUnauthorizedPolicy(p func(ctx context.Context)) Option {
	return func(a *Admin) { a.onUnauthorized = p }
}

// NewAdmin creates the admin proxy for backendURL.
func NewAdmin(backendURL string, cfg Config, logger *slog.Logger, opts ...Option) (*Admin, error) {
	target, err := url.Parse(backendURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", backendURL)
	}

	a := &Admin{
		prefix:         strings.TrimRight(cfg.Prefix, "/"),
		allowed:        make(map[string]struct{}, len(Resources)),
		tokens:         middleware.TokenFromContext,
		onUnauthorized: func(context.Context) {},
		logger:         logger,
	}
	for _, r := range Resources {
		a.allowed[r] = struct{}{}
	}
	for _, o := range opts {
		o(a)
	}

	a.proxy = &stdhttputil.ReverseProxy{
		Rewrite:   a.rewrite(target),
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: cfg.DialTimeout}).DialContext,
			ResponseHeaderTimeout: cfg.ResponseTimeout,
			IdleConnTimeout:       cfg.IdleTimeout,
			MaxIdleConns:          cfg.MaxIdleConns,
		},
		ModifyResponse: func(resp *http.Response) error {
			if resp.StatusCode == http.StatusUnauthorized {
				a.onUnauthorized(resp.Request.Context())
			}
			return nil
		},
		ErrorHandler: a.errorHandler,
	}

	logger.Info("registered admin proxy",
		slog.String("prefix", a.prefix),
		slog.String("target", target.Redacted()),
	)
	return a, nil
}

func (a *Admin) rewrite(target *url.URL) func(*stdhttputil.ProxyRequest) {
	return func(pr *stdhttputil.ProxyRequest) {
		pr.SetURL(target)
		pr.Out.URL.Path = singleJoin(target.Path, strings.TrimPrefix(pr.In.URL.Path, a.prefix))
		pr.Out.URL.RawPath = ""
		pr.Out.Host = target.Host
		pr.SetXForwarded()

		ctx := pr.In.Context()
		pr.Out.Header.Del("Cookie")
		if token := a.tokens(ctx); token != "" {
			pr.Out.Header.Set("Authorization", "Bearer "+token)
		}
		if id := logger.CorrelationIDFromContext(ctx); id != "" {
			pr.Out.Header.Set("X-Correlation-ID", id)
		}
		tracing.InjectHeaders(ctx, pr.Out.Header)
	}
}

// ServeHTTP forwards requests for known resources and 404s everything else.
func (a *Admin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, a.prefix)
	if rest == r.URL.Path {
		a.notFound(w, r)
		return
	}
	resource, _, _ := strings.Cut(strings.TrimPrefix(rest, "/"), "/")
	if _, ok := a.allowed[resource]; !ok {
		a.notFound(w, r)
		return
	}
	a.proxy.ServeHTTP(w, r)
}

func (a *Admin) notFound(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "unknown admin resource"},
	})
}

func (a *Admin) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.ErrorContext(r.Context(), "admin proxy error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	httputil.WriteJSON(w, http.StatusBadGateway, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:      "BAD_GATEWAY",
			Message:   "backend unavailable",
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}

func singleJoin(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return strings.TrimRight(a, "/") + "/" + strings.TrimLeft(b, "/")
}
