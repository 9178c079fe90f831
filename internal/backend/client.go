// Package backend is the typed client for the distributor's REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/veryfrut/storefront/pkg/errors"
	"github.com/veryfrut/storefront/pkg/httpclient"
	"github.com/veryfrut/storefront/pkg/logger"
	"github.com/veryfrut/storefront/pkg/middleware"
	"github.com/veryfrut/storefront/pkg/tracing"
)

const serviceName = "backend"

// TokenSource returns the bearer token for the current request, or "".
type TokenSource func(ctx context.Context) string

// UnauthorizedPolicy is invoked whenever the backend answers 401.
type UnauthorizedPolicy func(ctx context.Context)

// ContextToken reads the token the auth middleware stored in ctx.
func ContextToken(ctx context.Context) string {
	return middleware.TokenFromContext(ctx)
}

// Client calls the backend API. It holds no global state; construct one per
// backend base URL and share it.
type Client struct {
	baseURL        string
	doer           httpclient.Doer
	tokens         TokenSource
	onUnauthorized UnauthorizedPolicy
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource overrides where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUnauthorizedPolicy sets the callback run on 401 responses.
func WithUnauthorizedPolicy(p UnauthorizedPolicy) Option {
	return func(c *Client) { c.onUnauthorized = p }
}

// New creates a Client for baseURL that sends requests through doer.
func New(baseURL string, doer httpclient.Doer, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		doer:           doer,
		tokens:         ContextToken,
		onUnauthorized: func(context.Context) {},
		logger:         logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// do sends a JSON request and decodes a 2xx body into out (when non-nil).
// Non-2xx statuses become *apperrors.AppError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.CorrelationHeader, id)
	}
	tracing.InjectHeaders(ctx, req.Header)

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			return apperrors.ServiceUnavailable("backend temporarily unavailable")
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.ServiceUnavailable(fmt.Sprintf("backend %s %s: %v", method, path, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			c.logger.WarnContext(ctx, "backend rejected credentials",
				slog.String("method", method),
				slog.String("path", path),
			)
			c.onUnauthorized(ctx)
		}
		return httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Upstream(fmt.Sprintf("decode %s %s", method, path), err)
	}
	return nil
}

func pathf(format string, args ...any) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(fmt.Sprint(a))
	}
	return fmt.Sprintf(format, escaped...)
}
