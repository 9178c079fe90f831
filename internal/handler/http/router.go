package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veryfrut/storefront/internal/auth"
	"github.com/veryfrut/storefront/internal/cart"
	"github.com/veryfrut/storefront/internal/domain"
	"github.com/veryfrut/storefront/internal/history"
	"github.com/veryfrut/storefront/pkg/health"
	"github.com/veryfrut/storefront/pkg/middleware"
)

const serviceName = "storefront"

// Services are the application services the router exposes.
type Services struct {
	Cart     *cart.Service
	Orders   *history.OrderService
	Auth     *auth.Service
	Catalog  CatalogSource
	Profiles ProfileStore
	// Admin serves /api/v1/admin/{resource}/* for the proxied catalog resources.
	Admin http.Handler
}

// Options configures router-level behavior.
type Options struct {
	Decoder        *auth.Decoder
	Cookies        auth.CookieConfig
	CORS           middleware.CORSConfig
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
	CatalogMaxAge  int
	StaticDir      string
	PprofEnabled   bool
	PprofCIDRs     []string
}

// NewRouter creates a chi router with all storefront routes registered.
// Background work started by middleware stops when ctx is canceled.
func NewRouter(ctx context.Context, svc Services, opts Options, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if opts.PprofEnabled {
		middleware.RegisterPprof(r, opts.PprofCIDRs, logger)
	}

	authHandler := NewAuthHandler(svc.Auth, opts.Cookies, logger)
	catalogHandler := NewCatalogHandler(svc.Catalog, logger)
	cartHandler := NewCartHandler(svc.Cart, logger)
	orderHandler := NewOrderHandler(svc.Orders, logger)
	profileHandler := NewProfileHandler(svc.Profiles, logger)
	requireAuth := middleware.Auth(opts.Decoder.Validator())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(opts.CORS))
		r.Use(middleware.RateLimit(ctx, opts.RateLimitRPS, opts.RateLimitBurst, logger))
		r.Use(chimw.Compress(5))
		r.Use(chimw.Timeout(opts.RequestTimeout))
		r.Use(auth.TrackExpiry(opts.Cookies))

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(middleware.NoStore)
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/logout", authHandler.Logout)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Use(middleware.CacheControl(opts.CatalogMaxAge))
			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/{id}", catalogHandler.GetProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.RequestLogger(logger))
			r.Use(middleware.NoStore)
			r.Use(ContentTypeJSON)

			r.Get("/profile", profileHandler.Get)
			r.Patch("/profile", profileHandler.Update)
			r.Patch("/profile/password", profileHandler.ChangePassword)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(domain.RoleCustomer)))

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", cartHandler.Get)
					r.Delete("/", cartHandler.Clear)
					r.Get("/grouped", cartHandler.Grouped)
					r.Post("/items", cartHandler.AddItem)
					r.Put("/items/{productId}/{unitId}", cartHandler.UpdateQuantity)
					r.Delete("/items/{productId}/{unitId}", cartHandler.RemoveLine)
					r.Post("/checkout", cartHandler.Checkout)
				})

				r.Get("/orders", orderHandler.List)
				r.Patch("/orders/{id}", orderHandler.Edit)
			})
		})

		// Multipart uploads pass through the admin proxy, so Content-Type is
		// not restricted here.
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.RequestLogger(logger))
			r.Use(middleware.RequireRole(string(domain.RoleAdmin)))
			r.Use(middleware.NoStore)

			r.With(ContentTypeJSON).Patch("/orders/{id}/status", orderHandler.UpdateStatus)
			if svc.Admin != nil {
				r.Handle("/*", svc.Admin)
			}
		})
	})

	// Pages and assets
	r.Group(func(r chi.Router) {
		r.Use(auth.Guard(opts.Decoder.Validator(), opts.Cookies))
		r.Handle("/*", NewStaticHandler(opts.StaticDir))
	})

	return r
}
