package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/veryfrut/storefront/internal/auth"
	"github.com/veryfrut/storefront/internal/backend"
	"github.com/veryfrut/storefront/internal/cart"
	"github.com/veryfrut/storefront/internal/config"
	"github.com/veryfrut/storefront/internal/event"
	handler "github.com/veryfrut/storefront/internal/handler/http"
	"github.com/veryfrut/storefront/internal/history"
	"github.com/veryfrut/storefront/internal/proxy"
	"github.com/veryfrut/storefront/internal/repository"
	"github.com/veryfrut/storefront/internal/repository/memory"
	pgrepo "github.com/veryfrut/storefront/internal/repository/postgres"
	"github.com/veryfrut/storefront/internal/repository/postgres/migrations"
	redisrepo "github.com/veryfrut/storefront/internal/repository/redis"
	"github.com/veryfrut/storefront/pkg/database"
	"github.com/veryfrut/storefront/pkg/health"
	"github.com/veryfrut/storefront/pkg/httpclient"
	pkgkafka "github.com/veryfrut/storefront/pkg/kafka"
	"github.com/veryfrut/storefront/pkg/middleware"
	"github.com/veryfrut/storefront/pkg/tracing"
)

const serviceName = "storefront"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	history        *history.Manager
	httpServer     *http.Server
	cancelRouter   context.CancelFunc
	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	tcfg := tracing.DefaultConfig(serviceName)
	tcfg.Environment = cfg.Environment
	tcfg.Enabled = cfg.OTELEnabled
	tcfg.OTLPEndpoint = cfg.OTELEndpoint
	tcfg.Insecure = cfg.OTELInsecure
	tcfg.SampleRate = cfg.OTELSampleRate
	if a.shutdownTracer, err = tracing.InitTracer(ctx, tcfg); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// Backend API client: retries inside the breaker, 401s expire the session.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.BackendTimeout
	httpCfg.MaxRetries = cfg.BackendRetries
	cbCfg := httpclient.DefaultCircuitBreakerConfig(serviceName + "-backend")
	cbCfg.Timeout = cfg.BreakerTimeout
	cbCfg.FailureRatio = cfg.BreakerRatio
	cbCfg.MinRequests = cfg.BreakerRequests
	doer := httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), cbCfg, logger)
	client := backend.New(cfg.BackendURL, doer, logger,
		backend.WithUnauthorizedPolicy(auth.MarkSessionExpired))

	healthHandler := health.NewHandler()
	healthHandler.RegisterNonCritical("backend", client.Ping)

	repo, err := a.cartRepository(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	var publisher event.Publisher = event.NopPublisher{}
	if cfg.EventsEnabled() {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Info("no kafka brokers configured, events disabled")
	}
	events := event.NewProducer(publisher, logger)

	hcfg := history.DefaultConfig()
	hcfg.MinRefreshInterval = cfg.HistoryMinRefresh
	hcfg.PollInterval = cfg.HistoryPoll
	hcfg.SessionIdle = cfg.HistorySessionIdle
	hcfg.FetchConcurrency = cfg.HistoryConcurrency
	a.history = history.NewManager(client, hcfg, logger)

	if cfg.EventsEnabled() {
		a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaConsumerGroup,
			Topic:    event.TopicOrderStatusChanged,
			MinBytes: 1,
			MaxBytes: 1 << 20,
		}, event.StatusChangedHandler(a.forceRefresh, logger), logger)
	}

	admin, err := proxy.NewAdmin(cfg.BackendURL, proxy.DefaultConfig(), logger,
		proxy.WithUnauthorizedPolicy(auth.MarkSessionExpired))
	if err != nil {
		return nil, fmt.Errorf("admin proxy: %w", err)
	}

	decoder := auth.NewDecoder(cfg.JWTSecret)
	if !decoder.Verifies() {
		logger.Warn("JWT_SECRET is not set, session tokens are decoded without signature verification")
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins

	routerCtx, cancelRouter := context.WithCancel(context.Background())
	a.cancelRouter = cancelRouter
	router := handler.NewRouter(routerCtx, handler.Services{
		Cart:     cart.NewService(repo, client, client, events, logger),
		Orders:   history.NewOrderService(a.history, client, events, loc, logger),
		Auth:     auth.NewService(client, decoder, logger),
		Catalog:  client,
		Profiles: client,
		Admin:    admin,
	}, handler.Options{
		Decoder: decoder,
		Cookies: auth.CookieConfig{
			Secure: cfg.CookieSecure,
			MaxAge: cfg.SessionMaxAge,
		},
		CORS:           cors,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		RequestTimeout: cfg.RequestTimeout,
		CatalogMaxAge:  60,
		StaticDir:      cfg.StaticDir,
		PprofEnabled:   cfg.PprofEnabled,
		PprofCIDRs:     cfg.PprofCIDRs,
	}, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout + 5*time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a, nil
}

// cartRepository connects the configured cart store and registers its health check.
func (a *App) cartRepository(ctx context.Context, hh *health.Handler) (repository.CartRepository, error) {
	cfg := a.cfg
	switch cfg.CartStore {
	case config.CartStoreRedis:
		rcfg := database.DefaultRedisConfig()
		rcfg.URL = cfg.RedisURL
		rcfg.Addr = cfg.RedisAddr
		rcfg.Password = cfg.RedisPass
		rcfg.DB = cfg.RedisDB
		rdb, err := database.NewRedisClient(ctx, rcfg, a.logger)
		if err != nil {
			return nil, err
		}
		a.rdb = rdb
		hh.Register("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		a.logger.Info("connected to Redis", slog.String("addr", rcfg.Addr), slog.Int("db", rcfg.DB))
		return redisrepo.NewCartRepository(rdb, cfg.CartTTLDuration()), nil

	case config.CartStorePostgres:
		pcfg := database.DefaultPostgresConfig()
		pcfg.URL = cfg.PostgresURL
		pcfg.Host = cfg.PostgresHost
		pcfg.Port = cfg.PostgresPort
		pcfg.User = cfg.PostgresUser
		pcfg.Password = cfg.PostgresPassword
		pcfg.DBName = cfg.PostgresDB
		pcfg.SSLMode = cfg.PostgresSSLMode
		pcfg.MaxConns = cfg.PostgresMaxConns
		pool, err := database.NewPostgresPool(ctx, pcfg, a.logger)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
			a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}
		database.SetSlowQueryLogging(200*time.Millisecond, a.logger)
		hh.Register("postgres", pool.Ping)
		a.logger.Info("connected to PostgreSQL", slog.String("host", pcfg.Host), slog.String("db", pcfg.DBName))
		return pgrepo.NewCartRepository(pool), nil

	default:
		a.logger.Warn("carts are kept in memory and lost on restart")
		return memory.NewCartRepository(), nil
	}
}

func (a *App) forceRefresh(ctx context.Context, customerID string) {
	if err := a.history.ForceRefresh(ctx, customerID); err != nil {
		a.logger.WarnContext(ctx, "history refresh after status change failed",
			slog.String("customer_id", customerID),
			slog.String("error", err.Error()),
		)
	}
}

// Run starts the HTTP server and background workers and blocks until ctx is
// canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.history.Run(gctx)
		return nil
	})

	if a.consumer != nil {
		g.Go(func() error {
			if err := a.consumer.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("status consumer: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			a.logger.Info("shutdown signal received")
		}
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.closeResources()

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

// closeResources releases everything NewApp opened. Unset fields are skipped.
func (a *App) closeResources() {
	if a.cancelRouter != nil {
		a.cancelRouter()
	}
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		}
	}
	if a.history != nil {
		a.history.Close()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
