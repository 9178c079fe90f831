package config

import (
	"fmt"
	"net/url"
	"slices"
	"time"

	pkgconfig "github.com/veryfrut/storefront/pkg/config"
)

// Cart store backends.
const (
	CartStoreRedis    = "redis"
	CartStorePostgres = "postgres"
	CartStoreMemory   = "memory"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	StaticDir       string        `env:"STATIC_DIR" envDefault:"./web/dist"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	CookieSecure    bool          `env:"COOKIE_SECURE" envDefault:"false"`
	SessionMaxAge   time.Duration `env:"SESSION_MAX_AGE" envDefault:"24h"`

	// Backend REST API
	BackendURL      string        `env:"BACKEND_URL" envDefault:"http://localhost:3000/api"`
	BackendTimeout  time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`
	BackendRetries  int           `env:"BACKEND_MAX_RETRIES" envDefault:"2"`
	BreakerTimeout  time.Duration `env:"BACKEND_BREAKER_TIMEOUT" envDefault:"15s"`
	BreakerRatio    float64       `env:"BACKEND_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerRequests uint32        `env:"BACKEND_BREAKER_MIN_REQUESTS" envDefault:"5"`

	// JWT_SECRET enables signature verification of session tokens.
	JWTSecret string `env:"JWT_SECRET"`

	// Cart persistence
	CartStore string `env:"CART_STORE" envDefault:"redis"`
	CartTTL   int    `env:"CART_TTL_HOURS" envDefault:"168"`

	// Redis
	RedisURL  string `env:"REDIS_URL"`
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// PostgreSQL
	PostgresURL      string `env:"DATABASE_URL"`
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"veryfrut"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"veryfrut"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	PostgresMaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`

	// Kafka. No brokers disables event publishing.
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"storefront-history"`

	// Order history
	HistoryMinRefresh  time.Duration `env:"HISTORY_MIN_REFRESH_INTERVAL" envDefault:"5s"`
	HistoryPoll        time.Duration `env:"HISTORY_POLL_INTERVAL" envDefault:"60s"`
	HistorySessionIdle time.Duration `env:"HISTORY_SESSION_IDLE" envDefault:"30m"`
	HistoryConcurrency int           `env:"HISTORY_FETCH_CONCURRENCY" envDefault:"8"`
	StoreTimezone      string        `env:"STORE_TIMEZONE"`

	// Rate limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELInsecure   bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Profiling
	PprofEnabled bool     `env:"PPROF_ENABLED" envDefault:"false"`
	PprofCIDRs   []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return load(nil)
}

// LoadFrom reads configuration from environ instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(environ)
}

func load(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	var err error
	if environ == nil {
		err = pkgconfig.Load(cfg)
	} else {
		err = pkgconfig.LoadFrom(cfg, environ)
	}
	if err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL, got %q", c.BackendURL)
	}
	if !slices.Contains([]string{CartStoreRedis, CartStorePostgres, CartStoreMemory}, c.CartStore) {
		return fmt.Errorf("invalid CART_STORE %q: want redis, postgres or memory", c.CartStore)
	}
	if c.CartStore == CartStoreMemory && c.Environment == "production" {
		return fmt.Errorf("CART_STORE=memory is not allowed in production")
	}
	if c.CartTTL < 0 {
		return fmt.Errorf("invalid CART_TTL_HOURS: %d", c.CartTTL)
	}
	if c.HistoryMinRefresh < 0 || c.HistoryPoll < 0 || c.HistorySessionIdle < 0 {
		return fmt.Errorf("history intervals must not be negative")
	}
	if c.HistoryPoll > 0 && c.HistoryPoll < c.HistoryMinRefresh {
		return fmt.Errorf("HISTORY_POLL_INTERVAL (%s) must not be shorter than HISTORY_MIN_REFRESH_INTERVAL (%s)",
			c.HistoryPoll, c.HistoryMinRefresh)
	}
	if c.HistoryConcurrency < 1 {
		return fmt.Errorf("invalid HISTORY_FETCH_CONCURRENCY: %d", c.HistoryConcurrency)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit must be positive, got %v rps burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.BreakerRatio <= 0 || c.BreakerRatio > 1 {
		return fmt.Errorf("invalid BACKEND_BREAKER_FAILURE_RATIO: %v", c.BreakerRatio)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("invalid OTEL_SAMPLE_RATE: %v", c.OTELSampleRate)
	}
	if c.Environment == "production" && !c.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be enabled in production")
	}
	return nil
}

// Location returns the time zone used to judge same-day order edits. Empty
// STORE_TIMEZONE means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.StoreTimezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_TIMEZONE %q: %w", c.StoreTimezone, err)
	}
	return loc, nil
}

// CartTTLDuration returns CART_TTL_HOURS as a duration. Zero keeps carts forever.
func (c *Config) CartTTLDuration() time.Duration {
	return time.Duration(c.CartTTL) * time.Hour
}

// EventsEnabled reports whether Kafka brokers are configured.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
