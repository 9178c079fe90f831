package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration. URL (redis://...) wins
// over Addr when set.
type RedisConfig struct {
	URL         string
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// DefaultRedisConfig returns defaults for a local Redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		DialTimeout: 5 * time.Second,
	}
}

// Options converts the config into go-redis options.
func (c RedisConfig) Options() (*redis.Options, error) {
	if c.URL != "" {
		opts, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: c.DialTimeout,
	}, nil
}

// NewRedisClient creates a Redis client and pings it, retrying startup
// failures. logger may be nil.
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	err = withRetry(ctx, "redis ping", logger, func(error) bool { return true }, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
