package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientConfig configures the shared client used for idempotency keys and
// report caching.
type ClientConfig struct {
	URL         string
	PoolSize    int
	DialTimeout time.Duration
}

// NewClient parses the URL, applies pool overrides and verifies the server
// answers PING before returning.
func NewClient(ctx context.Context, cfg ClientConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// Checker answers readiness probes for a redis connection.
type Checker struct {
	client redis.Cmdable
}

// NewChecker wraps client for readiness checks.
func NewChecker(client redis.Cmdable) *Checker {
	return &Checker{client: client}
}

// Ping reports whether the server is reachable.
func (c *Checker) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
