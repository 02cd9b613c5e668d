// Package redis opens the shared go-redis client backing record locks, the
// merchant allow-list cache and the ingest rate limiter.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tally/internal/platform/config"
)

type Client struct {
	*redis.Client
}

// New dials Redis and pings it once. It returns (nil, nil) when no URL is
// configured so callers fall back to in-process implementations.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return &Client{Client: rdb}, nil
}

// options overlays the non-zero tuning values onto the URL's options.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	setPositive(&opts.PoolSize, cfg.PoolSize)
	setPositive(&opts.MinIdleConns, cfg.MinIdleConns)
	setPositive(&opts.DialTimeout, cfg.DialTimeout)
	setPositive(&opts.ReadTimeout, cfg.ReadTimeout)
	setPositive(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func setPositive[T ~int | ~int64](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}

// Health pings the server; the readiness endpoint reports it per backend.
func (c *Client) Health(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("redis not configured")
	}
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}
