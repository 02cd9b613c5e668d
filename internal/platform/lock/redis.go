package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"tally/pkg/platform/sentinel"
)

const (
	defaultTTL   = 30 * time.Second
	defaultWait  = 5 * time.Second
	defaultRetry = 50 * time.Millisecond
	keyPrefix    = "tally:lock:"
)

// Redis coordinates writers across instances with redislock. A lock that
// cannot be obtained within the wait budget fails with
// sentinel.ErrLockNotObtained.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	logger *slog.Logger
}

type RedisOption func(*Redis)

func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithWait(wait time.Duration) RedisOption {
	return func(r *Redis) {
		if wait > 0 {
			r.wait = wait
		}
	}
}

func WithLogger(logger *slog.Logger) RedisOption {
	return func(r *Redis) {
		r.logger = logger
	}
}

func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client: redislock.New(client),
		ttl:    defaultTTL,
		wait:   defaultWait,
		retry:  defaultRetry,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	l, err := r.client.Obtain(waitCtx, keyPrefix+key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(r.retry),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("lock %s: %w", key, sentinel.ErrLockNotObtained)
		}
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}

	return func() {
		// Release on a fresh context so a cancelled request still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := l.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			r.logger.Warn("failed to release lock", "key", key, "error", err)
		}
	}, nil
}
