package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tally:ratelimit:"

// Redis keeps one sorted set of hit timestamps per key. A hit over the limit
// is removed again so rejected requests do not extend the window.
type Redis struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, now: time.Now}
}

func (r *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := r.now()
	k := keyPrefix + key
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", cutoff)
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, k)
	oldest := pipe.ZRangeWithScores(ctx, k, 0, 0)
	pipe.PExpire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	reset := now.Add(window)
	if z := oldest.Val(); len(z) > 0 {
		reset = time.Unix(0, int64(z[0].Score)).Add(window)
	}
	n := int(count.Val())
	if n > limit {
		if err := r.client.ZRem(ctx, k, member).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit %s: %w", key, err)
		}
		return Result{Limit: limit, ResetAt: reset, RetryAfter: reset.Sub(now)}, nil
	}
	return Result{Allowed: true, Limit: limit, Remaining: limit - n, ResetAt: reset}, nil
}
