package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RateLimiter bounds how many fixes a single patient source may ingest per
// window. Fixed-window INCR+EXPIRE; good enough for runaway-device detection.
// Obtain one via Cache.Limiter so it rides the shared client.
type RateLimiter struct {
	c *redis.Client
}

// Allow increments the window counter for key, setting the TTL when the key
// is first created. Returns (allowed, currentCount).
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, errors.Wrap(err, "redis ratelimit")
	}
	n := incr.Val()
	return n <= limit, n, nil
}
