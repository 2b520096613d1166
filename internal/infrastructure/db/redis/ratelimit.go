package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateWindow = time.Minute

// RateLimiter is a fixed one-minute window counter.
// Key format: ratelimit:<client>:<path>
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter wraps the given Redis client.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow counts one hit against key and reports whether it is within limit,
// along with how many hits remain in the current window. A counter left
// without a TTL gets one on the next hit, so a failed EXPIRE never pins it.
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int) (bool, int, error) {
	k := "ratelimit:" + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.TTL(ctx, k)
		return nil
	}); err != nil {
		return false, 0, fmt.Errorf("rate limit incr: %w", err)
	}

	n := incr.Val()
	if ttl.Val() < 0 {
		if err := l.client.Expire(ctx, k, rateWindow).Err(); err != nil {
			return false, 0, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	remaining := limit - int(n)
	if remaining < 0 {
		return false, 0, nil
	}
	return true, remaining, nil
}
