package httpx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared across portal replicas.
// Each (prefix, key) pair gets a counter that expires at the end of the
// window; the first increment in a window sets the TTL.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	config RateLimitConfig
}

// NewRedisLimiter returns a Limiter backed by the given Redis client.
// The prefix namespaces counters per endpoint class (e.g. "ratelimit:setup").
func NewRedisLimiter(client *redis.Client, prefix string, config RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, config: config}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := rl.prefix + ":" + key

	count, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, err
	}

	if count == 1 {
		if err := rl.client.Expire(ctx, redisKey, rl.config.Window).Err(); err != nil {
			return false, 0, err
		}
	}

	if count > int64(rl.config.RequestsPerWindow) {
		ttl, err := rl.client.TTL(ctx, redisKey).Result()
		if err != nil || ttl < 0 {
			ttl = rl.config.Window
		}
		return false, ttl, nil
	}

	return true, 0, nil
}
