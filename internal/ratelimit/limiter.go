package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window rate limiter backed by Redis.
// The first request in a window creates the counter with a TTL; subsequent
// requests increment it until the window expires.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewLimiter(client *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func getWindowKey(key string) string {
	return fmt.Sprintf("ratelimit:%s", key)
}

// Allow reports whether the request identified by key is within the limit
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := getWindowKey(key)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	// NX keeps the window anchored at the first request
	pipe.ExpireNX(ctx, windowKey, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return incr.Val() <= int64(l.limit), nil
}
