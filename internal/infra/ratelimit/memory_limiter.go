package ratelimit

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryLimiter keeps counters in process memory. Counters of different
// replicas are independent.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	cache  *cache.Cache
}

// NewMemoryLimiter allows limit requests per key per window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:  limit,
		window: window,
		cache:  cache.New(window, 2*window),
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	for {
		if err := l.cache.Add(key, int64(1), l.window); err == nil {
			return decide(l.limit, 1, time.Now().Add(l.window)), nil
		}
		count, err := l.cache.IncrementInt64(key, 1)
		if err != nil {
			// Expired between Add and Increment; open a new window.
			continue
		}
		_, expiresAt, found := l.cache.GetWithExpiration(key)
		if !found {
			expiresAt = time.Now().Add(l.window)
		}
		return decide(l.limit, count, expiresAt), nil
	}
}

// Close drops all counters.
func (l *MemoryLimiter) Close() error {
	l.cache.Flush()
	return nil
}
