// Package ratelimit counts requests per key in fixed windows. A window opens
// on the first request for a key and lasts the configured duration.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the result of counting one request.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests for a key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Close() error
}

func decide(limit int, count int64, resetAt time.Time) Decision {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
