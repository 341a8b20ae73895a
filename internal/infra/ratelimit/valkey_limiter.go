package ratelimit

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyLimiter shares counters between replicas through Valkey.
type ValkeyLimiter struct {
	client valkey.Client
	prefix string
	limit  int
	window time.Duration
}

// NewValkeyLimiter allows limit requests per key per window.
func NewValkeyLimiter(client valkey.Client, prefix string, limit int, window time.Duration) *ValkeyLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &ValkeyLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow implements Limiter.
func (l *ValkeyLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := l.prefix + ":" + key
	count, err := l.client.Do(ctx, l.client.B().Incr().Key(k).Build()).AsInt64()
	if err != nil {
		return Decision{}, err
	}
	if count == 1 {
		if err := l.client.Do(ctx, l.client.B().Pexpire().Key(k).Milliseconds(l.window.Milliseconds()).Build()).Error(); err != nil {
			return Decision{}, err
		}
	}
	ttl, err := l.client.Do(ctx, l.client.B().Pttl().Key(k).Build()).AsInt64()
	if err != nil {
		return Decision{}, err
	}
	if ttl < 0 {
		// A key without expiry would never reset.
		_ = l.client.Do(ctx, l.client.B().Pexpire().Key(k).Milliseconds(l.window.Milliseconds()).Build()).Error()
		ttl = l.window.Milliseconds()
	}
	return decide(l.limit, count, time.Now().Add(time.Duration(ttl)*time.Millisecond)), nil
}

// Close releases the client.
func (l *ValkeyLimiter) Close() error {
	l.client.Close()
	return nil
}
