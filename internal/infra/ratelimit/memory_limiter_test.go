package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterRejectsAfterLimit(t *testing.T) {
	limiter := NewMemoryLimiter(50, 15*time.Minute)
	defer limiter.Close()
	ctx := context.Background()

	for i := 1; i <= 50; i++ {
		d, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i)
		require.Equal(t, 50-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Remaining)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), d.ResetAt, 5*time.Second)

	other, err := limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, other.Allowed)
}

func TestMemoryLimiterWindowResets(t *testing.T) {
	limiter := NewMemoryLimiter(1, 30*time.Millisecond)
	defer limiter.Close()
	ctx := context.Background()

	d, err := limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	require.Eventually(t, func() bool {
		d, err := limiter.Allow(ctx, "ip")
		return err == nil && d.Allowed
	}, time.Second, 10*time.Millisecond)
}
