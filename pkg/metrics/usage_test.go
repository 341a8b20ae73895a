package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenUsageIsZero(t *testing.T) {
	require.True(t, TokenUsage{}.IsZero())
	require.False(t, TokenUsage{TotalTokens: 3}.IsZero())
}

func TestNilCounterEstimatesZero(t *testing.T) {
	var counter *TokenCounter
	require.Equal(t, 0, counter.Count("hello"))
	require.True(t, counter.Estimate("a", "b").IsZero())
}
