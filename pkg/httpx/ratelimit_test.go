package httpx_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reelpitch/reelpitch/pkg/httpx"
)

func TestLimiterBurst(t *testing.T) {
	t.Parallel()

	limiter := httpx.NewLimiter(httpx.RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		Burst:             3,
	})

	// Burst capacity is available immediately.
	require.True(t, limiter.Allow())
	require.True(t, limiter.Allow())
	require.True(t, limiter.Allow())

	// Burst exhausted; refill is one per minute.
	require.False(t, limiter.Allow())
}

func TestLimiterWaitRespectsContext(t *testing.T) {
	t.Parallel()

	limiter := httpx.NewLimiter(httpx.RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Hour,
		Burst:             1,
	})
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// The next slot is an hour away; Wait must give up with the context.
	err := limiter.Wait(ctx)
	require.Error(t, err)
}
