package datasync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff_AttemptsFloorsAtOne(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, Backoff{}.attempts())
	require.Equal(t, 1, Backoff{MaxAttempts: -3}.attempts())
	require.Equal(t, 4, Backoff{MaxAttempts: 4}.attempts())
}

func TestBackoff_WaitZeroDelayReturnsImmediately(t *testing.T) {
	t.Parallel()

	begin := time.Now()
	err := Backoff{}.Wait(context.Background())

	require.NoError(t, err)
	require.Less(t, time.Since(begin), 100*time.Millisecond)
}

func TestBackoff_WaitHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Backoff{Delay: time.Minute}.Wait(ctx)

	require.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_WaitAddsJitterWithinBound(t *testing.T) {
	t.Parallel()

	begin := time.Now()
	err := Backoff{Delay: time.Millisecond, Jitter: 5 * time.Millisecond}.Wait(context.Background())

	require.NoError(t, err)
	elapsed := time.Since(begin)
	require.GreaterOrEqual(t, elapsed, time.Millisecond)
	require.Less(t, elapsed, time.Second)
}
