package datasync

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff is the retry policy between chain attempts for one symbol.
// It is separated from the I/O call so the scheduler can be unit tested
// without real delays.
type Backoff struct {
	// MaxAttempts is the total attempt budget per symbol, including the
	// first try. Values below 1 behave as 1.
	MaxAttempts int
	// Delay is the fixed wait between attempts.
	Delay time.Duration
	// Jitter adds a uniformly random extra wait in [0, Jitter).
	Jitter time.Duration
}

func (b Backoff) attempts() int {
	if b.MaxAttempts < 1 {
		return 1
	}
	return b.MaxAttempts
}

// Wait blocks for the inter-attempt delay or until the context is done.
func (b Backoff) Wait(ctx context.Context) error {
	d := b.Delay
	if b.Jitter > 0 {
		d += rand.N(b.Jitter)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
