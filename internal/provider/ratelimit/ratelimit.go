package ratelimit

import (
	"context"
	"sync"
	"time"

	"marketsync/internal/provider"
	"marketsync/internal/series"
	"marketsync/internal/symbol"
)

// MinInterval wraps a provider and enforces a minimum time between
// upstream calls. Concurrent calls wait until the interval has elapsed
// since the last call, or return early when the context is canceled.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Name() string          { return m.P.Name() }
func (m *MinInterval) Format() symbol.Format { return m.P.Format() }

func (m *MinInterval) Fetch(ctx context.Context, address string, start, end time.Time) ([]series.Bar, error) {
	if m.Interval > 0 {
		m.mu.Lock()
		wait := time.Until(m.last.Add(m.Interval))
		m.mu.Unlock()
		if wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
	bars, err := m.P.Fetch(ctx, address, start, end)
	if m.Interval > 0 {
		m.mu.Lock()
		m.last = time.Now()
		m.mu.Unlock()
	}
	return bars, err
}
