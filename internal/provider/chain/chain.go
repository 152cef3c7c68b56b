package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketsync/internal/logger"
	"marketsync/internal/provider"
	"marketsync/internal/series"
	"marketsync/internal/symbol"
)

// Chain tries providers in configured order and returns the first
// structurally valid, non-empty result. A returned series is always
// sourced from exactly one provider; partial results are never stitched
// across providers. Adding a source means appending to Providers.
type Chain struct {
	Providers []provider.Provider
	// PerCallTimeout bounds each provider attempt so a hung upstream
	// cannot hold a concurrency slot indefinitely. Zero disables it.
	PerCallTimeout time.Duration
}

func New(perCallTimeout time.Duration, providers ...provider.Provider) *Chain {
	return &Chain{Providers: providers, PerCallTimeout: perCallTimeout}
}

// Fetch resolves the raw symbol once and walks the chain. On total
// failure it returns the joined attempt errors, so the caller can
// classify them with provider.IsTransient.
func (c *Chain) Fetch(ctx context.Context, rawSymbol string, start, end time.Time) (*series.Series, error) {
	code, err := symbol.Resolve(rawSymbol)
	if err != nil {
		return nil, err
	}
	if len(c.Providers) == 0 {
		return nil, errors.New("no providers configured")
	}

	var attempts []error
	for _, p := range c.Providers {
		address := code.Address(p.Format())
		bars, err := c.try(ctx, p, address, start, end)
		if err == nil {
			bars, err = normalize(bars)
		}
		if err != nil {
			logger.Warnf("provider %s failed for %s: %v", p.Name(), rawSymbol, err)
			attempts = append(attempts, fmt.Errorf("%s: %w", p.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		logger.Debugf("provider %s returned %d bars for %s", p.Name(), len(bars), rawSymbol)
		return &series.Series{Symbol: code.Number, Provider: p.Name(), Bars: bars}, nil
	}
	return nil, fmt.Errorf("all providers failed for %s: %w", rawSymbol, errors.Join(attempts...))
}

func (c *Chain) try(ctx context.Context, p provider.Provider, address string, start, end time.Time) ([]series.Bar, error) {
	if c.PerCallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerCallTimeout)
		defer cancel()
	}
	return p.Fetch(ctx, address, start, end)
}

// normalize validates a raw result, tagging structural defects as
// schema errors so the scheduler does not waste retry budget on them.
func normalize(bars []series.Bar) ([]series.Bar, error) {
	out, err := series.Normalize(bars)
	if err != nil {
		if errors.Is(err, series.ErrEmpty) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", provider.ErrSchema, err)
	}
	return out, nil
}
