package provider

import (
	"context"
	"errors"
	"time"

	"marketsync/internal/series"
	"marketsync/internal/symbol"
)

// Provider is a single upstream source of daily bars. Implementations
// return raw rows in provider order; normalization happens in the chain.
type Provider interface {
	Name() string
	// Format is the address shape this provider expects from the resolver.
	Format() symbol.Format
	Fetch(ctx context.Context, address string, start, end time.Time) ([]series.Bar, error)
}

var (
	// ErrUnavailable marks transient upstream failures: network errors,
	// timeouts, rate limiting. Worth retrying.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrSchema marks a response the provider returned but that cannot
	// be interpreted. Retrying will not help.
	ErrSchema = errors.New("malformed provider response")
)

// IsTransient reports whether err is worth retrying. Resolver and
// schema failures are permanent; anything tagged ErrUnavailable, and any
// untagged failure, counts as transient. For joined errors a single
// transient attempt makes the whole aggregate retryable.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	if errors.Is(err, symbol.ErrUnknownExchange) || errors.Is(err, ErrSchema) {
		return false
	}
	return true
}
