package tushare

import (
	"context"
	"time"

	"marketsync/internal/series"
	"marketsync/internal/symbol"
)

// Provider adapts the API client to the bar-fetch capability.
// Addresses are ts_codes ("600000.SH").
type Provider struct {
	name   string
	client *Client
}

func NewProvider(client *Client) *Provider {
	return &Provider{name: "tushare", client: client}
}

func (p *Provider) Name() string          { return p.name }
func (p *Provider) Format() symbol.Format { return symbol.FormatSuffixed }

func (p *Provider) Fetch(ctx context.Context, address string, start, end time.Time) ([]series.Bar, error) {
	return p.client.Daily(ctx, address, start, end)
}
