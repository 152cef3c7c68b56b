package eastmoney

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketsync/internal/httpx"
	"marketsync/internal/provider"
	"marketsync/internal/series"
	"marketsync/internal/symbol"
)

type Config struct {
	Name string
	URL  string
}

// Provider fetches daily klines from the Eastmoney push2his API.
// Addresses are secids ("1.600000" for SSE, "0.000001" for SZSE).
type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "eastmoney"
	}
	if cfg.URL == "" {
		cfg.URL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string          { return p.cfg.Name }
func (p *Provider) Format() symbol.Format { return symbol.FormatSecID }

type apiResponse struct {
	Data *struct {
		Code   string   `json:"code"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

func (p *Provider) Fetch(ctx context.Context, address string, start, end time.Time) ([]series.Bar, error) {
	u, err := url.Parse(p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("secid", address)
	q.Set("klt", "101") // daily
	q.Set("fqt", "1")   // forward-adjusted
	q.Set("beg", start.Format("20060102"))
	q.Set("end", end.Format("20060102"))
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56,f57")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	var api apiResponse
	if err := httpx.DecodeJSON(resp, &api); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	if api.Data == nil || len(api.Data.Klines) == 0 {
		return nil, fmt.Errorf("secid %s: %w", address, series.ErrEmpty)
	}

	bars := make([]series.Bar, 0, len(api.Data.Klines))
	for _, line := range api.Data.Klines {
		b, err := parseKline(line)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", provider.ErrSchema, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// parseKline parses one "date,open,close,high,low,volume,amount" row.
func parseKline(line string) (series.Bar, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 7 {
		return series.Bar{}, fmt.Errorf("kline %q: want 7 fields, got %d", line, len(parts))
	}
	date, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return series.Bar{}, fmt.Errorf("kline date %q: %v", parts[0], err)
	}
	vals := make([]float64, 6)
	for i, s := range parts[1:7] {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return series.Bar{}, fmt.Errorf("kline field %q: %v", s, err)
		}
		vals[i] = v
	}
	return series.Bar{
		Date: date,
		Open: vals[0], Close: vals[1], High: vals[2], Low: vals[3],
		Volume: vals[4], Amount: vals[5],
	}, nil
}
