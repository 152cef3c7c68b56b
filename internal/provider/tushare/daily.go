package tushare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"marketsync/internal/provider"
	"marketsync/internal/series"
)

// dailyFields is the column set requested from the "daily" endpoint.
const dailyFields = "trade_date,open,high,low,close,vol,amount"

type apiRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

type apiResponse struct {
	Code int     `json:"code"`
	Msg  *string `json:"msg"`
	Data *struct {
		Fields []string        `json:"fields"`
		Items  json.RawMessage `json:"items"`
	} `json:"data"`
}

// Daily fetches forward-adjusted daily bars for one ts_code
// (e.g. "600000.SH") over the inclusive date range.
func (c *Client) Daily(ctx context.Context, tsCode string, start, end time.Time) ([]series.Bar, error) {
	payload := apiRequest{
		APIName: "daily",
		Token:   c.token,
		Params: map[string]string{
			"ts_code":    tsCode,
			"start_date": start.Format("20060102"),
			"end_date":   end.Format("20060102"),
		},
		Fields: dailyFields,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range c.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, fmt.Errorf("%w: POST %s -> %d: %s", provider.ErrUnavailable, c.baseURL, resp.StatusCode, string(b))
	}

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", provider.ErrSchema, err)
	}
	if api.Code != 0 {
		msg := ""
		if api.Msg != nil {
			msg = *api.Msg
		}
		// Non-zero codes are quota/auth conditions; worth retrying later.
		return nil, fmt.Errorf("%w: api code=%d msg=%q", provider.ErrUnavailable, api.Code, msg)
	}
	if api.Data == nil || len(api.Data.Items) == 0 {
		return nil, fmt.Errorf("ts_code %s: %w", tsCode, series.ErrEmpty)
	}

	var items [][]any
	if err := json.Unmarshal(api.Data.Items, &items); err != nil {
		return nil, fmt.Errorf("%w: items: %v", provider.ErrSchema, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("ts_code %s: %w", tsCode, series.ErrEmpty)
	}
	return parseItems(api.Data.Fields, items)
}

// parseItems maps rows by the response's own field ordering; the API
// does not guarantee it echoes the requested order.
func parseItems(fields []string, items [][]any) ([]series.Bar, error) {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f] = i
	}
	for _, f := range []string{"trade_date", "open", "high", "low", "close", "vol", "amount"} {
		if _, ok := idx[f]; !ok {
			return nil, fmt.Errorf("%w: missing field %q", provider.ErrSchema, f)
		}
	}

	bars := make([]series.Bar, 0, len(items))
	for _, row := range items {
		if len(row) < len(fields) {
			return nil, fmt.Errorf("%w: short row (%d fields)", provider.ErrSchema, len(row))
		}
		dateStr, ok := row[idx["trade_date"]].(string)
		if !ok {
			return nil, fmt.Errorf("%w: trade_date is not a string", provider.ErrSchema)
		}
		date, err := time.Parse("20060102", dateStr)
		if err != nil {
			return nil, fmt.Errorf("%w: trade_date %q: %v", provider.ErrSchema, dateStr, err)
		}
		var b series.Bar
		b.Date = date
		for _, f := range []struct {
			name string
			dst  *float64
		}{
			{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low},
			{"close", &b.Close}, {"vol", &b.Volume}, {"amount", &b.Amount},
		} {
			switch v := row[idx[f.name]].(type) {
			case float64:
				*f.dst = v
			case nil:
				// null fields happen on suspended trading days
				*f.dst = 0
			default:
				return nil, fmt.Errorf("%w: %s has type %T", provider.ErrSchema, f.name, v)
			}
		}
		bars = append(bars, b)
	}
	return bars, nil
}
