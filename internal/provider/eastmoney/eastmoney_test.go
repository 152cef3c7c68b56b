package eastmoney_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketsync/internal/httpx"
	"marketsync/internal/provider"
	"marketsync/internal/provider/eastmoney"
	"marketsync/internal/series"
	"marketsync/internal/symbol"
)

func fetchRange(t *testing.T) (time.Time, time.Time) {
	t.Helper()
	start, err := time.Parse("2006-01-02", "2024-01-01")
	require.NoError(t, err)
	return start, start.AddDate(0, 0, 7)
}

func klineServer(t *testing.T, klines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1.600519", r.URL.Query().Get("secid"))
		require.Equal(t, "101", r.URL.Query().Get("klt"))
		require.Equal(t, "1", r.URL.Query().Get("fqt"))
		require.Equal(t, "20240101", r.URL.Query().Get("beg"))
		require.Equal(t, "20240108", r.URL.Query().Get("end"))

		resp := map[string]any{
			"data": map[string]any{"code": "600519", "klines": klines},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestFetch(t *testing.T) {
	t.Parallel()

	srv := klineServer(t, []string{
		"2024-01-02,1710.5,1718.0,1725.0,1700.01,25000,43000000",
		"2024-01-03,1718.0,1729.9,1730.0,1712.0,31000,53600000",
	})
	defer srv.Close()

	p := eastmoney.New(eastmoney.Config{URL: srv.URL}, httpx.New(5*time.Second))
	require.Equal(t, "eastmoney", p.Name())
	require.Equal(t, symbol.FormatSecID, p.Format())

	start, end := fetchRange(t)
	bars, err := p.Fetch(t.Context(), "1.600519", start, end)

	require.NoError(t, err)
	require.Len(t, bars, 2)
	// kline field order is date,open,close,high,low
	require.Equal(t, "2024-01-02", bars[0].Date.Format("2006-01-02"))
	require.InEpsilon(t, 1710.5, bars[0].Open, 0.0001)
	require.InEpsilon(t, 1718.0, bars[0].Close, 0.0001)
	require.InEpsilon(t, 1725.0, bars[0].High, 0.0001)
	require.InEpsilon(t, 1700.01, bars[0].Low, 0.0001)
}

func TestFetch_NoKlines(t *testing.T) {
	t.Parallel()

	srv := klineServer(t, nil)
	defer srv.Close()

	p := eastmoney.New(eastmoney.Config{URL: srv.URL}, httpx.New(5*time.Second))

	start, end := fetchRange(t)
	_, err := p.Fetch(t.Context(), "1.600519", start, end)

	require.ErrorIs(t, err, series.ErrEmpty)
}

func TestFetch_MalformedKline(t *testing.T) {
	t.Parallel()

	srv := klineServer(t, []string{"2024-01-02,not-a-price,1,1,1,1,1"})
	defer srv.Close()

	p := eastmoney.New(eastmoney.Config{URL: srv.URL}, httpx.New(5*time.Second))

	start, end := fetchRange(t)
	_, err := p.Fetch(t.Context(), "1.600519", start, end)

	require.ErrorIs(t, err, provider.ErrSchema)
	require.False(t, provider.IsTransient(err))
}

func TestFetch_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := eastmoney.New(eastmoney.Config{URL: srv.URL}, httpx.New(5*time.Second))

	start, end := fetchRange(t)
	_, err := p.Fetch(t.Context(), "1.600519", start, end)

	require.ErrorIs(t, err, provider.ErrUnavailable)
	require.True(t, provider.IsTransient(err))
}

func TestFetch_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	p := eastmoney.New(eastmoney.Config{URL: srv.URL}, httpx.New(time.Second))

	start, end := fetchRange(t)
	_, err := p.Fetch(t.Context(), "1.600519", start, end)

	require.ErrorIs(t, err, provider.ErrUnavailable)
}
