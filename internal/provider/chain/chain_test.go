package chain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketsync/internal/provider"
	"marketsync/internal/series"
	"marketsync/internal/symbol"
)

// fakeProvider records the address it was called with and replies with a
// canned result or error.
type fakeProvider struct {
	name    string
	format  symbol.Format
	bars    []series.Bar
	err     error
	calls   int
	address string
}

func (f *fakeProvider) Name() string          { return f.name }
func (f *fakeProvider) Format() symbol.Format { return f.format }

func (f *fakeProvider) Fetch(_ context.Context, address string, _, _ time.Time) ([]series.Bar, error) {
	f.calls++
	f.address = address
	return f.bars, f.err
}

func bars(dates ...string) []series.Bar {
	out := make([]series.Bar, 0, len(dates))
	for _, d := range dates {
		date, err := time.Parse("2006-01-02", d)
		if err != nil {
			panic(err)
		}
		out = append(out, series.Bar{Date: date, Open: 1, High: 1, Low: 1, Close: 1})
	}
	return out
}

func TestFetch_FirstSuccessWins(t *testing.T) {
	t.Parallel()

	first := &fakeProvider{name: "first", format: symbol.FormatSecID, bars: bars("2024-01-02")}
	second := &fakeProvider{name: "second", format: symbol.FormatSuffixed, bars: bars("2024-01-03")}
	c := New(0, first, second)

	got, err := c.Fetch(context.Background(), "600519", time.Time{}, time.Time{})

	require.NoError(t, err)
	require.Equal(t, "first", got.Provider)
	require.Equal(t, "600519", got.Symbol)
	require.Equal(t, 1, first.calls)
	require.Zero(t, second.calls, "later providers must not be consulted after a success")
}

func TestFetch_AddressPerProviderFormat(t *testing.T) {
	t.Parallel()

	em := &fakeProvider{name: "eastmoney", format: symbol.FormatSecID, err: provider.ErrUnavailable}
	ts := &fakeProvider{name: "tushare", format: symbol.FormatSuffixed, bars: bars("2024-01-02")}
	c := New(0, em, ts)

	_, err := c.Fetch(context.Background(), "sz000001", time.Time{}, time.Time{})

	require.NoError(t, err)
	require.Equal(t, "0.000001", em.address)
	require.Equal(t, "000001.SZ", ts.address)
}

func TestFetch_EmptyAndSchemaAdvanceTheChain(t *testing.T) {
	t.Parallel()

	empty := &fakeProvider{name: "empty", format: symbol.FormatBare}
	malformed := &fakeProvider{name: "malformed", format: symbol.FormatBare, bars: []series.Bar{{Close: -1}}}
	good := &fakeProvider{name: "good", format: symbol.FormatBare, bars: bars("2024-01-02")}
	c := New(0, empty, malformed, good)

	got, err := c.Fetch(context.Background(), "300750", time.Time{}, time.Time{})

	require.NoError(t, err)
	require.Equal(t, "good", got.Provider)
	require.Equal(t, 1, empty.calls)
	require.Equal(t, 1, malformed.calls)
}

func TestFetch_AllFail_JoinsAttempts(t *testing.T) {
	t.Parallel()

	a := &fakeProvider{name: "a", format: symbol.FormatBare, err: provider.ErrUnavailable}
	b := &fakeProvider{name: "b", format: symbol.FormatBare, bars: []series.Bar{{Close: -1}}}
	c := New(0, a, b)

	_, err := c.Fetch(context.Background(), "600519", time.Time{}, time.Time{})

	require.Error(t, err)
	require.ErrorIs(t, err, provider.ErrUnavailable)
	require.ErrorIs(t, err, provider.ErrSchema)
	// one transient attempt keeps the aggregate retryable
	require.True(t, provider.IsTransient(err))
}

func TestFetch_AllPermanent_NotRetryable(t *testing.T) {
	t.Parallel()

	a := &fakeProvider{name: "a", format: symbol.FormatBare, err: provider.ErrSchema}
	c := New(0, a)

	_, err := c.Fetch(context.Background(), "600519", time.Time{}, time.Time{})

	require.Error(t, err)
	require.False(t, provider.IsTransient(err))
}

func TestFetch_UnknownSymbol_NoProviderCalled(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{name: "p", format: symbol.FormatBare}
	c := New(0, p)

	_, err := c.Fetch(context.Background(), "999999", time.Time{}, time.Time{})

	require.ErrorIs(t, err, symbol.ErrUnknownExchange)
	require.Zero(t, p.calls)
}

func TestFetch_CancelledContextStopsTheWalk(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &fakeProvider{name: "a", format: symbol.FormatBare, err: context.Canceled}
	b := &fakeProvider{name: "b", format: symbol.FormatBare, bars: bars("2024-01-02")}
	c := New(0, a, b)

	_, err := c.Fetch(ctx, "600519", time.Time{}, time.Time{})

	require.Error(t, err)
	require.Zero(t, b.calls)
}
