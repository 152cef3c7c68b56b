package series

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNormalize_SortsAscending(t *testing.T) {
	t.Parallel()

	bars := []Bar{
		{Date: day("2024-01-03"), Close: 3},
		{Date: day("2024-01-01"), Close: 1},
		{Date: day("2024-01-02"), Close: 2},
	}

	got, err := Normalize(bars)

	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, 1.0, got[0].Close)
	require.Equal(t, 2.0, got[1].Close)
	require.Equal(t, 3.0, got[2].Close)
	// input untouched
	require.Equal(t, 3.0, bars[0].Close)
}

func TestNormalize_DuplicateDateKeepsLast(t *testing.T) {
	t.Parallel()

	bars := []Bar{
		{Date: day("2024-01-01"), Close: 10},
		{Date: day("2024-01-01"), Close: 11},
		{Date: day("2024-01-02"), Close: 12},
	}

	got, err := Normalize(bars)

	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 11.0, got[0].Close)
}

func TestNormalize_Empty(t *testing.T) {
	t.Parallel()

	_, err := Normalize(nil)

	require.ErrorIs(t, err, ErrEmpty)
}

func TestNormalize_RejectsNegativeAndZeroDate(t *testing.T) {
	t.Parallel()

	_, err := Normalize([]Bar{{Date: day("2024-01-01"), Low: -0.5}})
	require.Error(t, err)

	_, err = Normalize([]Bar{{Close: 1}})
	require.Error(t, err)
}

func TestCSV_RoundTrip(t *testing.T) {
	t.Parallel()

	in := &Series{
		Symbol:   "600519",
		Provider: "eastmoney",
		Bars: []Bar{
			{Date: day("2024-01-02"), Open: 1710.5, High: 1725, Low: 1700.01, Close: 1718, Volume: 25000, Amount: 4.3e7},
			{Date: day("2024-01-03"), Open: 1718, High: 1730, Low: 1712, Close: 1729.9, Volume: 31000, Amount: 5.36e7},
		},
	}

	data, err := EncodeCSV(in)
	require.NoError(t, err)

	out, err := DecodeCSV(data)
	require.NoError(t, err)
	require.Equal(t, in.Symbol, out.Symbol)
	require.Equal(t, in.Provider, out.Provider)
	require.Len(t, out.Bars, 2)
	require.True(t, out.Bars[0].Date.Equal(in.Bars[0].Date))
	require.Equal(t, in.Bars[1], out.Bars[1])
}

func TestDecodeCSV_HeaderOnlyIsEmpty(t *testing.T) {
	t.Parallel()

	data, err := EncodeCSV(&Series{Symbol: "000001", Provider: "tushare"})
	require.NoError(t, err)

	_, err = DecodeCSV(data)

	require.ErrorIs(t, err, ErrEmpty)
}

func TestDecodeCSV_RejectsForeignHeader(t *testing.T) {
	t.Parallel()

	_, err := DecodeCSV([]byte("a,b,c,d,e,f,g,h,i\n"))

	require.Error(t, err)
	require.False(t, errors.Is(err, ErrEmpty))
}
