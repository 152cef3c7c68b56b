package series

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Bar is one daily OHLCV row.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Amount float64   `json:"amount"`
}

// Series is the history of one instrument over one date range, sourced
// from exactly one provider. Rows from different providers are never
// mixed: providers disagree on price-adjustment conventions and a
// stitched series would silently corrupt return calculations.
type Series struct {
	Symbol   string `json:"symbol"`
	Provider string `json:"provider"`
	Bars     []Bar  `json:"bars"`
}

// ErrEmpty marks a result with no rows after normalization.
var ErrEmpty = errors.New("empty series")

// Normalize sorts bars by ascending date, collapses duplicate dates
// keeping the last occurrence, and validates every price and volume
// field is non-negative. The input slice is not modified.
func Normalize(bars []Bar) ([]Bar, error) {
	if len(bars) == 0 {
		return nil, ErrEmpty
	}
	out := make([]Bar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && sameDay(dedup[n-1].Date, b.Date) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	for _, b := range dedup {
		if b.Date.IsZero() {
			return nil, fmt.Errorf("bar with zero date")
		}
		if b.Open < 0 || b.High < 0 || b.Low < 0 || b.Close < 0 || b.Volume < 0 || b.Amount < 0 {
			return nil, fmt.Errorf("negative field in bar at %s", b.Date.Format("2006-01-02"))
		}
	}
	return dedup, nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
