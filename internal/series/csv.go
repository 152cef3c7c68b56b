package series

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// csvHeader is the column order of the tabular cache encoding. Symbol
// and provider repeat on every row so the file stays self-describing.
var csvHeader = []string{"symbol", "provider", "date", "open", "high", "low", "close", "volume", "amount"}

const csvDateLayout = "2006-01-02"

// EncodeCSV renders a series as CSV with a header row.
func EncodeCSV(s *Series) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, b := range s.Bars {
		rec := []string{
			s.Symbol,
			s.Provider,
			b.Date.Format(csvDateLayout),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.Volume),
			formatFloat(b.Amount),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses the tabular cache encoding back into a series.
func DecodeCSV(data []byte) (*Series, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(csvHeader)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, name := range csvHeader {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected csv header %q", header[i])
		}
	}

	s := &Series{}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if s.Symbol == "" {
			s.Symbol, s.Provider = rec[0], rec[1]
		}
		date, err := time.Parse(csvDateLayout, rec[2])
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", rec[2], err)
		}
		vals := make([]float64, 6)
		for i, field := range rec[3:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("parse %s %q: %w", csvHeader[i+3], field, err)
			}
			vals[i] = v
		}
		s.Bars = append(s.Bars, Bar{
			Date: date,
			Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3],
			Volume: vals[4], Amount: vals[5],
		})
	}
	if len(s.Bars) == 0 {
		return nil, ErrEmpty
	}
	return s, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
