package provider

import (
	"errors"
	"fmt"
	"testing"

	"marketsync/internal/symbol"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unavailable", ErrUnavailable, true},
		{"wrapped unavailable", fmt.Errorf("eastmoney: %w", ErrUnavailable), true},
		{"schema", ErrSchema, false},
		{"unknown exchange", symbol.ErrUnknownExchange, false},
		{"untagged", errors.New("something else"), true},
		{"joined all permanent", errors.Join(ErrSchema, symbol.ErrUnknownExchange), false},
		{"joined mixed", errors.Join(ErrSchema, ErrUnavailable), true},
	}
	for _, c := range cases {
		if got := IsTransient(c.err); got != c.want {
			t.Errorf("IsTransient(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
