package symbol

import (
	"errors"
	"fmt"
	"strings"
)

// Exchange identifies the listing venue of an instrument.
type Exchange string

const (
	SSE  Exchange = "sh" // Shanghai Stock Exchange
	SZSE Exchange = "sz" // Shenzhen Stock Exchange
)

// Format is the address shape a provider expects for one instrument.
type Format string

const (
	// FormatBare is the plain six-digit code, e.g. "600000".
	FormatBare Format = "bare"
	// FormatJoined prefixes the exchange, e.g. "sh600000".
	FormatJoined Format = "joined"
	// FormatSuffixed appends the upper-cased exchange, e.g. "600000.SH".
	FormatSuffixed Format = "suffixed"
	// FormatSecID is the numeric-market secid, e.g. "1.600000" (SSE=1, SZSE=0).
	FormatSecID Format = "secid"
)

// ErrUnknownExchange marks a code whose numeric prefix maps to no known
// exchange. This is permanent: no provider can be addressed for it.
var ErrUnknownExchange = errors.New("unknown exchange for symbol")

// exchangeByPrefix maps the leading three digits of an A-share code to
// its exchange.
var exchangeByPrefix = map[string]Exchange{
	"600": SSE, "601": SSE, "603": SSE, "605": SSE,
	"000": SZSE, "001": SZSE, "002": SZSE, "003": SZSE,
	"300": SZSE, "301": SZSE,
}

// Code is a resolved instrument code bound to its exchange.
type Code struct {
	Number   string
	Exchange Exchange
}

// Resolve maps a raw code, with or without an sh/sz prefix, to a Code.
func Resolve(raw string) (Code, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "sh")
	s = strings.TrimPrefix(s, "sz")
	s = strings.TrimSuffix(s, ".sh")
	s = strings.TrimSuffix(s, ".sz")
	if len(s) < 3 {
		return Code{}, fmt.Errorf("%w: %q", ErrUnknownExchange, raw)
	}
	ex, ok := exchangeByPrefix[s[:3]]
	if !ok {
		return Code{}, fmt.Errorf("%w: %q", ErrUnknownExchange, raw)
	}
	return Code{Number: s, Exchange: ex}, nil
}

// Address renders the code in the given provider format.
func (c Code) Address(f Format) string {
	switch f {
	case FormatJoined:
		return string(c.Exchange) + c.Number
	case FormatSuffixed:
		return c.Number + "." + strings.ToUpper(string(c.Exchange))
	case FormatSecID:
		if c.Exchange == SSE {
			return "1." + c.Number
		}
		return "0." + c.Number
	default:
		return c.Number
	}
}
