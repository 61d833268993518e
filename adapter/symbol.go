package adapter

import "strings"

// Symbol is the venue-specific instrument identifier. It is opaque to the
// adapter core: case and format are whatever the venue says they are.
type Symbol string

func (s Symbol) String() string {
	return string(s)
}

// Pair is a normalized currency pair, e.g. BTC-USDT. Venues render pairs in
// incompatible formats, so the pair keeps base and quote separate and
// formats on demand. Always uppercase.
type Pair struct {
	Base  string
	Quote string
}

func NewPair(base, quote string) Pair {
	return Pair{
		Base:  strings.ToUpper(base),
		Quote: strings.ToUpper(quote),
	}
}

// PairFromUnderscore parses "btc_usdt" style names.
func PairFromUnderscore(input string) (Pair, bool) {
	return pairSplit(input, "_")
}

// PairFromHyphen parses "btc-usdt" style names.
func PairFromHyphen(input string) (Pair, bool) {
	return pairSplit(input, "-")
}

func pairSplit(input, sep string) (Pair, bool) {
	n := strings.Index(input, sep)
	if n <= 0 || n+len(sep) >= len(input) {
		return Pair{}, false
	}

	return NewPair(input[:n], input[n+len(sep):]), true
}

func (p Pair) Underscore() string {
	return p.Base + "_" + p.Quote
}

func (p Pair) Hyphen() string {
	return p.Base + "-" + p.Quote
}

func (p Pair) Concat() string {
	return p.Base + p.Quote
}

// Symbol renders the pair in the concatenated form most venues accept.
func (p Pair) Symbol() Symbol {
	return Symbol(p.Concat())
}
