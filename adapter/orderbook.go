package adapter

import "github.com/shopspring/decimal"

// Side marks which half of the book a level belongs to.
type Side uint8

const (
	SideUnknown Side = iota
	SideBid
	SideAsk
)

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	default:
		return "unknown"
	}
}

// PriceLevel is one (price, volume) entry of an order book side. Both are
// exact decimals; the feed's precision is preserved end to end.
type PriceLevel struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
}

// OrderBook is a fully materialized snapshot of one symbol's book.
// Bids are sorted descending by price, asks ascending. A snapshot is a deep
// copy: mutating it never touches the cache.
type OrderBook struct {
	Symbol Symbol
	Bids   []PriceLevel
	Asks   []PriceLevel
}

// BestBid returns the highest priced bid.
func (b OrderBook) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest priced ask.
func (b OrderBook) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// Mid returns the midpoint of the best bid and ask.
func (b OrderBook) Mid() (decimal.Decimal, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}

	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), true
}

// Crossed reports whether the best bid price meets or exceeds the best ask
// price. A crossed book is inconsistent and must not be served.
func (b OrderBook) Crossed() bool {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return false
	}

	return bid.Price.Cmp(ask.Price) >= 0
}
