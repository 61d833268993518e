package book

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kanekoshoyu/guilder/adapter"
)

// symbolBook is the live incremental book of one symbol. Mutated only by
// the feed path, always under its own mutex, so contention stays bounded to
// callers interested in the same instrument.
type symbolBook struct {
	mu     sync.Mutex
	symbol adapter.Symbol
	bids   []adapter.PriceLevel
	asks   []adapter.PriceLevel
	stale  bool
	mid    decimal.Decimal
	hasMid bool
}

func newSymbolBook(symbol adapter.Symbol) *symbolBook {
	return &symbolBook{symbol: symbol}
}

// apply inserts, updates or deletes one level, then re-checks the no-cross
// invariant. A crossed book flags the symbol stale instead of serving
// corrupt data; the next consistent update clears the flag.
func (b *symbolBook) apply(up adapter.LevelUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch up.Side {
	case adapter.SideBid:
		b.bids = applyLevel(b.bids, up.Price, up.Volume, descending)
	case adapter.SideAsk:
		b.asks = applyLevel(b.asks, up.Price, up.Volume, ascending)
	}

	if crossed(b.bids, b.asks) {
		b.stale = true
		return
	}

	b.stale = false
	if len(b.bids) > 0 && len(b.asks) > 0 {
		b.mid = b.bids[0].Price.Add(b.asks[0].Price).Div(decimal.NewFromInt(2))
		b.hasMid = true
	}
}

// snapshot deep-copies both sides.
func (b *symbolBook) snapshot() (adapter.OrderBook, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stale {
		return adapter.OrderBook{}, false
	}

	return adapter.OrderBook{
		Symbol: b.symbol,
		Bids:   append([]adapter.PriceLevel(nil), b.bids...),
		Asks:   append([]adapter.PriceLevel(nil), b.asks...),
	}, true
}

func (b *symbolBook) midPrice() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.mid, b.hasMid
}

type order uint8

const (
	ascending order = iota
	descending
)

// applyLevel keeps the side sorted and comparison exact: price keys are
// decimals compared with Cmp, never floats. Volume zero removes the level.
func applyLevel(levels []adapter.PriceLevel, price, volume decimal.Decimal, ord order) []adapter.PriceLevel {
	idx := sort.Search(len(levels), func(i int) bool {
		cmp := levels[i].Price.Cmp(price)
		if ord == ascending {
			return cmp >= 0
		}
		return cmp <= 0
	})

	found := idx < len(levels) && levels[idx].Price.Equal(price)

	if volume.IsZero() {
		if found {
			levels = append(levels[:idx], levels[idx+1:]...)
		}
		return levels
	}

	if found {
		levels[idx].Volume = volume
		return levels
	}

	levels = append(levels, adapter.PriceLevel{})
	copy(levels[idx+1:], levels[idx:])
	levels[idx] = adapter.PriceLevel{Price: price, Volume: volume}
	return levels
}

func crossed(bids, asks []adapter.PriceLevel) bool {
	if len(bids) == 0 || len(asks) == 0 {
		return false
	}

	return bids[0].Price.Cmp(asks[0].Price) >= 0
}
