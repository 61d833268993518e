// Package book maintains the adapter's market data cache: the symbol
// catalog, last mid-price and incremental order book per symbol. The feed
// path mutates, callers read materialized snapshots.
package book

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/kanekoshoyu/guilder/adapter"
	"github.com/kanekoshoyu/guilder/pkg/exception"
)

// Cache holds every observed symbol's book. Safe for concurrent use by feed
// goroutines and caller goroutines.
type Cache struct {
	mu      sync.RWMutex
	catalog []adapter.Symbol
	books   map[adapter.Symbol]*symbolBook
}

func NewCache() *Cache {
	return &Cache{
		books: make(map[adapter.Symbol]*symbolBook),
	}
}

// SetCatalog replaces the known symbol catalog. Invoked on catalog sync,
// never by readers. Known symbols get a book entry immediately so reads
// distinguish "known but empty" from "never observed".
func (c *Cache) SetCatalog(symbols []adapter.Symbol) {
	sorted := append([]adapter.Symbol(nil), symbols...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	c.mu.Lock()
	defer c.mu.Unlock()

	c.catalog = sorted
	for _, s := range sorted {
		if _, ok := c.books[s]; !ok {
			c.books[s] = newSymbolBook(s)
		}
	}
}

// Symbols returns the current catalog. Empty before the first sync.
func (c *Cache) Symbols() []adapter.Symbol {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]adapter.Symbol(nil), c.catalog...)
}

// ApplyLevel applies one incremental feed update. Malformed events are
// dropped with a diagnostic; a single bad venue message never brings the
// cache down.
func (c *Cache) ApplyLevel(up adapter.LevelUpdate) error {
	if up.Symbol == "" || (up.Side != adapter.SideBid && up.Side != adapter.SideAsk) ||
		up.Price.IsNegative() || up.Volume.IsNegative() {
		logs.Warnf("drop malformed level update, symbol: %q, side: %s, price: %s, volume: %s",
			up.Symbol, up.Side, up.Price, up.Volume)
		return exception.ErrMalformedEvent
	}

	c.mu.Lock()
	b, ok := c.books[up.Symbol]
	if !ok {
		b = newSymbolBook(up.Symbol)
		c.books[up.Symbol] = b
	}
	c.mu.Unlock()

	b.apply(up)
	return nil
}

// Price returns the last-known mid-price of the symbol. The value is a
// point-in-time snapshot; a racing feed update may land after it is taken.
func (c *Cache) Price(symbol adapter.Symbol) (decimal.Decimal, error) {
	b, err := c.lookup(symbol)
	if err != nil {
		return decimal.Zero, err
	}

	mid, ok := b.midPrice()
	if !ok {
		return decimal.Zero, exception.ErrStaleBook
	}

	return mid, nil
}

// OrderBook returns a materialized snapshot of the symbol's book.
func (c *Cache) OrderBook(symbol adapter.Symbol) (adapter.OrderBook, error) {
	b, err := c.lookup(symbol)
	if err != nil {
		return adapter.OrderBook{}, err
	}

	snap, ok := b.snapshot()
	if !ok {
		return adapter.OrderBook{}, exception.ErrStaleBook
	}

	return snap, nil
}

func (c *Cache) lookup(symbol adapter.Symbol) (*symbolBook, error) {
	c.mu.RLock()
	b, ok := c.books[symbol]
	c.mu.RUnlock()

	if !ok {
		return nil, exception.ErrUnknownSymbol
	}

	return b, nil
}
