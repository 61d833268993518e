// Package exchange exposes the venue-agnostic trading surface: three
// capability sets behind one facade, with venue connectors selected
// through a registry instead of inheritance chains.
package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kanekoshoyu/guilder/adapter"
)

// ConnectivityProbe tests the venue connection.
type ConnectivityProbe interface {
	// Ping reports whether a probe round trip succeeded within the bound.
	Ping(ctx context.Context) bool
	// ServerTime returns the venue's reported epoch milliseconds.
	ServerTime(ctx context.Context) (int64, error)
	// ClockSkew is local minus venue time from the last sync.
	ClockSkew() (time.Duration, bool)
	// Connected is the coarse liveness derived from recent probes.
	Connected() bool
}

// MarketDataReader reads the current catalog, prices and books.
type MarketDataReader interface {
	Symbols() []adapter.Symbol
	Price(symbol adapter.Symbol) (decimal.Decimal, error)
	OrderBook(symbol adapter.Symbol) (adapter.OrderBook, error)
}

// OrderCommandIssuer places, changes and cancels orders by cloid.
type OrderCommandIssuer interface {
	PlaceOrder(ctx context.Context, symbol adapter.Symbol, price, volume decimal.Decimal) (adapter.Cloid, error)
	ChangeOrder(ctx context.Context, cloid adapter.Cloid, price, volume decimal.Decimal) (adapter.Cloid, error)
	CancelOrder(ctx context.Context, cloid adapter.Cloid) error
	CancelAllOrders(ctx context.Context) bool
	Order(cloid adapter.Cloid) (adapter.Order, error)
	SubscribeOrders() (<-chan adapter.Order, func())
}

// Client is the full venue-agnostic surface upstream trading logic uses.
type Client interface {
	ConnectivityProbe
	MarketDataReader
	OrderCommandIssuer

	// SyncCatalog pulls the venue's instrument list into the cache.
	SyncCatalog(ctx context.Context) error
	// Watch subscribes the symbol's market data feed.
	Watch(ctx context.Context, symbol adapter.Symbol) (unsubscribe func(), err error)
	// Close releases feed and event subscriptions.
	Close()
}
