package adapter

import (
	"context"

	"github.com/shopspring/decimal"
)

// ProbeResult is one round trip against the venue.
type ProbeResult struct {
	OK               bool
	ServerTimeMillis int64
}

// LevelHandler consumes incremental book updates from a feed.
type LevelHandler func(LevelUpdate)

// OrderEventHandler consumes asynchronous order lifecycle events.
type OrderEventHandler func(OrderEvent)

// Transport is the per-venue byte-level client consumed by the adapter
// core. Implementations own framing, authentication and signing; the core
// never touches the wire. Command dispatch returns once the venue connector
// has taken the command, venue outcomes arrive later through the
// OrderEventHandler.
type Transport interface {
	// Probe issues a lightweight round trip. The context bounds the wait.
	Probe(ctx context.Context) (ProbeResult, error)

	// FetchSymbolCatalog pulls the venue's current instrument list.
	FetchSymbolCatalog(ctx context.Context) ([]Symbol, error)

	// SubscribeMarketData registers a per-symbol feed callback. Volume zero
	// in a delivered update denotes level removal.
	SubscribeMarketData(ctx context.Context, symbol Symbol, handler LevelHandler) (unsubscribe func(), err error)

	// SubmitOrder dispatches a new order keyed by cloid.
	SubmitOrder(ctx context.Context, cloid Cloid, symbol Symbol, price, volume decimal.Decimal) error

	// ModifyOrder dispatches a price/volume change. venueOrderID may be
	// empty when the venue has not acked yet; the cloid always identifies
	// the order.
	ModifyOrder(ctx context.Context, cloid Cloid, venueOrderID string, price, volume decimal.Decimal) error

	// CancelOrder dispatches a cancel.
	CancelOrder(ctx context.Context, cloid Cloid, venueOrderID string) error

	// SubscribeOrderEvents registers the reconciliation callback.
	SubscribeOrderEvents(handler OrderEventHandler) (unsubscribe func())
}
