package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kanekoshoyu/guilder/adapter"
	"github.com/kanekoshoyu/guilder/book"
	ierr "github.com/kanekoshoyu/guilder/internal/errors"
	"github.com/kanekoshoyu/guilder/monitor"
	"github.com/kanekoshoyu/guilder/og"
)

// Adapter is the single entry point composing the connectivity monitor,
// the market data cache and the order lifecycle manager over one venue
// transport. It holds no state of its own beyond wiring.
type Adapter struct {
	transport adapter.Transport
	monitor   *monitor.Monitor
	cache     *book.Cache
	orders    *og.Manager

	unsubEvents func()
}

var _ Client = (*Adapter)(nil)

// NewAdapter wires the components over the transport. Order events start
// flowing into reconciliation immediately.
func NewAdapter(transport adapter.Transport, probeCfg monitor.Config) *Adapter {
	a := &Adapter{
		transport: transport,
		monitor:   monitor.New(transport, probeCfg),
		cache:     book.NewCache(),
		orders:    og.NewManager(transport),
	}
	a.unsubEvents = transport.SubscribeOrderEvents(a.orders.Reconcile)
	return a
}

// SyncCatalog pulls the venue catalog into the market data cache.
func (a *Adapter) SyncCatalog(ctx context.Context) error {
	symbols, err := a.transport.FetchSymbolCatalog(ctx)
	if err != nil {
		return ierr.Wrap(err, "fetch symbol catalog")
	}

	a.cache.SetCatalog(symbols)
	return nil
}

// Watch subscribes the symbol's incremental feed into the cache.
func (a *Adapter) Watch(ctx context.Context, symbol adapter.Symbol) (func(), error) {
	unsubscribe, err := a.transport.SubscribeMarketData(ctx, symbol, func(up adapter.LevelUpdate) {
		// malformed events are dropped and logged inside the cache
		_ = a.cache.ApplyLevel(up)
	})
	if err != nil {
		return nil, ierr.Wrapf(err, "subscribe market data, symbol: %s", symbol)
	}

	return unsubscribe, nil
}

// Close detaches the order event subscription.
func (a *Adapter) Close() {
	if a.unsubEvents != nil {
		a.unsubEvents()
	}
}

func (a *Adapter) Ping(ctx context.Context) bool {
	return a.monitor.Ping(ctx)
}

func (a *Adapter) ServerTime(ctx context.Context) (int64, error) {
	return a.monitor.ServerTime(ctx)
}

func (a *Adapter) ClockSkew() (time.Duration, bool) {
	return a.monitor.ClockSkew()
}

func (a *Adapter) Connected() bool {
	return a.monitor.Connected()
}

func (a *Adapter) Symbols() []adapter.Symbol {
	return a.cache.Symbols()
}

func (a *Adapter) Price(symbol adapter.Symbol) (decimal.Decimal, error) {
	return a.cache.Price(symbol)
}

func (a *Adapter) OrderBook(symbol adapter.Symbol) (adapter.OrderBook, error) {
	return a.cache.OrderBook(symbol)
}

func (a *Adapter) PlaceOrder(ctx context.Context, symbol adapter.Symbol, price, volume decimal.Decimal) (adapter.Cloid, error) {
	return a.orders.PlaceOrder(ctx, symbol, price, volume)
}

func (a *Adapter) ChangeOrder(ctx context.Context, cloid adapter.Cloid, price, volume decimal.Decimal) (adapter.Cloid, error) {
	return a.orders.ChangeOrder(ctx, cloid, price, volume)
}

func (a *Adapter) CancelOrder(ctx context.Context, cloid adapter.Cloid) error {
	return a.orders.CancelOrder(ctx, cloid)
}

func (a *Adapter) CancelAllOrders(ctx context.Context) bool {
	return a.orders.CancelAll(ctx)
}

func (a *Adapter) Order(cloid adapter.Cloid) (adapter.Order, error) {
	return a.orders.Order(cloid)
}

func (a *Adapter) SubscribeOrders() (<-chan adapter.Order, func()) {
	return a.orders.Subscribe()
}

// ProbeStats exposes probe round-trip aggregates for diagnostics.
func (a *Adapter) ProbeStats() monitor.LatencySnapshot {
	return a.monitor.ProbeStats()
}
