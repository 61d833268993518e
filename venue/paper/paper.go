// Package paper is an in-process venue: orders ack and fill instantly,
// market data is whatever the caller pushes in. It backs tests and the
// demo binary, and doubles as a reference for writing real venue
// transports.
package paper

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kanekoshoyu/guilder/adapter"
	"github.com/kanekoshoyu/guilder/exchange"
	ierr "github.com/kanekoshoyu/guilder/internal/errors"
	"github.com/kanekoshoyu/guilder/pkg/exception"
)

func init() {
	exchange.Register("paper", func(_ context.Context, opt exchange.Options) (adapter.Transport, error) {
		return New(WithCatalog(opt.Symbols...)), nil
	})
}

// Option configures the paper venue.
type Option func(*Transport)

// WithCatalog seeds the instrument list.
func WithCatalog(symbols ...adapter.Symbol) Option {
	return func(t *Transport) {
		t.catalog = append(t.catalog, symbols...)
	}
}

// WithAutoFill controls whether accepted orders fill fully right after the
// ack. Disabled, orders stay open until canceled or filled via PushEvent.
func WithAutoFill(enabled bool) Option {
	return func(t *Transport) {
		t.autoFill = enabled
	}
}

type trackedOrder struct {
	symbol  adapter.Symbol
	volume  decimal.Decimal
	venueID string
}

// Transport implements adapter.Transport entirely in memory. Venue events
// flow through a single pump goroutine, so per-order delivery order is
// preserved the way a real single-connection venue would.
type Transport struct {
	mu        sync.Mutex
	catalog   []adapter.Symbol
	autoFill  bool
	connected atomic.Bool

	// closeMu serializes in-flight emits against Close so the queue is
	// never closed under a sender
	closeMu sync.RWMutex
	closed  bool

	nextVenueID atomic.Int64
	orders      map[adapter.Cloid]trackedOrder

	feeds        map[adapter.Symbol]map[uint64]adapter.LevelHandler
	eventSubs    map[uint64]adapter.OrderEventHandler
	nextSubID    uint64
	eventQueue   chan adapter.OrderEvent
	pumpFinished chan struct{}
}

var _ adapter.Transport = (*Transport)(nil)

func New(opts ...Option) *Transport {
	t := &Transport{
		autoFill:     true,
		orders:       make(map[adapter.Cloid]trackedOrder),
		feeds:        make(map[adapter.Symbol]map[uint64]adapter.LevelHandler),
		eventSubs:    make(map[uint64]adapter.OrderEventHandler),
		eventQueue:   make(chan adapter.OrderEvent, 256),
		pumpFinished: make(chan struct{}),
	}
	t.connected.Store(true)
	for _, opt := range opts {
		opt(t)
	}

	go t.pump()
	return t
}

// SetConnected simulates a venue outage: dispatch fails and probes hang
// until their context expires.
func (t *Transport) SetConnected(connected bool) {
	t.connected.Store(connected)
}

// Close stops the event pump.
func (t *Transport) Close() {
	t.closeMu.Lock()
	alreadyClosed := t.closed
	t.closed = true
	t.closeMu.Unlock()

	if alreadyClosed {
		return
	}

	close(t.eventQueue)
	<-t.pumpFinished
}

func (t *Transport) Probe(ctx context.Context) (adapter.ProbeResult, error) {
	if !t.connected.Load() {
		// a dead connection answers nothing; the caller's bound applies
		<-ctx.Done()
		return adapter.ProbeResult{}, ctx.Err()
	}

	return adapter.ProbeResult{OK: true, ServerTimeMillis: nowMillis()}, nil
}

func (t *Transport) FetchSymbolCatalog(context.Context) ([]adapter.Symbol, error) {
	if !t.connected.Load() {
		return nil, exception.ErrTransportUnavailable
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]adapter.Symbol(nil), t.catalog...), nil
}

func (t *Transport) SubscribeMarketData(_ context.Context, symbol adapter.Symbol, handler adapter.LevelHandler) (func(), error) {
	if symbol == "" || handler == nil {
		return nil, ierr.New("paper: invalid market data subscription")
	}

	t.mu.Lock()
	id := t.nextSubID
	t.nextSubID++
	subs, ok := t.feeds[symbol]
	if !ok {
		subs = make(map[uint64]adapter.LevelHandler)
		t.feeds[symbol] = subs
	}
	subs[id] = handler
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.feeds[symbol], id)
		t.mu.Unlock()
	}, nil
}

// PushLevel injects one feed update, delivered synchronously in call order.
func (t *Transport) PushLevel(up adapter.LevelUpdate) {
	t.mu.Lock()
	handlers := make([]adapter.LevelHandler, 0, len(t.feeds[up.Symbol]))
	for _, h := range t.feeds[up.Symbol] {
		handlers = append(handlers, h)
	}
	t.mu.Unlock()

	for _, h := range handlers {
		h(up)
	}
}

func (t *Transport) SubmitOrder(_ context.Context, cloid adapter.Cloid, symbol adapter.Symbol, _, volume decimal.Decimal) error {
	if !t.connected.Load() {
		return exception.ErrTransportUnavailable
	}

	t.mu.Lock()
	known := t.knownSymbol(symbol)
	venueID := ""
	if known {
		venueID = "paper-" + strconv.FormatInt(t.nextVenueID.Add(1), 10)
		t.orders[cloid] = trackedOrder{symbol: symbol, volume: volume, venueID: venueID}
	}
	autoFill := t.autoFill
	t.mu.Unlock()

	if !known {
		t.emit(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventRejected, Reason: "unknown symbol"})
		return nil
	}

	t.emit(adapter.OrderEvent{Cloid: cloid, VenueOrderID: venueID, Type: adapter.OrderEventAck})
	if autoFill {
		t.emit(adapter.OrderEvent{Cloid: cloid, VenueOrderID: venueID, Type: adapter.OrderEventFill, FillVolume: volume})
	}

	return nil
}

func (t *Transport) ModifyOrder(_ context.Context, cloid adapter.Cloid, _ string, _, volume decimal.Decimal) error {
	if !t.connected.Load() {
		return exception.ErrTransportUnavailable
	}

	t.mu.Lock()
	rec, ok := t.orders[cloid]
	if ok {
		rec.volume = volume
		t.orders[cloid] = rec
	}
	t.mu.Unlock()

	if !ok {
		t.emit(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventRejected, Reason: "unknown order"})
		return nil
	}

	t.emit(adapter.OrderEvent{Cloid: cloid, VenueOrderID: rec.venueID, Type: adapter.OrderEventAck})
	return nil
}

func (t *Transport) CancelOrder(_ context.Context, cloid adapter.Cloid, _ string) error {
	if !t.connected.Load() {
		return exception.ErrTransportUnavailable
	}

	t.mu.Lock()
	rec, ok := t.orders[cloid]
	t.mu.Unlock()

	if !ok {
		t.emit(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventRejected, Reason: "unknown order"})
		return nil
	}

	t.emit(adapter.OrderEvent{Cloid: cloid, VenueOrderID: rec.venueID, Type: adapter.OrderEventCancelConfirmed})
	return nil
}

func (t *Transport) SubscribeOrderEvents(handler adapter.OrderEventHandler) func() {
	t.mu.Lock()
	id := t.nextSubID
	t.nextSubID++
	t.eventSubs[id] = handler
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.eventSubs, id)
		t.mu.Unlock()
	}
}

// PushEvent injects a raw venue event, e.g. a partial fill script.
func (t *Transport) PushEvent(ev adapter.OrderEvent) {
	t.emit(ev)
}

func (t *Transport) emit(ev adapter.OrderEvent) {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()

	if t.closed {
		return
	}
	t.eventQueue <- ev
}

func (t *Transport) pump() {
	defer close(t.pumpFinished)

	for ev := range t.eventQueue {
		t.mu.Lock()
		handlers := make([]adapter.OrderEventHandler, 0, len(t.eventSubs))
		for _, h := range t.eventSubs {
			handlers = append(handlers, h)
		}
		t.mu.Unlock()

		for _, h := range handlers {
			h(ev)
		}
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func (t *Transport) knownSymbol(symbol adapter.Symbol) bool {
	for _, s := range t.catalog {
		if s == symbol {
			return true
		}
	}
	return false
}
