// Package og owns the local authoritative view of every order this process
// has placed, keyed by cloid. Commands mark intent, asynchronous venue
// events advance it; both paths share a per-order exclusive section so a
// command and an incoming ack can never interleave inconsistently.
package og

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/kanekoshoyu/guilder/adapter"
	ierr "github.com/kanekoshoyu/guilder/internal/errors"
	"github.com/kanekoshoyu/guilder/pkg/exception"
)

type tracked struct {
	mu             sync.Mutex
	order          adapter.Order
	modifyInFlight bool
}

// Manager mints cloids, dispatches order commands through the transport and
// reconciles venue events into the order table. Records are never deleted:
// one Order exists per cloid for the process lifetime.
type Manager struct {
	transport adapter.Transport

	mu        sync.RWMutex
	orders    map[adapter.Cloid]*tracked
	byVenueID map[string]adapter.Cloid

	nextCloid atomic.Int64
	notify    *fanout
}

func NewManager(transport adapter.Transport) *Manager {
	return &Manager{
		transport: transport,
		orders:    make(map[adapter.Cloid]*tracked),
		byVenueID: make(map[string]adapter.Cloid),
		notify:    newFanout(),
	}
}

// PlaceOrder validates, records the order in PendingNew and dispatches.
// It returns as soon as the transport has taken the command; confirmation
// arrives through Reconcile. A synchronous dispatch failure leaves the
// order Rejected and returns the cloid together with the transport error.
func (m *Manager) PlaceOrder(ctx context.Context, symbol adapter.Symbol, price, volume decimal.Decimal) (adapter.Cloid, error) {
	if symbol == "" || price.Sign() <= 0 || volume.Sign() <= 0 {
		return 0, exception.ErrInvalidOrderParameters
	}

	cloid := adapter.Cloid(m.nextCloid.Add(1))
	rec := &tracked{order: adapter.Order{
		Cloid:     cloid,
		Symbol:    symbol,
		Price:     price,
		Volume:    volume,
		Filled:    decimal.Zero,
		State:     adapter.OrderStatePendingNew,
		UpdatedAt: time.Now(),
	}}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	m.mu.Lock()
	m.orders[cloid] = rec
	m.mu.Unlock()

	m.notify.publish(rec.order)

	if err := m.transport.SubmitOrder(ctx, cloid, symbol, price, volume); err != nil {
		rec.order.State = adapter.OrderStateRejected
		rec.order.Reason = "dispatch failed"
		rec.order.UpdatedAt = time.Now()
		m.notify.publish(rec.order)
		return cloid, ierr.Wrapf(err, "dispatch place order, cloid: %d", cloid)
	}

	return cloid, nil
}

// ChangeOrder issues a price/volume modify for an existing order. The cloid
// never changes across a modify, even when the venue represents it as
// cancel+replace. At most one modify may be outstanding per order; a
// concurrent modify fails with ErrModifyInFlight. The outstanding mark
// clears on the next venue event for the cloid.
func (m *Manager) ChangeOrder(ctx context.Context, cloid adapter.Cloid, price, volume decimal.Decimal) (adapter.Cloid, error) {
	if price.Sign() <= 0 || volume.Sign() <= 0 {
		return 0, exception.ErrInvalidOrderParameters
	}

	rec, ok := m.lookup(cloid)
	if !ok {
		return 0, exception.ErrUnknownOrder
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.order.State.Terminal() {
		return 0, exception.ErrUnknownOrder
	}
	if rec.modifyInFlight {
		return 0, exception.ErrModifyInFlight
	}

	rec.modifyInFlight = true
	if err := m.transport.ModifyOrder(ctx, cloid, rec.order.VenueOrderID, price, volume); err != nil {
		rec.modifyInFlight = false
		return 0, ierr.Wrapf(err, "dispatch modify order, cloid: %d", cloid)
	}

	rec.order.Price = price
	rec.order.Volume = volume
	rec.order.UpdatedAt = time.Now()
	m.notify.publish(rec.order)

	return cloid, nil
}

// CancelOrder marks the order PendingCancel and dispatches. Cancel of an
// order already PendingCancel is a no-op success. A dispatch failure
// reverts the mark so the order stays cancellable.
func (m *Manager) CancelOrder(ctx context.Context, cloid adapter.Cloid) error {
	rec, ok := m.lookup(cloid)
	if !ok {
		return exception.ErrUnknownOrder
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.order.State.Terminal() {
		return exception.ErrUnknownOrder
	}
	if rec.order.State == adapter.OrderStatePendingCancel {
		return nil
	}

	prev := rec.order.State
	rec.order.State = adapter.OrderStatePendingCancel
	if err := m.transport.CancelOrder(ctx, cloid, rec.order.VenueOrderID); err != nil {
		rec.order.State = prev
		return ierr.Wrapf(err, "dispatch cancel order, cloid: %d", cloid)
	}

	rec.order.UpdatedAt = time.Now()
	m.notify.publish(rec.order)

	return nil
}

// CancelAll issues a cancel for every non-terminal order. The returned bool
// is about dispatch success only; confirmations still arrive through
// Reconcile. Orders whose cancel dispatched stay PendingCancel even when
// others fail.
func (m *Manager) CancelAll(ctx context.Context) bool {
	m.mu.RLock()
	cloids := make([]adapter.Cloid, 0, len(m.orders))
	for cloid := range m.orders {
		cloids = append(cloids, cloid)
	}
	m.mu.RUnlock()

	ok := true
	for _, cloid := range cloids {
		switch err := m.CancelOrder(ctx, cloid); {
		case err == nil:
		case errors.Is(err, exception.ErrUnknownOrder):
			// terminal since enumeration, nothing to cancel
		default:
			ok = false
		}
	}

	return ok
}

// Reconcile applies one asynchronous venue event. Events for unknown cloids
// or terminal orders are ghosts: logged, counted, discarded, never raised
// to the caller.
func (m *Manager) Reconcile(ev adapter.OrderEvent) {
	rec, ok := m.lookup(ev.Cloid)
	if !ok && ev.VenueOrderID != "" {
		m.mu.RLock()
		cloid, found := m.byVenueID[ev.VenueOrderID]
		m.mu.RUnlock()
		if found {
			rec, ok = m.lookup(cloid)
		}
	}
	if !ok {
		logs.Warnf("discard ghost order event, cloid: %d, venue order id: %q, type: %s",
			ev.Cloid, ev.VenueOrderID, ev.Type)
		return
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.modifyInFlight = false

	prevVenueID := rec.order.VenueOrderID
	if err := applyEvent(&rec.order, ev, time.Now()); err != nil {
		logs.Warnf("discard order event, cloid: %d, type: %s, err: %+v", rec.order.Cloid, ev.Type, err)
		return
	}

	// a replace keeps the cloid but arrives under a fresh venue order id;
	// the stale mapping must not shadow it
	if rec.order.VenueOrderID != "" && rec.order.VenueOrderID != prevVenueID {
		m.mu.Lock()
		if prevVenueID != "" {
			delete(m.byVenueID, prevVenueID)
		}
		m.byVenueID[rec.order.VenueOrderID] = rec.order.Cloid
		m.mu.Unlock()
	}

	m.notify.publish(rec.order)
}

// Order returns a read-only copy of the order record.
func (m *Manager) Order(cloid adapter.Cloid) (adapter.Order, error) {
	rec, ok := m.lookup(cloid)
	if !ok {
		return adapter.Order{}, exception.ErrUnknownOrder
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	return rec.order, nil
}

// Subscribe returns a channel of order snapshots published on every state
// change, plus a cancel func. Slow consumers drop updates rather than
// stalling reconciliation.
func (m *Manager) Subscribe() (<-chan adapter.Order, func()) {
	return m.notify.subscribe()
}

// DroppedUpdates reports how many notifications were dropped on full
// subscriber buffers.
func (m *Manager) DroppedUpdates() uint64 {
	return m.notify.dropped()
}

func (m *Manager) lookup(cloid adapter.Cloid) (*tracked, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.orders[cloid]
	return rec, ok
}
