package og

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanekoshoyu/guilder/adapter"
	"github.com/kanekoshoyu/guilder/pkg/exception"
)

const btcusd = adapter.Symbol("BTCUSD")

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// stubTransport records dispatches and lets tests fail them selectively.
type stubTransport struct {
	submitErr func(cloid adapter.Cloid) error
	modifyErr error
	cancelErr func(cloid adapter.Cloid) error

	submits  []adapter.Cloid
	modifies []adapter.Cloid
	cancels  []adapter.Cloid
}

func (s *stubTransport) Probe(context.Context) (adapter.ProbeResult, error) {
	return adapter.ProbeResult{OK: true}, nil
}

func (s *stubTransport) FetchSymbolCatalog(context.Context) ([]adapter.Symbol, error) {
	return []adapter.Symbol{btcusd}, nil
}

func (s *stubTransport) SubscribeMarketData(context.Context, adapter.Symbol, adapter.LevelHandler) (func(), error) {
	return func() {}, nil
}

func (s *stubTransport) SubmitOrder(_ context.Context, cloid adapter.Cloid, _ adapter.Symbol, _, _ decimal.Decimal) error {
	if s.submitErr != nil {
		if err := s.submitErr(cloid); err != nil {
			return err
		}
	}
	s.submits = append(s.submits, cloid)
	return nil
}

func (s *stubTransport) ModifyOrder(_ context.Context, cloid adapter.Cloid, _ string, _, _ decimal.Decimal) error {
	if s.modifyErr != nil {
		return s.modifyErr
	}
	s.modifies = append(s.modifies, cloid)
	return nil
}

func (s *stubTransport) CancelOrder(_ context.Context, cloid adapter.Cloid, _ string) error {
	if s.cancelErr != nil {
		if err := s.cancelErr(cloid); err != nil {
			return err
		}
	}
	s.cancels = append(s.cancels, cloid)
	return nil
}

func (s *stubTransport) SubscribeOrderEvents(adapter.OrderEventHandler) func() {
	return func() {}
}

func place(t *testing.T, m *Manager) adapter.Cloid {
	t.Helper()
	cloid, err := m.PlaceOrder(t.Context(), btcusd, dec("67000"), dec("1"))
	require.NoError(t, err)
	return cloid
}

func TestPlaceOrderMintsDistinctCloids(t *testing.T) {
	m := NewManager(&stubTransport{})

	first := place(t, m)
	second := place(t, m)
	require.NotEqual(t, first, second)

	a, err := m.Order(first)
	require.NoError(t, err)
	b, err := m.Order(second)
	require.NoError(t, err)

	assert.Equal(t, adapter.OrderStatePendingNew, a.State)
	assert.Equal(t, adapter.OrderStatePendingNew, b.State)
}

func TestPlaceAckFill(t *testing.T) {
	m := NewManager(&stubTransport{})
	cloid := place(t, m)
	require.Equal(t, adapter.Cloid(1), cloid)

	m.Reconcile(adapter.OrderEvent{Cloid: cloid, VenueOrderID: "v-1", Type: adapter.OrderEventAck})
	o, err := m.Order(cloid)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStateOpen, o.State)
	assert.Equal(t, "v-1", o.VenueOrderID)

	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventFill, FillVolume: dec("1")})
	o, err = m.Order(cloid)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStateFilled, o.State)
	assert.True(t, o.Filled.Equal(dec("1")))
}

func TestCancelUnknownOrder(t *testing.T) {
	m := NewManager(&stubTransport{})
	err := m.CancelOrder(t.Context(), 999)
	require.ErrorIs(t, err, exception.ErrUnknownOrder)
}

func TestChangeTerminalOrderFails(t *testing.T) {
	m := NewManager(&stubTransport{})
	cloid := place(t, m)
	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventFill, FillVolume: dec("1")})

	_, err := m.ChangeOrder(t.Context(), cloid, dec("68000"), dec("1"))
	require.ErrorIs(t, err, exception.ErrUnknownOrder)
}

func TestInvalidOrderParameters(t *testing.T) {
	m := NewManager(&stubTransport{})

	_, err := m.PlaceOrder(t.Context(), btcusd, dec("0"), dec("1"))
	require.ErrorIs(t, err, exception.ErrInvalidOrderParameters)

	_, err = m.PlaceOrder(t.Context(), btcusd, dec("67000"), dec("-1"))
	require.ErrorIs(t, err, exception.ErrInvalidOrderParameters)

	_, err = m.PlaceOrder(t.Context(), "", dec("67000"), dec("1"))
	require.ErrorIs(t, err, exception.ErrInvalidOrderParameters)
}

func TestDuplicateTerminalEventDiscarded(t *testing.T) {
	m := NewManager(&stubTransport{})
	cloid := place(t, m)

	fill := adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventFill, FillVolume: dec("1")}
	m.Reconcile(fill)
	before, err := m.Order(cloid)
	require.NoError(t, err)

	m.Reconcile(fill)
	after, err := m.Order(cloid)
	require.NoError(t, err)

	assert.Equal(t, before.State, after.State)
	assert.True(t, before.Filled.Equal(after.Filled))
}

func TestFillMonotonicAndClamped(t *testing.T) {
	m := NewManager(&stubTransport{})
	cloid, err := m.PlaceOrder(t.Context(), btcusd, dec("67000"), dec("2"))
	require.NoError(t, err)

	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventAck})
	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventPartialFill, FillVolume: dec("0.5")})

	o, err := m.Order(cloid)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStatePartiallyFilled, o.State)
	assert.True(t, o.Filled.Equal(dec("0.5")))

	// an overstated fill clamps at the requested volume
	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventFill, FillVolume: dec("99")})
	o, err = m.Order(cloid)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStateFilled, o.State)
	assert.True(t, o.Filled.Equal(dec("2")))
}

func TestDispatchFailureRejectsImmediately(t *testing.T) {
	tr := &stubTransport{submitErr: func(adapter.Cloid) error {
		return exception.ErrTransportUnavailable
	}}
	m := NewManager(tr)

	cloid, err := m.PlaceOrder(t.Context(), btcusd, dec("67000"), dec("1"))
	require.ErrorIs(t, err, exception.ErrTransportUnavailable)
	require.NotZero(t, cloid)

	o, err := m.Order(cloid)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStateRejected, o.State)
}

func TestCancelIdempotentWhilePending(t *testing.T) {
	tr := &stubTransport{}
	m := NewManager(tr)
	cloid := place(t, m)
	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventAck})

	require.NoError(t, m.CancelOrder(t.Context(), cloid))
	require.NoError(t, m.CancelOrder(t.Context(), cloid))
	assert.Len(t, tr.cancels, 1, "second cancel of a pending cancel must not dispatch")

	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventCancelConfirmed})
	o, err := m.Order(cloid)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStateCanceled, o.State)
}

func TestCancelDispatchFailureRevertsState(t *testing.T) {
	tr := &stubTransport{cancelErr: func(adapter.Cloid) error {
		return exception.ErrTransportUnavailable
	}}
	m := NewManager(tr)
	cloid := place(t, m)
	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventAck})

	err := m.CancelOrder(t.Context(), cloid)
	require.ErrorIs(t, err, exception.ErrTransportUnavailable)

	o, err := m.Order(cloid)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStateOpen, o.State)
}

func TestCancelAllPartialDispatchFailure(t *testing.T) {
	var failing adapter.Cloid
	tr := &stubTransport{}
	m := NewManager(tr)

	first := place(t, m)
	second := place(t, m)
	m.Reconcile(adapter.OrderEvent{Cloid: first, Type: adapter.OrderEventAck})
	m.Reconcile(adapter.OrderEvent{Cloid: second, Type: adapter.OrderEventAck})

	failing = second
	tr.cancelErr = func(cloid adapter.Cloid) error {
		if cloid == failing {
			return exception.ErrTransportUnavailable
		}
		return nil
	}

	require.False(t, m.CancelAll(t.Context()))

	a, err := m.Order(first)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStatePendingCancel, a.State)

	b, err := m.Order(second)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStateOpen, b.State)
}

func TestCancelAllSkipsTerminal(t *testing.T) {
	tr := &stubTransport{}
	m := NewManager(tr)

	first := place(t, m)
	second := place(t, m)
	m.Reconcile(adapter.OrderEvent{Cloid: first, Type: adapter.OrderEventFill, FillVolume: dec("1")})
	m.Reconcile(adapter.OrderEvent{Cloid: second, Type: adapter.OrderEventAck})

	require.True(t, m.CancelAll(t.Context()))
	assert.Equal(t, []adapter.Cloid{second}, tr.cancels)
}

func TestModifyKeepsCloidAndSerializes(t *testing.T) {
	tr := &stubTransport{}
	m := NewManager(tr)
	cloid := place(t, m)
	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventAck})

	got, err := m.ChangeOrder(t.Context(), cloid, dec("67100"), dec("1"))
	require.NoError(t, err)
	assert.Equal(t, cloid, got, "modify must not mint a new cloid")

	_, err = m.ChangeOrder(t.Context(), cloid, dec("67200"), dec("1"))
	require.ErrorIs(t, err, exception.ErrModifyInFlight)

	// the venue answering the modify clears the outstanding mark
	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventAck})
	_, err = m.ChangeOrder(t.Context(), cloid, dec("67200"), dec("1"))
	require.NoError(t, err)
}

func TestFillDuringPendingCancel(t *testing.T) {
	m := NewManager(&stubTransport{})
	cloid, err := m.PlaceOrder(t.Context(), btcusd, dec("67000"), dec("2"))
	require.NoError(t, err)
	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventAck})
	require.NoError(t, m.CancelOrder(t.Context(), cloid))

	// partial fill racing the cancel keeps the cancel pending
	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventPartialFill, FillVolume: dec("1")})
	o, err := m.Order(cloid)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStatePendingCancel, o.State)
	assert.True(t, o.Filled.Equal(dec("1")))

	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventCancelConfirmed})
	o, err = m.Order(cloid)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStateCanceled, o.State)
}

func TestReconcileByVenueOrderID(t *testing.T) {
	m := NewManager(&stubTransport{})
	cloid := place(t, m)
	m.Reconcile(adapter.OrderEvent{Cloid: cloid, VenueOrderID: "v-9", Type: adapter.OrderEventAck})

	// venues sometimes key follow-ups by their own id only
	m.Reconcile(adapter.OrderEvent{VenueOrderID: "v-9", Type: adapter.OrderEventFill, FillVolume: dec("1")})

	o, err := m.Order(cloid)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStateFilled, o.State)
}

func TestReplacementRemapsVenueOrderID(t *testing.T) {
	m := NewManager(&stubTransport{})
	cloid := place(t, m)
	m.Reconcile(adapter.OrderEvent{Cloid: cloid, VenueOrderID: "100", Type: adapter.OrderEventAck})

	_, err := m.ChangeOrder(t.Context(), cloid, dec("67100"), dec("1"))
	require.NoError(t, err)

	// a cancel+replace venue re-acks the same cloid under a new venue id
	m.Reconcile(adapter.OrderEvent{Cloid: cloid, VenueOrderID: "101", Type: adapter.OrderEventAck})

	o, err := m.Order(cloid)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStateOpen, o.State)
	assert.Equal(t, "101", o.VenueOrderID)

	// follow-ups keyed by the new venue id reach the order
	m.Reconcile(adapter.OrderEvent{VenueOrderID: "101", Type: adapter.OrderEventPartialFill, FillVolume: dec("0.5")})
	o, err = m.Order(cloid)
	require.NoError(t, err)
	assert.True(t, o.Filled.Equal(dec("0.5")))

	// the stale venue id no longer resolves; its events are ghosts
	m.Reconcile(adapter.OrderEvent{VenueOrderID: "100", Type: adapter.OrderEventCancelConfirmed})
	o, err = m.Order(cloid)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStatePartiallyFilled, o.State)
}

func TestRejectKeepsReason(t *testing.T) {
	m := NewManager(&stubTransport{})
	cloid := place(t, m)

	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventRejected, Reason: "insufficient balance"})
	o, err := m.Order(cloid)
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderStateRejected, o.State)
	assert.Equal(t, "insufficient balance", o.Reason)
}

func TestSubscribeDeliversStateChanges(t *testing.T) {
	m := NewManager(&stubTransport{})
	ch, cancel := m.Subscribe()
	defer cancel()

	cloid := place(t, m)
	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventAck})
	m.Reconcile(adapter.OrderEvent{Cloid: cloid, Type: adapter.OrderEventFill, FillVolume: dec("1")})

	states := make([]adapter.OrderState, 0, 3)
	for i := 0; i < 3; i++ {
		select {
		case o := <-ch:
			states = append(states, o.State)
		case <-t.Context().Done():
			t.Fatal("timeout waiting for order updates")
		}
	}

	assert.Equal(t, []adapter.OrderState{
		adapter.OrderStatePendingNew,
		adapter.OrderStateOpen,
		adapter.OrderStateFilled,
	}, states)
	assert.Zero(t, m.DroppedUpdates())
}
