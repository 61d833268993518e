package btcc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanekoshoyu/guilder/adapter"
	"github.com/kanekoshoyu/guilder/pkg/exception"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestSignSortsParamsWithSecret(t *testing.T) {
	c := &restClient{secret: "s"}
	assert.Equal(t, "4db770baaf11198d3843e50c258b918b", c.sign(map[string]string{"b": "2", "a": "1"}))
	// map iteration order must not change the digest
	assert.Equal(t, c.sign(map[string]string{"a": "1", "b": "2"}), c.sign(map[string]string{"b": "2", "a": "1"}))
}

func levels(pairs ...string) [][]decimal.Decimal {
	out := make([][]decimal.Decimal, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, []decimal.Decimal{dec(pairs[i]), dec(pairs[i+1])})
	}
	return out
}

func TestDepthDifferFullFrameRemovesStaleLevels(t *testing.T) {
	differ := newDepthDiffer()
	symbol := adapter.Symbol("BTCUSD")

	first := depthFrame{Full: true}
	first.Orderbook.Bids = levels("100", "1", "99", "2")
	first.Orderbook.Asks = levels("101", "3")
	updates := differ.apply(symbol, first)
	require.Len(t, updates, 3)

	second := depthFrame{Full: true}
	second.Orderbook.Bids = levels("100", "5")
	second.Orderbook.Asks = levels("101", "3")

	updates = differ.apply(symbol, second)

	var removed []string
	for _, up := range updates {
		if up.Volume.Sign() == 0 {
			removed = append(removed, up.Price.String())
		}
	}
	assert.Equal(t, []string{"99"}, removed)
}

func TestDepthDifferPartialFrame(t *testing.T) {
	differ := newDepthDiffer()
	symbol := adapter.Symbol("BTCUSD")

	full := depthFrame{Full: true}
	full.Orderbook.Bids = levels("100", "1")
	differ.apply(symbol, full)

	partial := depthFrame{}
	partial.Orderbook.Bids = levels("100", "0", "98", "2")

	updates := differ.apply(symbol, partial)
	require.Len(t, updates, 2)
	assert.True(t, updates[0].Volume.Sign() == 0)
	assert.True(t, updates[1].Price.Equal(dec("98")))

	// removed level must not resurface as stale on the next full frame
	next := depthFrame{Full: true}
	next.Orderbook.Bids = levels("98", "2")
	for _, up := range differ.apply(symbol, next) {
		assert.NotEqual(t, "100", up.Price.String())
	}
}

func TestTranslateOrderUpdate(t *testing.T) {
	base := orderUpdate{}
	base.Order.ID = 555
	base.Order.ClientID = "42"
	base.Order.Amount = "2"

	put := base
	put.Status = orderStatusPut
	ev, ok := translateOrderUpdate(put)
	require.True(t, ok)
	assert.Equal(t, adapter.OrderEventAck, ev.Type)
	assert.Equal(t, adapter.Cloid(42), ev.Cloid)
	assert.Equal(t, "555", ev.VenueOrderID)

	deal := base
	deal.Status = orderStatusUpdate
	deal.Order.LastDealAmount = "0.5"
	ev, ok = translateOrderUpdate(deal)
	require.True(t, ok)
	assert.Equal(t, adapter.OrderEventPartialFill, ev.Type)
	assert.True(t, ev.FillVolume.Equal(dec("0.5")))

	done := base
	done.Status = orderStatusFinish
	done.Order.Left = "0"
	done.Order.LastDealAmount = "1.5"
	ev, ok = translateOrderUpdate(done)
	require.True(t, ok)
	assert.Equal(t, adapter.OrderEventFill, ev.Type)
	assert.True(t, ev.FillVolume.Equal(dec("1.5")))

	canceled := base
	canceled.Status = orderStatusFinish
	canceled.Order.Left = "2"
	ev, ok = translateOrderUpdate(canceled)
	require.True(t, ok)
	assert.Equal(t, adapter.OrderEventCancelConfirmed, ev.Type)
}

func newBareTransport() *Transport {
	return &Transport{
		markets:   make(map[adapter.Cloid]adapter.Symbol),
		replacing: make(map[adapter.Cloid]struct{}),
		eventSubs: make(map[uint64]adapter.OrderEventHandler),
	}
}

func update(status int, venueID int64, clientID, left string) orderUpdate {
	up := orderUpdate{Status: status}
	up.Order.ID = venueID
	up.Order.ClientID = clientID
	up.Order.Left = left
	return up
}

func TestReplaceSuppressesCancelLeg(t *testing.T) {
	tr := newBareTransport()
	tr.markets[1] = "BTCUSD"
	tr.replacing[1] = struct{}{}

	var events []adapter.OrderEvent
	unsub := tr.SubscribeOrderEvents(func(ev adapter.OrderEvent) {
		events = append(events, ev)
	})
	defer unsub()

	// ack of the original, the replace's cancel leg, ack of the replacement
	tr.handleOrderUpdate(update(orderStatusPut, 100, "1", "1"))
	tr.handleOrderUpdate(update(orderStatusFinish, 100, "1", "1"))
	tr.handleOrderUpdate(update(orderStatusPut, 101, "1", "1"))

	require.Len(t, events, 2)
	assert.Equal(t, adapter.OrderEventAck, events[0].Type)
	assert.Equal(t, "100", events[0].VenueOrderID)
	assert.Equal(t, adapter.OrderEventAck, events[1].Type)
	assert.Equal(t, "101", events[1].VenueOrderID)

	// a later cancel with no replace in flight flows through
	tr.handleOrderUpdate(update(orderStatusFinish, 101, "1", "1"))
	require.Len(t, events, 3)
	assert.Equal(t, adapter.OrderEventCancelConfirmed, events[2].Type)
}

func TestConsumeReplaceCancelOnce(t *testing.T) {
	tr := newBareTransport()
	tr.replacing[7] = struct{}{}

	assert.True(t, tr.consumeReplaceCancel(7))
	assert.False(t, tr.consumeReplaceCancel(7))
	assert.False(t, tr.consumeReplaceCancel(8))
}

func TestRestEnvelopeCarriesVenueRejection(t *testing.T) {
	resp := restResponse[placedOrder]{Error: &responseError{Code: 10, Message: "balance not enough"}}

	err := resp.err()
	require.ErrorIs(t, err, exception.ErrVenueRejected)
	assert.Contains(t, err.Error(), "balance not enough")

	assert.NoError(t, restResponse[placedOrder]{}.err())
}

func TestTranslateSkipsForeignOrders(t *testing.T) {
	up := orderUpdate{Status: orderStatusPut}
	up.Order.ClientID = "manual-terminal"

	_, ok := translateOrderUpdate(up)
	assert.False(t, ok)
}
