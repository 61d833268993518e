package btcc

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/kanekoshoyu/guilder/adapter"
)

// translateOrderUpdate maps one private stream notification onto the
// venue-agnostic event. Updates without a numeric client id were not
// placed through this process and are skipped.
func translateOrderUpdate(up orderUpdate) (adapter.OrderEvent, bool) {
	cloid, err := strconv.ParseInt(up.Order.ClientID, 10, 64)
	if err != nil || cloid <= 0 {
		return adapter.OrderEvent{}, false
	}

	ev := adapter.OrderEvent{
		Cloid:        adapter.Cloid(cloid),
		VenueOrderID: strconv.FormatInt(up.Order.ID, 10),
	}

	switch up.Status {
	case orderStatusPut:
		ev.Type = adapter.OrderEventAck
		return ev, true

	case orderStatusUpdate:
		fill, err := decimal.NewFromString(up.Order.LastDealAmount)
		if err != nil || fill.Sign() <= 0 {
			return adapter.OrderEvent{}, false
		}
		ev.Type = adapter.OrderEventPartialFill
		ev.FillVolume = fill
		return ev, true

	case orderStatusFinish:
		left, err := decimal.NewFromString(up.Order.Left)
		if err != nil {
			return adapter.OrderEvent{}, false
		}

		if left.Sign() == 0 {
			fill, err := decimal.NewFromString(up.Order.LastDealAmount)
			if err != nil || fill.Sign() < 0 {
				return adapter.OrderEvent{}, false
			}
			ev.Type = adapter.OrderEventFill
			ev.FillVolume = fill
			return ev, true
		}

		ev.Type = adapter.OrderEventCancelConfirmed
		return ev, true

	default:
		return adapter.OrderEvent{}, false
	}
}
