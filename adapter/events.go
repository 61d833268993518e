package adapter

import "github.com/shopspring/decimal"

// LevelUpdate is one incremental order book change delivered by a venue
// feed. Volume zero removes the level at Price.
type LevelUpdate struct {
	Symbol Symbol
	Side   Side
	Price  decimal.Decimal
	Volume decimal.Decimal
}

// OrderEventType classifies asynchronous order lifecycle events.
type OrderEventType uint8

const (
	OrderEventUnknown OrderEventType = iota
	OrderEventAck
	OrderEventPartialFill
	OrderEventFill
	OrderEventCancelConfirmed
	OrderEventRejected
)

func (t OrderEventType) String() string {
	switch t {
	case OrderEventAck:
		return "ack"
	case OrderEventPartialFill:
		return "partial_fill"
	case OrderEventFill:
		return "fill"
	case OrderEventCancelConfirmed:
		return "cancel_confirmed"
	case OrderEventRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// OrderEvent is one venue acknowledgment, fill, cancel confirmation or
// rejection, correlated by cloid. FillVolume is the incremental fill of
// this event, not a cumulative total.
type OrderEvent struct {
	Cloid        Cloid
	VenueOrderID string
	Type         OrderEventType
	FillVolume   decimal.Decimal
	Reason       string
}
