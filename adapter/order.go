package adapter

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Cloid is the client order identifier. Minted locally, monotonically
// unique for the process lifetime, and the sole correlation key between
// local intent and venue responses.
type Cloid int64

func (c Cloid) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// OrderState tracks the lifecycle of an order.
type OrderState uint16

const (
	OrderStateUnknown OrderState = iota
	OrderStatePendingNew
	OrderStateOpen
	OrderStatePartiallyFilled
	OrderStatePendingCancel
	OrderStateFilled
	OrderStateCanceled
	OrderStateRejected
)

// Terminal reports whether no further transition is permitted.
func (s OrderState) Terminal() bool {
	switch s {
	case OrderStateFilled, OrderStateCanceled, OrderStateRejected:
		return true
	default:
		return false
	}
}

func (s OrderState) String() string {
	switch s {
	case OrderStatePendingNew:
		return "pending_new"
	case OrderStateOpen:
		return "open"
	case OrderStatePartiallyFilled:
		return "partially_filled"
	case OrderStatePendingCancel:
		return "pending_cancel"
	case OrderStateFilled:
		return "filled"
	case OrderStateCanceled:
		return "canceled"
	case OrderStateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Order is the local authoritative view of one placed order. Callers always
// receive value copies; the lifecycle manager owns the mutable record.
type Order struct {
	Cloid        Cloid
	Symbol       Symbol
	Price        decimal.Decimal
	Volume       decimal.Decimal
	Filled       decimal.Decimal
	State        OrderState
	VenueOrderID string
	Reason       string
	UpdatedAt    time.Time
}

// Leaves returns the unfilled remainder.
func (o Order) Leaves() decimal.Decimal {
	return o.Volume.Sub(o.Filled)
}
