package og

import (
	"time"

	"github.com/kanekoshoyu/guilder/adapter"
	"github.com/kanekoshoyu/guilder/pkg/exception"
)

// applyEvent advances one order record by the minimal legal transition for
// the event. Terminal orders accept nothing: a late or duplicate venue
// event returns ErrDuplicateOrGhostEvent and leaves the record untouched,
// which makes reconciliation idempotent by construction.
//
// The caller holds the order's exclusive section.
func applyEvent(o *adapter.Order, ev adapter.OrderEvent, now time.Time) error {
	if o.State.Terminal() {
		return exception.ErrDuplicateOrGhostEvent
	}

	switch ev.Type {
	case adapter.OrderEventAck:
		if ev.VenueOrderID != "" {
			o.VenueOrderID = ev.VenueOrderID
		}
		if o.State == adapter.OrderStatePendingNew {
			o.State = adapter.OrderStateOpen
		}

	case adapter.OrderEventPartialFill, adapter.OrderEventFill:
		if ev.FillVolume.Sign() <= 0 {
			return exception.ErrDuplicateOrGhostEvent
		}
		if ev.VenueOrderID != "" {
			o.VenueOrderID = ev.VenueOrderID
		}
		filled := o.Filled.Add(ev.FillVolume)
		if filled.Cmp(o.Volume) > 0 {
			// clamp keeps filled volume monotonic and <= requested
			filled = o.Volume
		}
		o.Filled = filled
		if o.Filled.Equal(o.Volume) {
			o.State = adapter.OrderStateFilled
		} else if o.State != adapter.OrderStatePendingCancel {
			o.State = adapter.OrderStatePartiallyFilled
		}

	case adapter.OrderEventCancelConfirmed:
		o.State = adapter.OrderStateCanceled

	case adapter.OrderEventRejected:
		o.State = adapter.OrderStateRejected
		o.Reason = ev.Reason

	default:
		return exception.ErrDuplicateOrGhostEvent
	}

	o.UpdatedAt = now
	return nil
}
