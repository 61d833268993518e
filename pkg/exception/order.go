package exception

import "errors"

var (
	ErrUnknownOrder           = errors.New("order: order not found")
	ErrInvalidOrderParameters = errors.New("order: invalid order parameters")
	ErrVenueRejected          = errors.New("order: rejected by venue")
	ErrModifyInFlight         = errors.New("order: modify already in flight")
	ErrDuplicateOrGhostEvent  = errors.New("order: duplicate or ghost event")
)
