package exception

import "github.com/yanun0323/errors"

var (
	ErrUnknownSymbol  = errors.New("market data: unknown symbol")
	ErrStaleBook      = errors.New("market data: book is stale")
	ErrMalformedEvent = errors.New("market data: malformed feed event")
)
