package exception

import "github.com/yanun0323/errors"

var (
	ErrTransportUnavailable = errors.New("connection: transport unavailable")
	ErrTimeout              = errors.New("connection: bounded wait exceeded")
)
