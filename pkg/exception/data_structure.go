package exception

import "github.com/yanun0323/errors"

var (
	ErrIndexOutOfRange = errors.New("index out of range")
)
