package btcc

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"github.com/kanekoshoyu/guilder/pkg/exception"
)

const (
	wsMethodAuthID  = 1
	wsMethodDepthID = 2
	wsMethodOrderID = 3
)

// restResponse is the REST envelope. The venue reports failures through
// the error object, not HTTP status codes.
type restResponse[T any] struct {
	ID    int64          `json:"id"`
	Error *responseError `json:"error,omitempty"`
	Data  T              `json:"result"`
}

type responseError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (r restResponse[T]) err() error {
	if r.Error == nil {
		return nil
	}

	return errors.Wrapf(exception.ErrVenueRejected, "code: %d, message: %s", r.Error.Code, r.Error.Message)
}

type placedOrder struct {
	ID       int64  `json:"id"`
	Market   string `json:"market"`
	ClientID string `json:"client_id"`
	Price    string `json:"price"`
	Amount   string `json:"amount"`
	Left     string `json:"left"`
}

type marketEntry struct {
	Name string `json:"name"`
}

// wsFrame is the notification envelope; params carry positional values
// whose types depend on the method.
type wsFrame struct {
	ID     any               `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func (f wsFrame) unmarshal(index int, p any) error {
	if index >= len(f.Params) {
		return errors.Wrapf(exception.ErrIndexOutOfRange, "index: %d, len: %d", index, len(f.Params))
	}

	if err := json.Unmarshal(f.Params[index], p); err != nil {
		return errors.Wrapf(err, "unmarshal from index: %d", index)
	}

	return nil
}

type wsCommandResult struct {
	ID int `json:"id"`

	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`

	Result struct {
		Status string `json:"status"`
	} `json:"result"`
}

func (r wsCommandResult) success() bool {
	return r.Error == nil && r.Result.Status == "success"
}

// depthFrame is one depth.update payload. Full frames replace the book,
// partial frames patch individual levels.
type depthFrame struct {
	Market    string
	Full      bool
	Orderbook struct {
		Asks [][]decimal.Decimal `json:"asks"`
		Bids [][]decimal.Decimal `json:"bids"`
		Time int64               `json:"time"`
	}
}

const (
	orderStatusPut    = 1
	orderStatusUpdate = 2
	orderStatusFinish = 3
)

// orderUpdate is one order.update payload from the private stream.
type orderUpdate struct {
	Status int
	Order  struct {
		ID             int64  `json:"id"`
		Market         string `json:"market"`
		ClientID       string `json:"client_id"`
		Price          string `json:"price"`
		Amount         string `json:"amount"`
		Left           string `json:"left"`
		DealStock      string `json:"deal_stock"`
		LastDealAmount string `json:"last_deal_amount"`
	}
}
