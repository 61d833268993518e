// Package btcc connects the venue-agnostic surface to the BTCC spot API:
// REST for order commands, public websocket for depth, private websocket
// for order updates.
package btcc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"github.com/kanekoshoyu/guilder/adapter"
	"github.com/kanekoshoyu/guilder/exchange"
	ierr "github.com/kanekoshoyu/guilder/internal/errors"
	"github.com/kanekoshoyu/guilder/pkg/exception"
)

func init() {
	exchange.Register("btcc", func(ctx context.Context, opt exchange.Options) (adapter.Transport, error) {
		return New(ctx, opt)
	})
}

// Transport implements adapter.Transport over the BTCC spot API.
type Transport struct {
	rest *restClient
	pub  *ws.WebSocket
	priv *ws.WebSocket

	mu          sync.Mutex
	markets     map[adapter.Cloid]adapter.Symbol
	replacing   map[adapter.Cloid]struct{}
	eventSubs   map[uint64]adapter.OrderEventHandler
	nextSubID   uint64
	unsubOrders func()
}

var _ adapter.Transport = (*Transport)(nil)

// New dials the venue. The private stream only starts when credentials
// are present; market data works without them.
func New(ctx context.Context, opt exchange.Options) (*Transport, error) {
	restBase := opt.Endpoint
	wsBase := opt.WsEndpoint
	if restBase == "" {
		restBase = baseURL
		if opt.DevMode {
			restBase = baseURLDev
		}
	}
	if wsBase == "" {
		wsBase = baseWsURL
		if opt.DevMode {
			wsBase = baseWsURLDev
		}
	}

	t := &Transport{
		rest: &restClient{
			base:   restBase,
			key:    opt.Key,
			secret: opt.Secret,
			client: &http.Client{},
		},
		pub:       ws.New(ctx, wsBase),
		markets:   make(map[adapter.Cloid]adapter.Symbol),
		replacing: make(map[adapter.Cloid]struct{}),
		eventSubs: make(map[uint64]adapter.OrderEventHandler),
	}

	if err := t.pub.Start(ctx); err != nil {
		return nil, ierr.Wrap(err, "start public stream")
	}

	if opt.Key != "" {
		t.priv = ws.New(ctx, wsBase)
		if err := t.startPrivateStream(ctx); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Close tears down both streams.
func (t *Transport) Close() {
	if t.unsubOrders != nil {
		t.unsubOrders()
	}
	t.pub.Close()
	if t.priv != nil {
		t.priv.Close()
	}
}

func (t *Transport) Probe(ctx context.Context) (adapter.ProbeResult, error) {
	millis, err := post[int64](ctx, t.rest, pathServerTime, map[string]string{})
	if err != nil {
		return adapter.ProbeResult{}, err
	}

	return adapter.ProbeResult{OK: millis > 0, ServerTimeMillis: millis}, nil
}

func (t *Transport) FetchSymbolCatalog(ctx context.Context) ([]adapter.Symbol, error) {
	entries, err := post[[]marketEntry](ctx, t.rest, pathMarketList, map[string]string{})
	if err != nil {
		return nil, ierr.Wrap(err, "fetch market list")
	}

	symbols := make([]adapter.Symbol, 0, len(entries))
	for _, entry := range entries {
		if entry.Name == "" {
			continue
		}
		symbols = append(symbols, adapter.Symbol(entry.Name))
	}

	return symbols, nil
}

func (t *Transport) SubmitOrder(ctx context.Context, cloid adapter.Cloid, symbol adapter.Symbol, price, volume decimal.Decimal) error {
	params := map[string]string{
		"access_id": t.rest.key,
		"tm":        strconv.FormatInt(time.Now().Unix(), 10),
		"market":    string(symbol),
		"side":      "1",
		"price":     price.String(),
		"amount":    volume.String(),
		"source":    "guilder",
		"option":    "0",
		"client_id": strconv.FormatInt(int64(cloid), 10),
	}

	if _, err := post[placedOrder](ctx, t.rest, pathPlaceLimit, params); err != nil {
		return ierr.Wrapf(err, "place order, cloid: %d", cloid)
	}

	t.mu.Lock()
	t.markets[cloid] = symbol
	t.mu.Unlock()
	return nil
}

// ModifyOrder is cancel plus replace; the venue has no native amend. The
// replacement reuses the client id so the lifecycle keeps one cloid. The
// cancel leg's confirmation is suppressed on the private stream: it is
// wire bookkeeping of the replace, not the end of the order.
func (t *Transport) ModifyOrder(ctx context.Context, cloid adapter.Cloid, venueOrderID string, price, volume decimal.Decimal) error {
	t.mu.Lock()
	symbol, ok := t.markets[cloid]
	if ok {
		t.replacing[cloid] = struct{}{}
	}
	t.mu.Unlock()
	if !ok {
		return exception.ErrUnknownOrder
	}

	if err := t.CancelOrder(ctx, cloid, venueOrderID); err != nil {
		t.abortReplace(cloid)
		return err
	}

	// if the replacement never reaches the venue the cancel was real and
	// its confirmation must flow through
	if err := t.SubmitOrder(ctx, cloid, symbol, price, volume); err != nil {
		t.abortReplace(cloid)
		return err
	}

	return nil
}

// consumeReplaceCancel reports whether a cancel confirmation belongs to an
// in-flight replace, consuming the mark so only one confirmation is eaten.
func (t *Transport) consumeReplaceCancel(cloid adapter.Cloid) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.replacing[cloid]; !ok {
		return false
	}
	delete(t.replacing, cloid)
	return true
}

func (t *Transport) abortReplace(cloid adapter.Cloid) {
	t.mu.Lock()
	delete(t.replacing, cloid)
	t.mu.Unlock()
}

func (t *Transport) CancelOrder(ctx context.Context, cloid adapter.Cloid, venueOrderID string) error {
	t.mu.Lock()
	symbol, ok := t.markets[cloid]
	t.mu.Unlock()
	if !ok {
		return exception.ErrUnknownOrder
	}

	params := map[string]string{
		"access_id": t.rest.key,
		"tm":        strconv.FormatInt(time.Now().Unix(), 10),
		"market":    string(symbol),
		"order_id":  venueOrderID,
	}

	if _, err := post[placedOrder](ctx, t.rest, pathCancelOrder, params); err != nil {
		return ierr.Wrapf(err, "cancel order, cloid: %d", cloid)
	}

	return nil
}

func (t *Transport) SubscribeMarketData(ctx context.Context, symbol adapter.Symbol, handler adapter.LevelHandler) (func(), error) {
	if err := t.pub.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			if err := client.WriteJSON(map[string]any{
				"id":     wsMethodDepthID,
				"method": "depth.subscribe",
				"params": []any{string(symbol), 20, "0.00000001"},
			}); err != nil {
				return ierr.Wrap(err, "write depth subscribe")
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			resp, ok := ws.ReadMessage[wsCommandResult](m)
			if !ok || resp.ID != wsMethodDepthID {
				return false, nil
			}

			return resp.success(), nil
		},
	}); err != nil {
		return nil, ierr.Wrapf(err, "subscribe depth, symbol: %s", symbol)
	}

	ch, cancel := t.pub.Subscribe()
	go func() {
		defer cancel()

		differ := newDepthDiffer()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				frame, ok := ws.ReadMessage[wsFrame](m)
				if !ok || frame.Method != "depth.update" {
					continue
				}

				var depth depthFrame
				if err := frame.unmarshal(2, &depth.Market); err != nil {
					logs.Errorf("unmarshal depth market, err: %+v", err)
					continue
				}
				if depth.Market != string(symbol) {
					continue
				}
				if err := frame.unmarshal(0, &depth.Full); err != nil {
					logs.Errorf("unmarshal depth full flag, err: %+v", err)
					continue
				}
				if err := frame.unmarshal(1, &depth.Orderbook); err != nil {
					logs.Errorf("unmarshal depth orderbook, err: %+v", err)
					continue
				}

				for _, update := range differ.apply(symbol, depth) {
					handler(update)
				}
			}
		}
	}()

	return cancel, nil
}

func (t *Transport) SubscribeOrderEvents(handler adapter.OrderEventHandler) func() {
	t.mu.Lock()
	id := t.nextSubID
	t.nextSubID++
	t.eventSubs[id] = handler
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.eventSubs, id)
		t.mu.Unlock()
	}
}

func (t *Transport) startPrivateStream(ctx context.Context) error {
	if err := t.priv.Start(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			sum := sha256.Sum256([]byte(t.rest.secret))
			if err := client.WriteJSON(map[string]any{
				"id":     wsMethodAuthID,
				"method": "server.accessid_auth",
				"params": []any{t.rest.key, hex.EncodeToString(sum[:])},
			}); err != nil {
				return ierr.Wrap(err, "write auth payload")
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			resp, ok := ws.ReadMessage[wsCommandResult](m)
			if !ok || resp.ID != wsMethodAuthID {
				return false, nil
			}

			if !resp.success() {
				return false, ierr.New("authentication refused")
			}

			return true, nil
		},
	}); err != nil {
		return ierr.Wrap(err, "start private stream")
	}

	if err := t.priv.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			if err := client.WriteJSON(map[string]any{
				"id":     wsMethodOrderID,
				"method": "order.subscribe",
				"params": []any{},
			}); err != nil {
				return ierr.Wrap(err, "write order subscribe")
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			resp, ok := ws.ReadMessage[wsCommandResult](m)
			if !ok || resp.ID != wsMethodOrderID {
				return false, nil
			}

			return resp.success(), nil
		},
	}); err != nil {
		return ierr.Wrap(err, "subscribe orders")
	}

	ch, cancel := t.priv.Subscribe()
	t.unsubOrders = cancel
	go func() {
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				frame, ok := ws.ReadMessage[wsFrame](m)
				if !ok || frame.Method != "order.update" {
					continue
				}

				var update orderUpdate
				if err := frame.unmarshal(0, &update.Status); err != nil {
					continue
				}
				if err := frame.unmarshal(1, &update.Order); err != nil {
					continue
				}

				t.handleOrderUpdate(update)
			}
		}
	}()

	return nil
}

func (t *Transport) handleOrderUpdate(update orderUpdate) {
	event, ok := translateOrderUpdate(update)
	if !ok {
		return
	}

	if event.Type == adapter.OrderEventCancelConfirmed && t.consumeReplaceCancel(event.Cloid) {
		return
	}

	t.mu.Lock()
	handlers := make([]adapter.OrderEventHandler, 0, len(t.eventSubs))
	for _, h := range t.eventSubs {
		handlers = append(handlers, h)
	}
	t.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}
