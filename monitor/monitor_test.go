package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanekoshoyu/guilder/adapter"
	"github.com/kanekoshoyu/guilder/pkg/exception"
)

// probeFunc adapts a function into the probe part of the transport.
type probeFunc func(ctx context.Context) (adapter.ProbeResult, error)

func (f probeFunc) Probe(ctx context.Context) (adapter.ProbeResult, error) { return f(ctx) }

func (probeFunc) FetchSymbolCatalog(context.Context) ([]adapter.Symbol, error) { return nil, nil }

func (probeFunc) SubscribeMarketData(context.Context, adapter.Symbol, adapter.LevelHandler) (func(), error) {
	return func() {}, nil
}

func (probeFunc) SubmitOrder(context.Context, adapter.Cloid, adapter.Symbol, decimal.Decimal, decimal.Decimal) error {
	return nil
}

func (probeFunc) ModifyOrder(context.Context, adapter.Cloid, string, decimal.Decimal, decimal.Decimal) error {
	return nil
}

func (probeFunc) CancelOrder(context.Context, adapter.Cloid, string) error { return nil }

func (probeFunc) SubscribeOrderEvents(adapter.OrderEventHandler) func() { return func() {} }

func TestPingBoundedOnDisconnectedTransport(t *testing.T) {
	hung := probeFunc(func(ctx context.Context) (adapter.ProbeResult, error) {
		<-ctx.Done()
		return adapter.ProbeResult{}, ctx.Err()
	})
	m := New(hung, Config{ProbeTimeout: 50 * time.Millisecond})

	started := time.Now()
	ok := m.Ping(t.Context())
	elapsed := time.Since(started)

	assert.False(t, ok)
	assert.Less(t, elapsed, time.Second, "ping must return within the configured bound")
	assert.False(t, m.Connected())
}

func TestPingSuccessTracksConnected(t *testing.T) {
	now := time.Now().UnixMilli()
	good := probeFunc(func(context.Context) (adapter.ProbeResult, error) {
		return adapter.ProbeResult{OK: true, ServerTimeMillis: now}, nil
	})
	m := New(good, Config{})

	require.True(t, m.Ping(t.Context()))
	assert.True(t, m.Connected())

	stats := m.ProbeStats()
	assert.Equal(t, uint64(1), stats.Count)
}

func TestConnectedWindowExpires(t *testing.T) {
	good := probeFunc(func(context.Context) (adapter.ProbeResult, error) {
		return adapter.ProbeResult{OK: true}, nil
	})
	m := New(good, Config{ConnectedWindow: 10 * time.Millisecond})

	require.True(t, m.Ping(t.Context()))
	require.True(t, m.Connected())

	time.Sleep(30 * time.Millisecond)
	assert.False(t, m.Connected())
}

func TestServerTimeDistinctErrors(t *testing.T) {
	hung := probeFunc(func(ctx context.Context) (adapter.ProbeResult, error) {
		<-ctx.Done()
		return adapter.ProbeResult{}, ctx.Err()
	})
	m := New(hung, Config{ProbeTimeout: 20 * time.Millisecond})
	_, err := m.ServerTime(t.Context())
	require.ErrorIs(t, err, exception.ErrTimeout)

	down := probeFunc(func(context.Context) (adapter.ProbeResult, error) {
		return adapter.ProbeResult{}, exception.ErrTransportUnavailable
	})
	m = New(down, Config{})
	_, err = m.ServerTime(t.Context())
	require.ErrorIs(t, err, exception.ErrTransportUnavailable)
}

func TestClockSkew(t *testing.T) {
	behind := probeFunc(func(context.Context) (adapter.ProbeResult, error) {
		return adapter.ProbeResult{OK: true, ServerTimeMillis: time.Now().UnixMilli() - 2000}, nil
	})
	m := New(behind, Config{})

	_, ok := m.ClockSkew()
	assert.False(t, ok, "no skew before the first successful time sync")

	_, err := m.ServerTime(t.Context())
	require.NoError(t, err)

	skew, ok := m.ClockSkew()
	require.True(t, ok)
	assert.InDelta(t, float64(2*time.Second), float64(skew), float64(500*time.Millisecond))
}
