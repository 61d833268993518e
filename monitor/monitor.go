// Package monitor tracks liveness and clock skew against one venue
// connection. Probes go through the transport shim; every synchronous wait
// is bounded.
package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/kanekoshoyu/guilder/adapter"
	ierr "github.com/kanekoshoyu/guilder/internal/errors"
	"github.com/kanekoshoyu/guilder/pkg/exception"
)

const (
	DefaultProbeTimeout    = 5 * time.Second
	DefaultConnectedWindow = 15 * time.Second
)

// Config controls probe bounds.
type Config struct {
	// ProbeTimeout caps a single Ping/ServerTime round trip.
	ProbeTimeout time.Duration
	// ConnectedWindow is how recently a probe must have succeeded for
	// Connected to report true.
	ConnectedWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.ConnectedWindow <= 0 {
		c.ConnectedWindow = DefaultConnectedWindow
	}
	return c
}

// Monitor derives a coarse connected state from probe outcomes. All state
// is atomics; it is safe to probe from multiple goroutines.
type Monitor struct {
	transport adapter.Transport
	cfg       Config

	lastGoodNano atomic.Int64
	skewMillis   atomic.Int64
	hasSkew      atomic.Bool
	stats        LatencyStats
}

func New(transport adapter.Transport, cfg Config) *Monitor {
	return &Monitor{
		transport: transport,
		cfg:       cfg.withDefaults(),
	}
}

// Ping issues one bounded round trip. Ordinary network failure and timeout
// both come back as false, never as a raised error and never as an
// unbounded wait.
func (m *Monitor) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	started := time.Now()
	res, err := m.transport.Probe(ctx)
	if err != nil || !res.OK {
		return false
	}

	m.observeSuccess(started, res.ServerTimeMillis)
	return true
}

// ServerTime returns the venue's reported epoch milliseconds. Failure to
// obtain it is a distinct error, never conflated with a false ping.
func (m *Monitor) ServerTime(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	started := time.Now()
	res, err := m.transport.Probe(ctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return 0, ierr.Wrap(exception.ErrTimeout, "probe server time")
	case err != nil:
		return 0, ierr.Wrapf(exception.ErrTransportUnavailable, "probe server time, cause: %v", err)
	case !res.OK || res.ServerTimeMillis == 0:
		return 0, ierr.Wrap(exception.ErrTransportUnavailable, "venue reported no server time")
	}

	m.observeSuccess(started, res.ServerTimeMillis)
	return res.ServerTimeMillis, nil
}

// ClockSkew is local minus venue time from the last successful time sync.
func (m *Monitor) ClockSkew() (time.Duration, bool) {
	if !m.hasSkew.Load() {
		return 0, false
	}
	return time.Duration(m.skewMillis.Load()) * time.Millisecond, true
}

// Connected reports whether any probe succeeded within the configured
// window, independent of any single probe call.
func (m *Monitor) Connected() bool {
	last := m.lastGoodNano.Load()
	if last == 0 {
		return false
	}
	return time.Since(time.Unix(0, last)) <= m.cfg.ConnectedWindow
}

// ProbeStats returns round-trip latency aggregates of successful probes.
func (m *Monitor) ProbeStats() LatencySnapshot {
	return m.stats.Snapshot()
}

func (m *Monitor) observeSuccess(started time.Time, serverMillis int64) {
	now := time.Now()
	m.lastGoodNano.Store(now.UnixNano())
	m.stats.Observe(now.Sub(started))

	if serverMillis > 0 {
		m.skewMillis.Store(now.UnixMilli() - serverMillis)
		m.hasSkew.Store(true)
	}
}
