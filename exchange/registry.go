package exchange

import (
	"context"
	"sort"
	"sync"

	"github.com/kanekoshoyu/guilder/adapter"
	ierr "github.com/kanekoshoyu/guilder/internal/errors"
	"github.com/kanekoshoyu/guilder/monitor"
)

// Options carries everything a venue factory may need to build its
// transport. Venue-specific factories pick the fields they care about.
type Options struct {
	Endpoint   string
	WsEndpoint string
	Key        string
	Secret     string
	DevMode    bool

	// Symbols seeds venues that have no real catalog, e.g. paper trading.
	Symbols []adapter.Symbol

	Probe monitor.Config
}

// Factory builds the venue transport shim.
type Factory func(ctx context.Context, opt Options) (adapter.Transport, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a venue available to Open. Venue packages call this from
// init; registering the same name twice panics early, at wiring time.
func Register(name string, factory Factory) {
	if name == "" || factory == nil {
		panic("exchange: register with empty name or nil factory")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := registry[name]; ok {
		panic("exchange: venue registered twice: " + name)
	}
	registry[name] = factory
}

// Venues lists the registered venue names.
func Venues() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the named venue's transport and wraps it in an Adapter.
func Open(ctx context.Context, name string, opt Options) (*Adapter, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, ierr.New("unknown venue: " + name)
	}

	transport, err := factory(ctx, opt)
	if err != nil {
		return nil, ierr.Wrapf(err, "build venue transport, venue: %s", name)
	}

	return NewAdapter(transport, opt.Probe), nil
}
