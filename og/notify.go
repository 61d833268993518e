package og

import (
	"sync"
	"sync/atomic"

	"github.com/kanekoshoyu/guilder/adapter"
)

const subscriberBuffer = 64

// fanout delivers order snapshots to subscribers without ever blocking the
// reconciliation path. A subscriber that falls behind drops updates; the
// drop count is observable.
type fanout struct {
	mu     sync.Mutex
	subs   map[uint64]chan adapter.Order
	nextID uint64
	drops  atomic.Uint64
}

func newFanout() *fanout {
	return &fanout{subs: make(map[uint64]chan adapter.Order)}
}

func (f *fanout) subscribe() (<-chan adapter.Order, func()) {
	ch := make(chan adapter.Order, subscriberBuffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
		f.mu.Unlock()
	}

	return ch, cancel
}

func (f *fanout) publish(o adapter.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- o:
		default:
			f.drops.Add(1)
		}
	}
}

func (f *fanout) dropped() uint64 {
	return f.drops.Load()
}
