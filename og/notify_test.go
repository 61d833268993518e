package og

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanekoshoyu/guilder/adapter"
)

func TestFanoutDropsWhenSubscriberStalls(t *testing.T) {
	f := newFanout()
	ch, cancel := f.subscribe()
	defer cancel()

	const overflow = 5
	for i := 0; i < subscriberBuffer+overflow; i++ {
		f.publish(adapter.Order{Cloid: adapter.Cloid(i + 1)})
	}

	assert.Equal(t, uint64(overflow), f.dropped())

	// the buffered prefix is intact and in order
	for i := 0; i < subscriberBuffer; i++ {
		order := <-ch
		require.Equal(t, adapter.Cloid(i+1), order.Cloid)
	}
	select {
	case order := <-ch:
		t.Fatalf("unexpected buffered order: %d", order.Cloid)
	default:
	}
}

func TestFanoutCancelIsIdempotent(t *testing.T) {
	f := newFanout()
	ch, cancel := f.subscribe()

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// publishing after cancel reaches nobody and drops nothing
	f.publish(adapter.Order{Cloid: 1})
	assert.Zero(t, f.dropped())
}
