package btcc

import (
	"github.com/shopspring/decimal"

	"github.com/kanekoshoyu/guilder/adapter"
)

// depthDiffer turns the venue's depth frames into per-level updates. The
// venue resends the whole book whenever Full is set, so the differ keeps
// the last seen levels and emits removals for prices that vanished.
type depthDiffer struct {
	bids map[string]decimal.Decimal
	asks map[string]decimal.Decimal
}

func newDepthDiffer() *depthDiffer {
	return &depthDiffer{
		bids: make(map[string]decimal.Decimal),
		asks: make(map[string]decimal.Decimal),
	}
}

func (d *depthDiffer) apply(symbol adapter.Symbol, frame depthFrame) []adapter.LevelUpdate {
	var updates []adapter.LevelUpdate
	updates = d.applySide(updates, symbol, adapter.SideBid, frame.Orderbook.Bids, frame.Full)
	updates = d.applySide(updates, symbol, adapter.SideAsk, frame.Orderbook.Asks, frame.Full)
	return updates
}

func (d *depthDiffer) applySide(updates []adapter.LevelUpdate, symbol adapter.Symbol, side adapter.Side, levels [][]decimal.Decimal, full bool) []adapter.LevelUpdate {
	seen := d.bids
	if side == adapter.SideAsk {
		seen = d.asks
	}

	incoming := make(map[string]decimal.Decimal, len(levels))
	for _, level := range levels {
		if len(level) < 2 {
			continue
		}
		incoming[level[0].String()] = level[1]
	}

	if full {
		for key := range seen {
			if _, ok := incoming[key]; ok {
				continue
			}
			price, err := decimal.NewFromString(key)
			if err != nil {
				continue
			}
			updates = append(updates, adapter.LevelUpdate{Symbol: symbol, Side: side, Price: price, Volume: decimal.Zero})
			delete(seen, key)
		}
	}

	for _, level := range levels {
		if len(level) < 2 {
			continue
		}

		price, volume := level[0], level[1]
		key := price.String()
		if volume.Sign() == 0 {
			delete(seen, key)
		} else {
			seen[key] = volume
		}
		updates = append(updates, adapter.LevelUpdate{Symbol: symbol, Side: side, Price: price, Volume: volume})
	}

	return updates
}
