// Package trades implements the order-to-trade segmentation algorithm and the
// trade metrics calculator: the pure core that turns a chronological stream of
// executed orders into completed round trips, open positions, and orphaned
// history, and scores each group with cost-basis and gain figures.
package trades

import (
	"fmt"
	"math"

	"tradeTracker/internal/domain"
	"tradeTracker/internal/ports"
)

// QuantityEpsilon absorbs floating-point drift from repeated fractional-share
// arithmetic: a running quantity within this distance of zero is treated as
// exactly zero.
const QuantityEpsilon = 1e-4

// Segmentation partitions one symbol's chronologically ordered orders.
type Segmentation struct {
	// Leading holds the orphaned/incomplete fragment: orders that cannot be
	// matched into a valid position history (missing prior context), plus any
	// orders flagged IncompleteTrade.
	Leading []*domain.Order
	// Completed holds each fully closed round trip, long round trips first,
	// then short round trips, each internally in chronological order.
	Completed [][]*domain.Order
	// Trailing holds the orders of the still-open position, if any.
	Trailing []*domain.Order
}

// Segment partitions orders (sorted ascending by ExecutedTime, all one
// symbol) into a leading orphaned fragment, zero or more completed round
// trips, and a trailing open fragment.
//
// Long orders (Buy/Sell) and short orders (SellShort/BuyToCover) are
// segmented independently; results list long groups before short groups as a
// fixed contract. Orders flagged IncompleteTrade never participate in trade
// formation and are returned at the front of Leading.
//
// In lenient mode (strict=false) an exit that exceeds available entry
// quantity pushes the unmatchable prefix into Leading; if no suffix of a
// sub-stream forms a valid history, the whole sub-stream is Leading. In
// strict mode the caller asserts the list is the complete history from a flat
// start, so the same condition is a data-integrity failure.
func Segment(orders []*domain.Order, strict bool) (*Segmentation, error) {
	seg := &Segmentation{}

	var long, short []*domain.Order
	for _, o := range orders {
		switch {
		case o.IncompleteTrade:
			seg.Leading = append(seg.Leading, o)
		case o.Action.IsLongTrade():
			long = append(long, o)
		default:
			short = append(short, o)
		}
	}

	longPart, err := segmentDirection(long, strict)
	if err != nil {
		return nil, err
	}
	shortPart, err := segmentDirection(short, strict)
	if err != nil {
		return nil, err
	}

	seg.Leading = append(seg.Leading, longPart.Leading...)
	seg.Leading = append(seg.Leading, shortPart.Leading...)
	seg.Completed = append(seg.Completed, longPart.Completed...)
	seg.Completed = append(seg.Completed, shortPart.Completed...)
	seg.Trailing = append(seg.Trailing, longPart.Trailing...)
	seg.Trailing = append(seg.Trailing, shortPart.Trailing...)
	return seg, nil
}

// signedQuantity maps an order to its effect on the sub-stream's running
// position size: entries add, exits subtract.
func signedQuantity(o *domain.Order) float64 {
	if o.Action.IsEntry() {
		return o.Quantity
	}
	return -o.Quantity
}

// snapZero collapses near-zero running quantities to exactly zero.
func snapZero(q float64) float64 {
	if math.Abs(q) < QuantityEpsilon {
		return 0
	}
	return q
}

// restartIndex returns the smallest index i such that walking the sub-stream
// from i to its end never takes the running quantity negative. Implemented as
// two linear passes (prefix sums, then suffix minima) instead of re-walking
// from every candidate index; the observable result is identical to the
// quadratic scan. Returns ok=false when no such index exists.
func restartIndex(orders []*domain.Order) (int, bool) {
	n := len(orders)
	if n == 0 {
		return 0, true
	}

	// prefix[k] = running signed quantity through index k, walking from 0.
	prefix := make([]float64, n)
	running := 0.0
	for k, o := range orders {
		running = snapZero(running + signedQuantity(o))
		prefix[k] = running
	}

	// suffixMin[i] = min of prefix[i..n-1].
	suffixMin := make([]float64, n)
	suffixMin[n-1] = prefix[n-1]
	for i := n - 2; i >= 0; i-- {
		suffixMin[i] = math.Min(prefix[i], suffixMin[i+1])
	}

	// A walk starting at i stays non-negative iff every prefix from i onward
	// clears the base level prefix[i-1].
	for i := 0; i < n; i++ {
		base := 0.0
		if i > 0 {
			base = prefix[i-1]
		}
		if suffixMin[i]-base >= -QuantityEpsilon {
			return i, true
		}
	}
	return 0, false
}

// segmentDirection segments one direction's sub-stream.
func segmentDirection(orders []*domain.Order, strict bool) (*Segmentation, error) {
	part := &Segmentation{}
	if len(orders) == 0 {
		return part, nil
	}

	start, ok := restartIndex(orders)
	if strict && (!ok || start != 0) {
		// The caller asserted there is no unknown prior history, so an
		// oversized exit is a genuine bug rather than missing context.
		return nil, fmt.Errorf("segmenting %s orders for %s: running quantity goes negative walking the complete history from index 0: %w",
			directionLabel(orders[0]), orders[0].Symbol, ports.ErrStrictSegmentation)
	}
	if !ok {
		part.Leading = append(part.Leading, orders...)
		return part, nil
	}
	part.Leading = append(part.Leading, orders[:start]...)

	running := 0.0
	groupStart := start
	for k := start; k < len(orders); k++ {
		running = snapZero(running + signedQuantity(orders[k]))
		if running == 0 {
			group := make([]*domain.Order, k+1-groupStart)
			copy(group, orders[groupStart:k+1])
			part.Completed = append(part.Completed, group)
			groupStart = k + 1
		}
	}
	if groupStart < len(orders) {
		part.Trailing = append(part.Trailing, orders[groupStart:]...)
	}
	return part, nil
}

func directionLabel(o *domain.Order) string {
	if o.Action.IsLongTrade() {
		return "long"
	}
	return "short"
}
