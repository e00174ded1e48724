package trades

import (
	"context"
	"fmt"
	"math"

	"tradeTracker/internal/domain"
	"tradeTracker/internal/ports"
)

// Calculator builds Trade aggregates from a round trip's or an open group's
// orders. It is a pure function of its inputs apart from warning logs, so one
// instance is safe to share across accounts and symbols.
type Calculator struct {
	logger ports.Logger
}

// NewCalculator creates a trade metrics calculator.
func NewCalculator(logger ports.Logger) (*Calculator, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for trade calculator")
	}
	return &Calculator{logger: logger}, nil
}

// round4 normalizes monetary and quantity outputs to 4 decimal places.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// CreateOpen builds a Trade from the orders of a still-open group, optionally
// valued against a current quote. Fails if the group nets out to zero open
// quantity; that group belongs to CreateClosed.
func (c *Calculator) CreateOpen(orders []*domain.Order, accountID int64, quote *domain.Quote) (*domain.Trade, error) {
	trade, err := c.fromOrders(orders, accountID, quote)
	if err != nil {
		return nil, err
	}
	if trade.OpenQuantity == 0 {
		return nil, fmt.Errorf("open trade for %s nets to zero quantity over %d orders: %w",
			trade.Symbol, len(orders), ports.ErrInvalidRequest)
	}
	return trade, nil
}

// CreateClosed builds a Trade from the orders of one completed round trip.
// Requires at least two orders (an entry and an exit), a zero net open
// quantity, and a determinable total gain. CloseDate and Duration come from
// the final order's timestamp; a final timestamp before the first is logged
// as a warning but tolerated, since broker exports occasionally carry
// out-of-order clock data.
func (c *Calculator) CreateClosed(orders []*domain.Order, accountID int64) (*domain.Trade, error) {
	if len(orders) < 2 {
		return nil, fmt.Errorf("closed trade requires at least 2 orders, got %d: %w", len(orders), ports.ErrInvalidRequest)
	}
	trade, err := c.fromOrders(orders, accountID, nil)
	if err != nil {
		return nil, err
	}
	if trade.OpenQuantity != 0 {
		return nil, fmt.Errorf("closed trade for %s still carries open quantity %.4f: %w",
			trade.Symbol, trade.OpenQuantity, ports.ErrInvalidRequest)
	}
	if trade.TotalGain == nil {
		return nil, fmt.Errorf("closed trade for %s has no determinable total gain: %w",
			trade.Symbol, ports.ErrInvalidRequest)
	}

	first := orders[0].ExecutedTime
	last := orders[len(orders)-1].ExecutedTime
	if last.Before(first) {
		c.logger.Warn(context.Background(), "Closing order precedes opening order", map[string]interface{}{
			"symbol":    trade.Symbol,
			"openDate":  first,
			"closeDate": last,
		})
	}
	closeDate := last
	trade.CloseDate = &closeDate
	trade.Duration = last.Sub(first)
	trade.Closed = true
	return trade, nil
}

// fromOrders is the single left-to-right pass shared by CreateOpen and
// CreateClosed. orders must be one round trip or one open trailing group,
// chronologically ordered, all for the same symbol and direction.
func (c *Calculator) fromOrders(orders []*domain.Order, accountID int64, quote *domain.Quote) (*domain.Trade, error) {
	if len(orders) == 0 {
		return nil, fmt.Errorf("cannot build a trade: %w", ports.ErrEmptyOrderList)
	}

	first := orders[0]
	if !first.Action.IsEntry() {
		return nil, fmt.Errorf("trade for %s begins with exit action %s: %w",
			first.Symbol, first.Action, ports.ErrDataIntegrity)
	}
	long := first.Action.IsLongTrade()
	direction := 1.0
	if !long {
		direction = -1.0
	}
	if quote != nil && quote.Symbol != first.Symbol {
		return nil, fmt.Errorf("quote symbol %s against trade symbol %s: %w",
			quote.Symbol, first.Symbol, ports.ErrSymbolMismatch)
	}

	var (
		enteredQty, enteredCost  float64
		exitedQty, exitProceeds  float64
		tradeCost, largestRisk   float64
		openQty, totalFees       float64
		manuallyAdjusted         bool
	)

	for _, o := range orders {
		if o.Symbol != first.Symbol {
			return nil, fmt.Errorf("order %s carries symbol %s: %w", o.BrokerOrderID, o.Symbol, ports.ErrSymbolMismatch)
		}
		if o.Action.IsLongTrade() != long {
			return nil, fmt.Errorf("order %s action %s does not match %s trade direction: %w",
				o.BrokerOrderID, o.Action, first.Symbol, ports.ErrDataIntegrity)
		}

		if o.Action.IsEntry() {
			enteredQty += o.Quantity
			enteredCost += o.Quantity * o.ExecutedPrice
			tradeCost += math.Abs(o.OrderAmount)
			openQty += o.Quantity * direction
		} else {
			exitedQty += o.Quantity
			exitProceeds += o.Quantity * o.ExecutedPrice
			tradeCost -= math.Abs(o.OrderAmount)
			openQty -= o.Quantity * direction
		}
		openQty = snapZero(openQty)
		if largestRisk < tradeCost {
			largestRisk = tradeCost
		}
		totalFees += o.Fees
		manuallyAdjusted = manuallyAdjusted || o.ManuallyAdjusted

		// Sign invariant: a long trade can never be net short, a short trade
		// never net long. Either is corrupt data, not a state to tolerate.
		if long && openQty < 0 {
			return nil, fmt.Errorf("long trade for %s reaches negative open quantity %.4f: %w",
				first.Symbol, openQty, ports.ErrDataIntegrity)
		}
		if !long && openQty > 0 {
			return nil, fmt.Errorf("short trade for %s reaches positive open quantity %.4f: %w",
				first.Symbol, openQty, ports.ErrDataIntegrity)
		}
	}

	trade := &domain.Trade{
		AccountID:        accountID,
		Symbol:           first.Symbol,
		LongTrade:        long,
		OpenDate:         first.ExecutedTime,
		OpenQuantity:     round4(openQty),
		LargestRisk:      round4(largestRisk),
		TotalFees:        round4(totalFees),
		TotalOrderCount:  len(orders),
		ManuallyAdjusted: manuallyAdjusted,
	}

	avgEntry := 0.0
	if enteredQty > 0 {
		avgEntry = enteredCost / enteredQty
	}
	trade.AvgEntryPrice = round4(avgEntry)

	if exitedQty > 0 {
		avgExit := exitProceeds / exitedQty
		rounded := round4(avgExit)
		trade.AvgExitPrice = &rounded
		trade.RealizedGain = round4(exitedQty * (avgExit - avgEntry) * direction)
	}

	if trade.OpenQuantity == 0 {
		// Closed: total gain straight from the aggregate flows, which avoids
		// compounding the rounding of the two average prices.
		total := round4((exitProceeds - enteredCost) * direction)
		trade.TotalGain = &total
	} else if quote != nil {
		unrealized := round4(math.Abs(openQty) * (quote.Price - avgEntry) * direction)
		trade.UnrealizedGain = &unrealized
		total := round4(trade.RealizedGain + unrealized)
		trade.TotalGain = &total
	}

	if trade.OpenQuantity != 0 {
		breakEven := tradeCost / math.Abs(openQty)
		if long && breakEven < 0 {
			// House money: prior exits returned more capital than remains
			// committed. Shorts are never clamped; over-covering is already
			// blocked by the sign invariant.
			breakEven = 0
		}
		trade.BreakEvenPrice = round4(breakEven)
	} else {
		trade.BreakEvenPrice = trade.AvgEntryPrice
	}

	if trade.TotalGain != nil {
		winning := *trade.TotalGain >= 0
		trade.WinningTrade = &winning
		if trade.LargestRisk > 0 {
			pct := round4(*trade.TotalGain / trade.LargestRisk)
			trade.TotalGainPct = &pct
		}
	}

	return trade, nil
}
