package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// OrderAmountTolerance is the currency-unit slack allowed between a filled
// order's reported amount and ExecutedPrice * Quantity. Broker statements
// round the amount to the cent, so the two rarely agree exactly.
const OrderAmountTolerance = 1.00

// Order is a single executed broker event (a fill), either imported from the
// broker or synthesized by the reconciliation engine.
type Order struct {
	OrderID       int64  // Local identifier (assigned by the repository, 0 until persisted)
	TradeID       int64  // Owning trade, 0 while unattached
	AccountID     int64  // Local account the order belongs to
	BrokerOrderID string // Broker-assigned identifier; empty for synthetic orders

	Symbol        string
	Action        OrderAction
	ExecutedTime  time.Time
	Quantity      float64 // Filled quantity, always positive
	ExecutedPrice float64 // Average fill price, always positive
	OrderAmount   float64 // Broker-reported total amount for the fill
	Fees          float64 // Commissions and fees, never negative

	ManuallyAdjusted bool   // Set on synthetic/corrected orders
	Comment          string // Free-text audit trail for adjustments
	IncompleteTrade  bool   // Excluded from trade formation (purged/corrupt history)
}

// NewOrder validates and constructs a filled Order. Violations of the
// construction contract (non-positive quantity or price, negative fees,
// amount drifting from price*quantity beyond the tolerance) are input errors,
// never silently coerced.
func NewOrder(accountID int64, symbol string, action OrderAction, executedTime time.Time, quantity, executedPrice, orderAmount, fees float64) (*Order, error) {
	if symbol == "" {
		return nil, fmt.Errorf("order symbol must not be empty")
	}
	if !action.IsValid() {
		return nil, fmt.Errorf("unknown order action %q", action)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("order quantity must be positive, got %v", quantity)
	}
	if executedPrice <= 0 {
		return nil, fmt.Errorf("order executed price must be positive, got %v", executedPrice)
	}
	if fees < 0 {
		return nil, fmt.Errorf("order fees must not be negative, got %v", fees)
	}
	if diff := math.Abs(orderAmount - executedPrice*quantity); diff > OrderAmountTolerance {
		return nil, fmt.Errorf("order amount %.4f differs from price*quantity %.4f by %.4f (tolerance %.2f)",
			orderAmount, executedPrice*quantity, diff, OrderAmountTolerance)
	}
	return &Order{
		AccountID:     accountID,
		Symbol:        symbol,
		Action:        action,
		ExecutedTime:  executedTime,
		Quantity:      quantity,
		ExecutedPrice: executedPrice,
		OrderAmount:   orderAmount,
		Fees:          fees,
	}, nil
}

// AppendComment adds a note to the order's audit comment.
func (o *Order) AppendComment(note string) {
	if note == "" {
		return
	}
	if o.Comment == "" {
		o.Comment = note
		return
	}
	o.Comment = strings.TrimRight(o.Comment, " ") + "; " + note
}
