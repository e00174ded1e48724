package domain

import "time"

// Trade aggregates one contiguous run of orders for a symbol: a completed
// round trip (entry through full exit) or a still-open position. Fields with
// pointer types are explicitly unknown when nil (no exits yet, no quote
// available), which is a valid state, not an error.
//
// Invariants:
//   - Closed is true exactly when OpenQuantity is 0 and TotalGain is known.
//   - A long trade's OpenQuantity never goes negative, a short trade's never
//     goes positive; a violation indicates corrupt upstream data.
//   - Every attached order shares the trade's symbol, and the order sequence
//     begins with an entry action matching the trade's direction.
type Trade struct {
	TradeID   int64
	AccountID int64
	Symbol    string
	LongTrade bool // Direction, fixed for the trade's lifetime

	OpenDate  time.Time
	CloseDate *time.Time    // nil while open
	Duration  time.Duration // 0 while open
	Closed    bool

	OpenQuantity   float64  // Signed: >= 0 for long trades, <= 0 for short trades
	AvgEntryPrice  float64  // Weighted average entry price (0 if no entries)
	AvgExitPrice   *float64 // nil until the first exit
	BreakEvenPrice float64  // Per-unit price at which closing today realizes zero total gain

	RealizedGain   float64
	UnrealizedGain *float64 // nil without a quote
	TotalGain      *float64 // nil while open without a quote
	TotalGainPct   *float64 // nil unless TotalGain is known and LargestRisk > 0
	LargestRisk    float64  // Maximum capital ever committed to the trade

	TotalFees       float64
	TotalOrderCount int
	WinningTrade    *bool // nil unless TotalGain is known

	ManuallyAdjusted bool // True if any attached order was synthesized or corrected
}

// IsOpen reports whether the trade still carries open quantity.
func (t *Trade) IsOpen() bool {
	return !t.Closed
}
