package analytics

import (
	"math"
	"sort"
	"time"

	"tradeTracker/internal/domain"
)

// AccountSummary holds aggregate performance metrics for one account's trades
type AccountSummary struct {
	// Basic Metrics
	TotalTrades   int
	ClosedTrades  int
	OpenTrades    int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	RealizedGain  float64
	TotalFees     float64

	// Advanced Metrics
	AverageWin           float64
	AverageLoss          float64
	ProfitFactor         float64
	Expectancy           float64
	LargestRisk          float64
	AverageTradeDuration time.Duration
	MonthlyGains         map[string]float64
	BySymbol             map[string]*SymbolSummary
}

// SymbolSummary holds per-symbol aggregates within an account summary
type SymbolSummary struct {
	Symbol       string
	ClosedTrades int
	RealizedGain float64
	WinRate      float64
	winning      int
}

// Summarize calculates aggregate metrics from an account's trades. Open
// trades contribute only to the open count; every realized metric comes from
// closed trades with a known total gain.
func Summarize(trades []*domain.Trade) *AccountSummary {
	summary := &AccountSummary{
		MonthlyGains: make(map[string]float64),
		BySymbol:     make(map[string]*SymbolSummary),
	}

	if len(trades) == 0 {
		return summary
	}

	sort.Slice(trades, func(i, j int) bool {
		return trades[i].OpenDate.Before(trades[j].OpenDate)
	})

	var totalDuration time.Duration

	for _, trade := range trades {
		summary.TotalTrades++
		summary.TotalFees += trade.TotalFees
		if trade.LargestRisk > summary.LargestRisk {
			summary.LargestRisk = trade.LargestRisk
		}

		if trade.IsOpen() {
			summary.OpenTrades++
			continue
		}
		if trade.TotalGain == nil {
			continue
		}

		gain := *trade.TotalGain
		summary.ClosedTrades++
		summary.RealizedGain += gain
		totalDuration += trade.Duration

		if gain >= 0 {
			summary.WinningTrades++
			summary.AverageWin = (summary.AverageWin*float64(summary.WinningTrades-1) + gain) / float64(summary.WinningTrades)
		} else {
			summary.LosingTrades++
			summary.AverageLoss = (summary.AverageLoss*float64(summary.LosingTrades-1) + gain) / float64(summary.LosingTrades)
		}

		if trade.CloseDate != nil {
			monthKey := trade.CloseDate.Format("2006-01")
			summary.MonthlyGains[monthKey] += gain
		}

		sym := summary.BySymbol[trade.Symbol]
		if sym == nil {
			sym = &SymbolSummary{Symbol: trade.Symbol}
			summary.BySymbol[trade.Symbol] = sym
		}
		sym.ClosedTrades++
		sym.RealizedGain += gain
		if gain >= 0 {
			sym.winning++
		}
	}

	if summary.ClosedTrades > 0 {
		summary.WinRate = float64(summary.WinningTrades) / float64(summary.ClosedTrades)
		summary.AverageTradeDuration = totalDuration / time.Duration(summary.ClosedTrades)
		if summary.AverageLoss != 0 {
			summary.ProfitFactor = summary.AverageWin / -summary.AverageLoss
		}
		summary.Expectancy = (summary.WinRate * summary.AverageWin) + ((1 - summary.WinRate) * summary.AverageLoss)
		for _, sym := range summary.BySymbol {
			sym.WinRate = float64(sym.winning) / float64(sym.ClosedTrades)
		}
	}

	return summary
}

// GetMonthlyGains returns the monthly realized gains as a sorted slice
func (s *AccountSummary) GetMonthlyGains() []MonthlyGain {
	gains := make([]MonthlyGain, 0, len(s.MonthlyGains))
	for month, gain := range s.MonthlyGains {
		date, _ := time.Parse("2006-01", month)
		gains = append(gains, MonthlyGain{
			Month: date,
			Gain:  gain,
		})
	}
	sort.Slice(gains, func(i, j int) bool {
		return gains[i].Month.Before(gains[j].Month)
	})
	return gains
}

// TopSymbols returns symbol summaries ordered by realized gain descending.
func (s *AccountSummary) TopSymbols() []*SymbolSummary {
	out := make([]*SymbolSummary, 0, len(s.BySymbol))
	for _, sym := range s.BySymbol {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RealizedGain != out[j].RealizedGain {
			return out[i].RealizedGain > out[j].RealizedGain
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// MonthlyGain represents one calendar month's realized gain
type MonthlyGain struct {
	Month time.Time
	Gain  float64
}

// RiskAdjustedReturn relates total realized gain to the largest capital
// commitment seen across the account's trades.
func (s *AccountSummary) RiskAdjustedReturn() float64 {
	if s.LargestRisk <= 0 {
		return 0
	}
	return s.RealizedGain / math.Abs(s.LargestRisk)
}
