package trades

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeTracker/internal/domain"
	"tradeTracker/internal/ports"
)

// mockLogger implements ports.Logger for tests.
type mockLogger struct {
	warnMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestCalculator(t *testing.T) (*Calculator, *mockLogger) {
	t.Helper()
	log := &mockLogger{}
	calc, err := NewCalculator(log)
	require.NoError(t, err)
	return calc, log
}

func TestCreateClosed_LongRoundTrip(t *testing.T) {
	calc, _ := newTestCalculator(t)
	orders := []*domain.Order{
		testOrder(t, domain.Buy, 100, 10, 0),
		testOrder(t, domain.Sell, 100, 15, 30),
	}

	trade, err := calc.CreateClosed(orders, 1)
	require.NoError(t, err)

	assert.True(t, trade.Closed)
	assert.True(t, trade.LongTrade)
	assert.Equal(t, 0.0, trade.OpenQuantity)
	assert.Equal(t, 10.0, trade.AvgEntryPrice)
	require.NotNil(t, trade.AvgExitPrice)
	assert.Equal(t, 15.0, *trade.AvgExitPrice)
	assert.Equal(t, 500.0, trade.RealizedGain)
	require.NotNil(t, trade.TotalGain)
	assert.Equal(t, 500.0, *trade.TotalGain)
	require.NotNil(t, trade.WinningTrade)
	assert.True(t, *trade.WinningTrade)
	assert.Equal(t, 1000.0, trade.LargestRisk)
	require.NotNil(t, trade.TotalGainPct)
	assert.Equal(t, 0.5, *trade.TotalGainPct)
	assert.Equal(t, 10.0, trade.BreakEvenPrice) // closed: break-even is avg entry
	require.NotNil(t, trade.CloseDate)
	assert.Equal(t, 30*time.Minute, trade.Duration)
	assert.Equal(t, 2, trade.TotalOrderCount)
}

func TestCreateClosed_ShortRoundTrip(t *testing.T) {
	calc, _ := newTestCalculator(t)
	orders := []*domain.Order{
		testOrder(t, domain.SellShort, 50, 100, 0),
		testOrder(t, domain.BuyToCover, 50, 90, 10),
	}

	trade, err := calc.CreateClosed(orders, 1)
	require.NoError(t, err)

	assert.False(t, trade.LongTrade)
	assert.Equal(t, 500.0, trade.RealizedGain) // 50 * (100 - 90)
	require.NotNil(t, trade.TotalGain)
	assert.Equal(t, 500.0, *trade.TotalGain)
	assert.Equal(t, 5000.0, trade.LargestRisk)
}

func TestCreateOpen_HouseMoney(t *testing.T) {
	// A profitable partial exit returns more capital than remains committed:
	// break-even collapses to zero (clamped for long trades).
	calc, _ := newTestCalculator(t)
	orders := []*domain.Order{
		testOrder(t, domain.Buy, 100, 10, 0),
		testOrder(t, domain.Sell, 50, 50, 5),
	}

	trade, err := calc.CreateOpen(orders, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, 50.0, trade.OpenQuantity)
	assert.Equal(t, 0.0, trade.BreakEvenPrice)
	assert.Equal(t, 2000.0, trade.RealizedGain) // 50 * (50 - 10)
	assert.Nil(t, trade.UnrealizedGain)
	assert.Nil(t, trade.TotalGain)
	assert.Nil(t, trade.WinningTrade)
}

func TestCreateOpen_BreakEvenAfterPartialExit(t *testing.T) {
	// Exit at a profit but below house-money territory: the remaining 50
	// shares carry 1000 - 300 = 700 of committed capital.
	calc, _ := newTestCalculator(t)
	orders := []*domain.Order{
		testOrder(t, domain.Buy, 100, 10, 0),
		testOrder(t, domain.Sell, 50, 6, 5),
	}

	trade, err := calc.CreateOpen(orders, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 14.0, trade.BreakEvenPrice)
	assert.Equal(t, -200.0, trade.RealizedGain)
	assert.Equal(t, 10.0, trade.AvgEntryPrice)
}

func TestCreateOpen_WithQuote(t *testing.T) {
	calc, _ := newTestCalculator(t)
	orders := []*domain.Order{
		testOrder(t, domain.Buy, 100, 10, 0),
	}
	quote := &domain.Quote{Symbol: "AAPL", Price: 12, LastUpdated: baseTime}

	trade, err := calc.CreateOpen(orders, 1, quote)
	require.NoError(t, err)

	require.NotNil(t, trade.UnrealizedGain)
	assert.Equal(t, 200.0, *trade.UnrealizedGain)
	require.NotNil(t, trade.TotalGain)
	assert.Equal(t, 200.0, *trade.TotalGain)
	require.NotNil(t, trade.WinningTrade)
	assert.True(t, *trade.WinningTrade)
	assert.Nil(t, trade.AvgExitPrice)
	assert.Equal(t, 0.0, trade.RealizedGain)
}

func TestCreateOpen_ShortWithQuote(t *testing.T) {
	calc, _ := newTestCalculator(t)
	orders := []*domain.Order{
		testOrder(t, domain.SellShort, 50, 100, 0),
	}
	quote := &domain.Quote{Symbol: "AAPL", Price: 110, LastUpdated: baseTime}

	trade, err := calc.CreateOpen(orders, 1, quote)
	require.NoError(t, err)

	assert.Equal(t, -50.0, trade.OpenQuantity)
	require.NotNil(t, trade.UnrealizedGain)
	assert.Equal(t, -500.0, *trade.UnrealizedGain) // price moved against the short
	require.NotNil(t, trade.WinningTrade)
	assert.False(t, *trade.WinningTrade)
	assert.Equal(t, 100.0, trade.BreakEvenPrice)
}

func TestCreateOpen_QuoteSymbolMismatch(t *testing.T) {
	calc, _ := newTestCalculator(t)
	orders := []*domain.Order{testOrder(t, domain.Buy, 100, 10, 0)}
	quote := &domain.Quote{Symbol: "MSFT", Price: 12}

	_, err := calc.CreateOpen(orders, 1, quote)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrSymbolMismatch))
}

func TestFromOrders_ContractViolations(t *testing.T) {
	calc, _ := newTestCalculator(t)

	t.Run("empty order list", func(t *testing.T) {
		_, err := calc.CreateOpen(nil, 1, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ports.ErrEmptyOrderList))
	})

	t.Run("begins with exit", func(t *testing.T) {
		_, err := calc.CreateOpen([]*domain.Order{testOrder(t, domain.Sell, 10, 10, 0)}, 1, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ports.ErrDataIntegrity))
	})

	t.Run("mixed symbols", func(t *testing.T) {
		other, err := domain.NewOrder(1, "MSFT", domain.Sell, baseTime.Add(time.Minute), 10, 10, 100, 0)
		require.NoError(t, err)
		_, err = calc.CreateClosed([]*domain.Order{testOrder(t, domain.Buy, 10, 10, 0), other}, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ports.ErrSymbolMismatch))
	})

	t.Run("oversized exit breaks sign invariant", func(t *testing.T) {
		orders := []*domain.Order{
			testOrder(t, domain.Buy, 10, 10, 0),
			testOrder(t, domain.Sell, 20, 10, 1),
		}
		_, err := calc.CreateClosed(orders, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ports.ErrDataIntegrity))
	})

	t.Run("closed requires two orders", func(t *testing.T) {
		_, err := calc.CreateClosed([]*domain.Order{testOrder(t, domain.Buy, 10, 10, 0)}, 1)
		require.Error(t, err)
	})

	t.Run("open rejects flat group", func(t *testing.T) {
		orders := []*domain.Order{
			testOrder(t, domain.Buy, 10, 10, 0),
			testOrder(t, domain.Sell, 10, 11, 1),
		}
		_, err := calc.CreateOpen(orders, 1, nil)
		require.Error(t, err)
	})
}

func TestCreateClosed_OutOfOrderTimestampWarns(t *testing.T) {
	calc, log := newTestCalculator(t)
	entry := testOrder(t, domain.Buy, 10, 10, 10)
	exit := testOrder(t, domain.Sell, 10, 12, 0) // precedes the entry

	trade, err := calc.CreateClosed([]*domain.Order{entry, exit}, 1)
	require.NoError(t, err)
	assert.True(t, trade.Closed)
	assert.NotEmpty(t, log.warnMsgs)
}

func TestCreateClosed_FeesAndScaledEntries(t *testing.T) {
	calc, _ := newTestCalculator(t)
	o1, err := domain.NewOrder(1, "AAPL", domain.Buy, baseTime, 100, 10, 1000.50, 1.25)
	require.NoError(t, err)
	o2, err := domain.NewOrder(1, "AAPL", domain.Buy, baseTime.Add(time.Minute), 100, 12, 1200, 1.25)
	require.NoError(t, err)
	o3, err := domain.NewOrder(1, "AAPL", domain.Sell, baseTime.Add(2*time.Minute), 200, 13, 2600, 2.50)
	require.NoError(t, err)

	trade, err := calc.CreateClosed([]*domain.Order{o1, o2, o3}, 1)
	require.NoError(t, err)

	assert.Equal(t, 11.0, trade.AvgEntryPrice) // (1000 + 1200) / 200
	require.NotNil(t, trade.AvgExitPrice)
	assert.Equal(t, 13.0, *trade.AvgExitPrice)
	assert.Equal(t, 400.0, trade.RealizedGain)
	assert.Equal(t, 5.0, trade.TotalFees)
	assert.Equal(t, 2200.50, trade.LargestRisk) // both entries committed before any exit
	assert.Equal(t, 3, trade.TotalOrderCount)
}

func TestCreateClosed_ManualAdjustmentPropagates(t *testing.T) {
	calc, _ := newTestCalculator(t)
	entry := testOrder(t, domain.Buy, 10, 10, 0)
	exit := testOrder(t, domain.Sell, 10, 11, 1)
	exit.ManuallyAdjusted = true

	trade, err := calc.CreateClosed([]*domain.Order{entry, exit}, 1)
	require.NoError(t, err)
	assert.True(t, trade.ManuallyAdjusted)
}
