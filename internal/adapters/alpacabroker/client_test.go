package alpacabroker

import (
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeTracker/internal/domain"
)

func filledOrder(side alpaca.Side, qty, price float64) *alpaca.Order {
	filledAt := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	avg := decimal.NewFromFloat(price)
	return &alpaca.Order{
		ID:             "ord-1",
		Symbol:         "AAPL",
		Side:           side,
		FilledQty:      decimal.NewFromFloat(qty),
		FilledAvgPrice: &avg,
		FilledAt:       &filledAt,
	}
}

func TestMapOrder_FilledBuy(t *testing.T) {
	order, err := mapOrder(1, filledOrder(alpaca.Buy, 100, 10.5))
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, domain.Buy, order.Action)
	assert.Equal(t, "ord-1", order.BrokerOrderID)
	assert.Equal(t, 100.0, order.Quantity)
	assert.Equal(t, 10.5, order.ExecutedPrice)
	assert.InDelta(t, 1050.0, order.OrderAmount, 0.0001)
}

func TestMapOrder_FilledSell(t *testing.T) {
	order, err := mapOrder(1, filledOrder(alpaca.Sell, 100, 10.5))
	require.NoError(t, err)
	require.NotNil(t, order)
	// Short-sale resolution happens at import time, not here.
	assert.Equal(t, domain.Sell, order.Action)
}

func TestMapOrder_UnfilledSkipped(t *testing.T) {
	ao := filledOrder(alpaca.Buy, 100, 10.5)
	ao.FilledAt = nil
	order, err := mapOrder(1, ao)
	require.NoError(t, err)
	assert.Nil(t, order)

	ao = filledOrder(alpaca.Buy, 0, 10.5)
	order, err = mapOrder(1, ao)
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestMapOrder_MissingFillPriceRejected(t *testing.T) {
	ao := filledOrder(alpaca.Buy, 100, 10.5)
	ao.FilledAvgPrice = nil
	_, err := mapOrder(1, ao)
	assert.Error(t, err)
}
