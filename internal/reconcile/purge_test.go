package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeTracker/internal/domain"
	"tradeTracker/internal/ports"
)

type purgeFixture struct {
	purger    *Purger
	logger    *fakeLogger
	orderRepo *fakeOrderRepo
	tradeRepo *fakeTradeRepo
}

func newPurgeFixture(t *testing.T) *purgeFixture {
	t.Helper()
	logger := &fakeLogger{}
	orderRepo := newFakeOrderRepo()
	tradeRepo := newFakeTradeRepo()
	purger, err := NewPurger(logger, orderRepo, tradeRepo)
	require.NoError(t, err)
	return &purgeFixture{purger: purger, logger: logger, orderRepo: orderRepo, tradeRepo: tradeRepo}
}

// seedTrade stores a trade with the given orders attached and returns the
// trade ID.
func (f *purgeFixture) seedTrade(t *testing.T, accountID int64, symbol string, brokerIDs ...string) int64 {
	t.Helper()
	ctx := context.Background()

	tradeID, err := f.tradeRepo.CreateTrade(ctx, &domain.Trade{
		AccountID: accountID,
		Symbol:    symbol,
		LongTrade: true,
		OpenDate:  time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	for i, brokerID := range brokerIDs {
		_, err := f.orderRepo.CreateOrder(ctx, &domain.Order{
			AccountID:     accountID,
			TradeID:       tradeID,
			BrokerOrderID: brokerID,
			Symbol:        symbol,
			Action:        domain.Buy,
			ExecutedTime:  time.Date(2024, 6, 3, 14, 30+i, 0, 0, time.UTC),
			Quantity:      10,
			ExecutedPrice: 100,
			OrderAmount:   1000,
		})
		require.NoError(t, err)
	}
	return tradeID
}

func TestPurge_DeletesTradeAndDetachesAllOrders(t *testing.T) {
	f := newPurgeFixture(t)
	tradeID := f.seedTrade(t, 1, "AAPL", "B-1", "B-2", "B-3")

	n, err := f.purger.Run(context.Background(), &PurgeList{
		Version: PurgeListVersion,
		Entries: []PurgeEntry{{AccountID: 1, BrokerOrderID: "B-2", Reason: "reverse split adjustment"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	gone, err := f.tradeRepo.FindTradeByID(context.Background(), 1, tradeID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Every sibling is detached, not just the named order.
	for _, brokerID := range []string{"B-1", "B-2", "B-3"} {
		order, err := f.orderRepo.FindOrderByBrokerID(context.Background(), 1, brokerID)
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, int64(0), order.TradeID)
		assert.True(t, order.IncompleteTrade)
		assert.True(t, order.ManuallyAdjusted)
		assert.Contains(t, order.Comment, "reverse split adjustment")
	}
}

func TestPurge_UnknownOrderIsSkipped(t *testing.T) {
	f := newPurgeFixture(t)
	f.seedTrade(t, 1, "AAPL", "B-1")

	n, err := f.purger.Run(context.Background(), &PurgeList{
		Version: PurgeListVersion,
		Entries: []PurgeEntry{{AccountID: 1, BrokerOrderID: "missing", Reason: "bad data"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NotEmpty(t, f.logger.warnMsgs)
}

func TestPurge_SecondRunIsIdempotent(t *testing.T) {
	f := newPurgeFixture(t)
	f.seedTrade(t, 1, "AAPL", "B-1", "B-2")

	list := &PurgeList{
		Version: PurgeListVersion,
		Entries: []PurgeEntry{{AccountID: 1, BrokerOrderID: "B-1", Reason: "duplicate fill"}},
	}
	n, err := f.purger.Run(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.purger.Run(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	order, err := f.orderRepo.FindOrderByBrokerID(context.Background(), 1, "B-1")
	require.NoError(t, err)
	require.NotNil(t, order)
	// The detachment comment is not appended a second time.
	assert.Equal(t, "Detached from deleted trade 1: duplicate fill", order.Comment)
}

func TestPurge_MultipleEntriesAcrossTrades(t *testing.T) {
	f := newPurgeFixture(t)
	f.seedTrade(t, 1, "AAPL", "B-1")
	f.seedTrade(t, 1, "TSLA", "B-2")
	f.seedTrade(t, 1, "MSFT", "B-3")

	n, err := f.purger.Run(context.Background(), &PurgeList{
		Version: PurgeListVersion,
		Entries: []PurgeEntry{
			{AccountID: 1, BrokerOrderID: "B-1", Reason: "symbol change"},
			{AccountID: 1, BrokerOrderID: "B-3", Reason: "broker correction"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remaining, err := f.tradeRepo.FindTradesBySymbol(context.Background(), 1, "TSLA")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestPurge_RejectsUnsupportedVersion(t *testing.T) {
	f := newPurgeFixture(t)

	_, err := f.purger.Run(context.Background(), &PurgeList{Version: 99})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)

	_, err = f.purger.Run(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}
