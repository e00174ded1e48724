package trades

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeTracker/internal/domain"
	"tradeTracker/internal/ports"
)

var baseTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// testOrder builds a valid filled order n minutes after baseTime.
func testOrder(t *testing.T, action domain.OrderAction, qty, price float64, minutes int) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder(1, "AAPL", action, baseTime.Add(time.Duration(minutes)*time.Minute), qty, price, qty*price, 0)
	require.NoError(t, err)
	return o
}

func TestSegment_SingleRoundTrip(t *testing.T) {
	orders := []*domain.Order{
		testOrder(t, domain.Buy, 100, 10, 0),
		testOrder(t, domain.Sell, 100, 15, 1),
	}

	seg, err := Segment(orders, false)
	require.NoError(t, err)
	assert.Empty(t, seg.Leading)
	assert.Empty(t, seg.Trailing)
	require.Len(t, seg.Completed, 1)
	assert.Equal(t, orders, seg.Completed[0])
}

func TestSegment_PartialExitLeavesTrailing(t *testing.T) {
	orders := []*domain.Order{
		testOrder(t, domain.Buy, 100, 10, 0),
		testOrder(t, domain.Sell, 40, 12, 1),
	}

	seg, err := Segment(orders, false)
	require.NoError(t, err)
	assert.Empty(t, seg.Leading)
	assert.Empty(t, seg.Completed)
	assert.Equal(t, orders, seg.Trailing)
}

func TestSegment_OrphanedPrefixBeforeValidRestart(t *testing.T) {
	// The leading Sell has no matching entry; the history only becomes valid
	// from index 1.
	orders := []*domain.Order{
		testOrder(t, domain.Sell, 10, 11, 0),
		testOrder(t, domain.Buy, 10, 10, 1),
		testOrder(t, domain.Sell, 10, 12, 2),
	}

	seg, err := Segment(orders, false)
	require.NoError(t, err)
	assert.Equal(t, orders[:1], seg.Leading)
	require.Len(t, seg.Completed, 1)
	assert.Equal(t, orders[1:], seg.Completed[0])
	assert.Empty(t, seg.Trailing)
}

func TestSegment_OversizedExit(t *testing.T) {
	// Buy 10, Sell 10, Buy 10, Sell 20: no suffix of this stream forms a
	// valid history, so lenient mode classifies everything as leading while
	// strict mode fails.
	orders := []*domain.Order{
		testOrder(t, domain.Buy, 10, 10, 0),
		testOrder(t, domain.Sell, 10, 11, 1),
		testOrder(t, domain.Buy, 10, 10, 2),
		testOrder(t, domain.Sell, 20, 11, 3),
	}

	seg, err := Segment(orders, false)
	require.NoError(t, err)
	assert.Equal(t, orders, seg.Leading)
	assert.Empty(t, seg.Completed)
	assert.Empty(t, seg.Trailing)

	_, err = Segment(orders, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrStrictSegmentation))
}

func TestSegment_EmbeddedFakeOut(t *testing.T) {
	// Sell 10, Buy 10, Sell 10, Sell 10: every candidate start index
	// eventually dips negative, so there is no valid restart at all.
	orders := []*domain.Order{
		testOrder(t, domain.Sell, 10, 10, 0),
		testOrder(t, domain.Buy, 10, 10, 1),
		testOrder(t, domain.Sell, 10, 10, 2),
		testOrder(t, domain.Sell, 10, 10, 3),
	}

	seg, err := Segment(orders, false)
	require.NoError(t, err)
	assert.Equal(t, orders, seg.Leading)
	assert.Empty(t, seg.Completed)
	assert.Empty(t, seg.Trailing)
}

func TestSegment_LongResultsBeforeShort(t *testing.T) {
	// Interleaved long and short activity: the short round trip completes
	// first in time but must still be listed after the long one.
	shortEntry := testOrder(t, domain.SellShort, 50, 100, 0)
	longEntry := testOrder(t, domain.Buy, 100, 10, 1)
	shortExit := testOrder(t, domain.BuyToCover, 50, 90, 2)
	longExit := testOrder(t, domain.Sell, 100, 15, 3)
	orders := []*domain.Order{shortEntry, longEntry, shortExit, longExit}

	seg, err := Segment(orders, false)
	require.NoError(t, err)
	assert.Empty(t, seg.Leading)
	assert.Empty(t, seg.Trailing)
	require.Len(t, seg.Completed, 2)
	assert.Equal(t, []*domain.Order{longEntry, longExit}, seg.Completed[0])
	assert.Equal(t, []*domain.Order{shortEntry, shortExit}, seg.Completed[1])
}

func TestSegment_MultipleRoundTripsAndTrailing(t *testing.T) {
	orders := []*domain.Order{
		testOrder(t, domain.Buy, 10, 10, 0),
		testOrder(t, domain.Sell, 10, 11, 1),
		testOrder(t, domain.Buy, 20, 9, 2),
		testOrder(t, domain.Sell, 20, 12, 3),
		testOrder(t, domain.Buy, 5, 13, 4),
	}

	seg, err := Segment(orders, false)
	require.NoError(t, err)
	assert.Empty(t, seg.Leading)
	require.Len(t, seg.Completed, 2)
	assert.Equal(t, orders[0:2], seg.Completed[0])
	assert.Equal(t, orders[2:4], seg.Completed[1])
	assert.Equal(t, orders[4:5], seg.Trailing)
}

func TestSegment_FractionalShareDrift(t *testing.T) {
	// Three fractional exits that only sum back to the entry quantity within
	// floating-point noise must still close the round trip.
	orders := []*domain.Order{
		testOrder(t, domain.Buy, 0.3, 10, 0),
		testOrder(t, domain.Sell, 0.1, 10, 1),
		testOrder(t, domain.Sell, 0.1, 10, 2),
		testOrder(t, domain.Sell, 0.1, 10, 3),
	}

	seg, err := Segment(orders, false)
	require.NoError(t, err)
	require.Len(t, seg.Completed, 1)
	assert.Empty(t, seg.Trailing)
}

func TestSegment_IncompleteOrdersExcluded(t *testing.T) {
	flagged := testOrder(t, domain.Sell, 500, 10, 0)
	flagged.IncompleteTrade = true
	entry := testOrder(t, domain.Buy, 100, 10, 1)
	exit := testOrder(t, domain.Sell, 100, 15, 2)
	orders := []*domain.Order{flagged, entry, exit}

	// Even in strict mode the flagged sell never participates, so the walk
	// from index 0 stays valid.
	seg, err := Segment(orders, true)
	require.NoError(t, err)
	assert.Equal(t, []*domain.Order{flagged}, seg.Leading)
	require.Len(t, seg.Completed, 1)
	assert.Equal(t, []*domain.Order{entry, exit}, seg.Completed[0])
}

func TestSegment_Idempotence(t *testing.T) {
	orders := []*domain.Order{
		testOrder(t, domain.Sell, 10, 11, 0), // orphan
		testOrder(t, domain.Buy, 10, 10, 1),
		testOrder(t, domain.Sell, 10, 12, 2),
		testOrder(t, domain.SellShort, 5, 50, 3),
		testOrder(t, domain.BuyToCover, 5, 45, 4),
		testOrder(t, domain.Buy, 7, 10, 5), // trailing open
	}

	first, err := Segment(orders, false)
	require.NoError(t, err)

	flattened := append([]*domain.Order{}, first.Leading...)
	for _, group := range first.Completed {
		flattened = append(flattened, group...)
	}
	flattened = append(flattened, first.Trailing...)

	second, err := Segment(flattened, false)
	require.NoError(t, err)
	assert.Equal(t, first.Leading, second.Leading)
	assert.Equal(t, first.Completed, second.Completed)
	assert.Equal(t, first.Trailing, second.Trailing)
}

func TestSegment_Empty(t *testing.T) {
	seg, err := Segment(nil, true)
	require.NoError(t, err)
	assert.Empty(t, seg.Leading)
	assert.Empty(t, seg.Completed)
	assert.Empty(t, seg.Trailing)
}
