package reconcile

import (
	"context"
	"fmt"

	"tradeTracker/internal/ports"
)

// PurgeListVersion is the file format version the purger accepts.
const PurgeListVersion = 1

// PurgeEntry names one broker order whose trade must be dismantled, typically
// because a corporate action or broker-side correction invalidated it.
type PurgeEntry struct {
	AccountID     int64  `json:"account_id"`
	BrokerOrderID string `json:"broker_order_id"`
	Reason        string `json:"reason"`
}

// PurgeList is the on-disk shape of a purge request file.
type PurgeList struct {
	Version int          `json:"version"`
	Entries []PurgeEntry `json:"entries"`
}

// Purger deletes trades named by a purge list and detaches their orders so a
// later rebuild does not resurrect them.
type Purger struct {
	logger    ports.Logger
	orderRepo ports.OrderRepository
	tradeRepo ports.TradeRepository
}

// NewPurger creates a purger.
func NewPurger(logger ports.Logger, orderRepo ports.OrderRepository, tradeRepo ports.TradeRepository) (*Purger, error) {
	if logger == nil || orderRepo == nil || tradeRepo == nil {
		return nil, fmt.Errorf("missing required dependencies for purger")
	}
	return &Purger{logger: logger, orderRepo: orderRepo, tradeRepo: tradeRepo}, nil
}

// Run processes every entry in the list and returns the number of trades
// deleted. Entries naming unknown orders, or orders already detached from any
// trade, are skipped with a log line; running the same list twice is safe.
func (p *Purger) Run(ctx context.Context, list *PurgeList) (int, error) {
	op := "Purge"

	if list == nil {
		return 0, fmt.Errorf("purge list is nil: %w", ports.ErrInvalidRequest)
	}
	if list.Version != PurgeListVersion {
		return 0, fmt.Errorf("unsupported purge list version %d: %w", list.Version, ports.ErrInvalidRequest)
	}

	purged := 0
	for _, entry := range list.Entries {
		order, err := p.orderRepo.FindOrderByBrokerID(ctx, entry.AccountID, entry.BrokerOrderID)
		if err != nil {
			return purged, fmt.Errorf("failed to look up order %s: %w", entry.BrokerOrderID, err)
		}
		if order == nil {
			p.logger.Warn(ctx, op+": order not found, skipping", map[string]interface{}{
				"accountID": entry.AccountID, "brokerOrderID": entry.BrokerOrderID,
			})
			continue
		}
		if order.TradeID == 0 {
			p.logger.Info(ctx, op+": order already detached from any trade, skipping", map[string]interface{}{
				"accountID": entry.AccountID, "brokerOrderID": entry.BrokerOrderID,
			})
			continue
		}

		tradeID := order.TradeID
		siblings, err := p.orderRepo.FindOrdersByTrade(ctx, entry.AccountID, tradeID)
		if err != nil {
			return purged, fmt.Errorf("failed to load orders for trade %d: %w", tradeID, err)
		}
		if err := p.tradeRepo.DeleteTrade(ctx, entry.AccountID, tradeID); err != nil {
			return purged, fmt.Errorf("failed to delete trade %d: %w", tradeID, err)
		}
		for _, sibling := range siblings {
			sibling.TradeID = 0
			sibling.IncompleteTrade = true
			sibling.ManuallyAdjusted = true
			sibling.AppendComment(fmt.Sprintf("Detached from deleted trade %d: %s", tradeID, entry.Reason))
			if err := p.orderRepo.UpdateOrder(ctx, sibling); err != nil {
				return purged, fmt.Errorf("failed to detach order %d from trade %d: %w", sibling.OrderID, tradeID, err)
			}
		}
		purged++

		p.logger.Info(ctx, op+": trade deleted and orders detached", map[string]interface{}{
			"accountID": entry.AccountID, "tradeID": tradeID,
			"brokerOrderID": entry.BrokerOrderID, "detachedOrders": len(siblings), "reason": entry.Reason,
		})
	}

	p.logger.Info(ctx, op+": purge complete", map[string]interface{}{
		"requested": len(list.Entries), "purged": purged,
	})
	return purged, nil
}
