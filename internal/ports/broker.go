package ports

import (
	"context"
	"time"

	"tradeTracker/internal/domain"
)

// OrderPreview is the broker's estimate for an order before placement.
type OrderPreview struct {
	Symbol              string
	EstimatedAmount     float64
	EstimatedCommission float64
	Warnings            []string
}

// OrderConfirmation is the broker's acknowledgement of a placed order.
type OrderConfirmation struct {
	BrokerOrderID string
	Status        string
	PlacedAt      time.Time
}

// BrokerClient defines the interface for the brokerage the account lives at.
// This abstraction decouples the tracking core from any specific broker API;
// transport concerns (HTTP, auth refresh, retries) live behind it.
type BrokerClient interface {
	// GetOrders retrieves the account's executed orders from fromDate onward,
	// ordered by execution time ascending. When filledOnly is true, orders
	// without a fill are omitted.
	GetOrders(ctx context.Context, account *domain.Account, fromDate time.Time, filledOnly bool) ([]*domain.Order, error)

	// GetPositions retrieves the broker's current position snapshot for the
	// account. The broker is the source of truth for held quantities.
	GetPositions(ctx context.Context, account *domain.Account) ([]*domain.Position, error)

	// PreviewOrder asks the broker (or estimates locally) what an order would
	// cost before placing it.
	PreviewOrder(ctx context.Context, account *domain.Account, order *domain.Order) (*OrderPreview, error)

	// PlaceOrder submits an order for execution.
	PlaceOrder(ctx context.Context, account *domain.Account, order *domain.Order) (*OrderConfirmation, error)
}

// QuoteProvider retrieves current prices used to value open trades.
type QuoteProvider interface {
	// GetQuotes returns the latest quote for each requested symbol, keyed by
	// symbol. Symbols with no available quote are absent from the map.
	GetQuotes(ctx context.Context, account *domain.Account, symbols []string) (map[string]*domain.Quote, error)
}
