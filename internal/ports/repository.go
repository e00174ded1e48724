package ports

import (
	"context"

	"tradeTracker/internal/domain"
)

// OrderRepository defines the interface for storing and retrieving executed orders.
type OrderRepository interface {
	// CreateOrder saves a new order and returns its assigned ID.
	CreateOrder(ctx context.Context, order *domain.Order) (int64, error)
	// UpdateOrder modifies an existing order (trade attachment, flags, comment).
	UpdateOrder(ctx context.Context, order *domain.Order) error
	// FindOrdersByTrade retrieves all orders attached to a trade, ordered by
	// execution time ascending.
	FindOrdersByTrade(ctx context.Context, accountID, tradeID int64) ([]*domain.Order, error)
	// FindOrdersBySymbol retrieves all orders for a symbol on an account,
	// ordered by execution time ascending.
	FindOrdersBySymbol(ctx context.Context, accountID int64, symbol string) ([]*domain.Order, error)
	// FindOrderByBrokerID retrieves the order carrying the given broker-assigned ID.
	// Returns nil, nil if no such order is stored.
	FindOrderByBrokerID(ctx context.Context, accountID int64, brokerOrderID string) (*domain.Order, error)
	// ListSymbols returns the distinct symbols that have orders on the account.
	ListSymbols(ctx context.Context, accountID int64) ([]string, error)
	// CountOrdersExecutedOn counts orders executed on a calendar date (YYYY-MM-DD).
	CountOrdersExecutedOn(ctx context.Context, accountID int64, date string) (int, error)
}

// TradeRepository defines the interface for storing and retrieving trade aggregates.
type TradeRepository interface {
	// CreateTrade saves a new trade and returns its assigned ID.
	CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// UpdateTrade replaces a stored trade's computed fields.
	UpdateTrade(ctx context.Context, trade *domain.Trade) error
	// DeleteTrade removes a trade. Orders that referenced it must be detached
	// by the caller.
	DeleteTrade(ctx context.Context, accountID, tradeID int64) error
	// DeleteTradesBySymbol removes every trade for a symbol on an account,
	// returning the IDs of the deleted trades.
	DeleteTradesBySymbol(ctx context.Context, accountID int64, symbol string) ([]int64, error)
	// FindTradeByID retrieves a trade by its ID. Returns nil, nil if not found.
	FindTradeByID(ctx context.Context, accountID, tradeID int64) (*domain.Trade, error)
	// FindOpenTrades retrieves all open trades for an account.
	FindOpenTrades(ctx context.Context, accountID int64) ([]*domain.Trade, error)
	// FindTradesBySymbol retrieves all trades for a symbol on an account,
	// ordered by open date ascending.
	FindTradesBySymbol(ctx context.Context, accountID int64, symbol string) ([]*domain.Trade, error)
}

// QuoteRepository caches the last known quote per symbol per account.
type QuoteRepository interface {
	// UpsertQuote inserts or refreshes a cached quote.
	UpsertQuote(ctx context.Context, accountID int64, quote *domain.Quote) error
	// FindQuotes returns all cached quotes for an account, keyed by symbol.
	FindQuotes(ctx context.Context, accountID int64) (map[string]*domain.Quote, error)
}

// AccountRepository defines the interface for account records.
type AccountRepository interface {
	// CreateAccount saves a new account and returns its assigned ID.
	CreateAccount(ctx context.Context, account *domain.Account) (int64, error)
	// FindAccountByID retrieves an account by ID. Returns nil, nil if not found.
	FindAccountByID(ctx context.Context, id int64) (*domain.Account, error)
	// FindAllAccounts retrieves every stored account.
	FindAllAccounts(ctx context.Context) ([]*domain.Account, error)
}
