// Package alpacabroker implements the ports.BrokerClient and
// ports.QuoteProvider interfaces against the Alpaca trading and market data
// APIs.
package alpacabroker

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"tradeTracker/internal/domain"
	"tradeTracker/internal/ports"
)

// ordersPageSize is the page size used when walking the order history.
const ordersPageSize = 500

// Client talks to Alpaca. One client serves every account; the account's
// broker ID selects nothing here because Alpaca scopes credentials to a
// single account, but the parameter is kept so multi-account brokers fit the
// same port.
type Client struct {
	trading *alpaca.Client
	data    *marketdata.Client
	logger  ports.Logger
}

// Config holds the Alpaca API credentials and endpoints.
type Config struct {
	APIKey      string
	APISecret   string
	BaseURL     string // trading API, e.g. https://paper-api.alpaca.markets
	DataBaseURL string // market data API, empty for the default
	Logger      ports.Logger
}

// NewClient creates an Alpaca-backed broker client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for alpaca client")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("alpaca credentials are required: %w", ports.ErrConfigurationError)
	}

	trading := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	})
	dataOpts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataBaseURL != "" {
		dataOpts.BaseURL = cfg.DataBaseURL
	}

	return &Client{
		trading: trading,
		data:    marketdata.NewClient(dataOpts),
		logger:  cfg.Logger,
	}, nil
}

// GetOrders retrieves the account's executed orders from fromDate onward,
// ordered by execution time ascending. Alpaca only distinguishes buy from
// sell; short entries and covers are resolved downstream against the running
// exposure, so every sell side maps to Sell here. Orders without a fill can
// never become domain orders, so filledOnly has no effect for this broker.
func (c *Client) GetOrders(ctx context.Context, account *domain.Account, fromDate time.Time, filledOnly bool) ([]*domain.Order, error) {
	op := "GetOrders"

	var out []*domain.Order
	after := fromDate
	for {
		page, err := c.trading.GetOrders(alpaca.GetOrdersRequest{
			Status:    "closed",
			After:     after,
			Limit:     ordersPageSize,
			Direction: "asc",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch orders from alpaca: %w: %v", ports.ErrBrokerUnavailable, err)
		}

		for _, ao := range page {
			order, err := mapOrder(account.ID, &ao)
			if err != nil {
				c.logger.Warn(ctx, op+": skipping unmappable alpaca order", map[string]interface{}{
					"brokerOrderID": ao.ID, "symbol": ao.Symbol, "reason": err.Error(),
				})
				continue
			}
			if order != nil {
				out = append(out, order)
			}
		}

		if len(page) < ordersPageSize {
			break
		}
		after = page[len(page)-1].SubmittedAt
	}

	c.logger.Debug(ctx, op+": orders fetched", map[string]interface{}{
		"accountID": account.ID, "count": len(out), "from": fromDate,
	})
	return out, nil
}

// mapOrder converts an Alpaca order to a domain order. Unfilled orders map to
// nil.
func mapOrder(accountID int64, ao *alpaca.Order) (*domain.Order, error) {
	if ao.FilledAt == nil || ao.FilledQty.IsZero() {
		return nil, nil
	}

	var action domain.OrderAction
	switch ao.Side {
	case alpaca.Buy:
		action = domain.Buy
	case alpaca.Sell:
		action = domain.Sell
	default:
		return nil, fmt.Errorf("unknown order side %q", ao.Side)
	}

	qty := ao.FilledQty.InexactFloat64()
	price := 0.0
	if ao.FilledAvgPrice != nil {
		price = ao.FilledAvgPrice.InexactFloat64()
	}
	if price <= 0 {
		return nil, fmt.Errorf("filled order without a fill price")
	}

	order, err := domain.NewOrder(accountID, ao.Symbol, action, ao.FilledAt.UTC(), qty, price, qty*price, 0)
	if err != nil {
		return nil, err
	}
	order.BrokerOrderID = ao.ID
	return order, nil
}

// GetPositions retrieves the broker's current position snapshot for the
// account. Quantities are signed, negative for short positions.
func (c *Client) GetPositions(ctx context.Context, account *domain.Account) ([]*domain.Position, error) {
	positions, err := c.trading.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch positions from alpaca: %w: %v", ports.ErrBrokerUnavailable, err)
	}

	out := make([]*domain.Position, 0, len(positions))
	for _, p := range positions {
		qty := p.Qty.InexactFloat64()
		if p.Side == "short" && qty > 0 {
			qty = -qty
		}
		out = append(out, &domain.Position{
			Symbol:   p.Symbol,
			Quantity: qty,
			Price:    p.AvgEntryPrice.InexactFloat64(),
		})
	}

	c.logger.Debug(ctx, "GetPositions: snapshot fetched", map[string]interface{}{
		"accountID": account.ID, "count": len(out),
	})
	return out, nil
}

// PreviewOrder estimates an order's cost from the latest trade price. Alpaca
// has no server-side preview endpoint for equities, so the estimate is local
// and commission-free pricing is assumed.
func (c *Client) PreviewOrder(ctx context.Context, account *domain.Account, order *domain.Order) (*ports.OrderPreview, error) {
	preview := &ports.OrderPreview{Symbol: order.Symbol}

	quotes, err := c.GetQuotes(ctx, account, []string{order.Symbol})
	if err != nil {
		return nil, fmt.Errorf("failed to price order preview for %s: %w", order.Symbol, err)
	}
	quote := quotes[order.Symbol]
	if quote == nil {
		preview.EstimatedAmount = order.Quantity * order.ExecutedPrice
		preview.Warnings = append(preview.Warnings, "no market quote available, estimate uses the order's own price")
		return preview, nil
	}

	preview.EstimatedAmount = order.Quantity * quote.Price
	return preview, nil
}

// PlaceOrder submits a market order for execution.
func (c *Client) PlaceOrder(ctx context.Context, account *domain.Account, order *domain.Order) (*ports.OrderConfirmation, error) {
	op := "PlaceOrder"

	var side alpaca.Side
	switch order.Action {
	case domain.Buy, domain.BuyToCover:
		side = alpaca.Buy
	case domain.Sell, domain.SellShort:
		side = alpaca.Sell
	default:
		return nil, fmt.Errorf("cannot place order with action %q: %w", order.Action, ports.ErrInvalidOrder)
	}

	qty := decimal.NewFromFloat(order.Quantity)
	placed, err := c.trading.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      order.Symbol,
		Qty:         &qty,
		Side:        side,
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to place order for %s: %w: %v", order.Symbol, ports.ErrOrderPlacementFailed, err)
	}

	c.logger.Info(ctx, op+": order submitted", map[string]interface{}{
		"accountID": account.ID, "symbol": order.Symbol, "action": order.Action,
		"quantity": order.Quantity, "brokerOrderID": placed.ID,
	})
	return &ports.OrderConfirmation{
		BrokerOrderID: placed.ID,
		Status:        string(placed.Status),
		PlacedAt:      placed.SubmittedAt,
	}, nil
}

// GetQuotes returns the latest trade price for each requested symbol.
// Symbols with no available data are absent from the map.
func (c *Client) GetQuotes(ctx context.Context, account *domain.Account, symbols []string) (map[string]*domain.Quote, error) {
	if len(symbols) == 0 {
		return map[string]*domain.Quote{}, nil
	}

	latest, err := c.data.GetLatestTrades(symbols, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest trades from alpaca: %w: %v", ports.ErrBrokerUnavailable, err)
	}

	quotes := make(map[string]*domain.Quote, len(latest))
	for symbol, trade := range latest {
		quotes[symbol] = &domain.Quote{
			Symbol:      symbol,
			Price:       trade.Price,
			LastUpdated: trade.Timestamp,
		}
	}
	return quotes, nil
}
