package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradeTracker/config"
	"tradeTracker/internal/domain"
	"tradeTracker/internal/ports"
	"tradeTracker/internal/reconcile"
	"tradeTracker/internal/trades"
)

// exposureEpsilon is the signed-exposure threshold below which a symbol is
// considered flat when classifying imported orders.
const exposureEpsilon = 1e-4

// TrackingService orchestrates order import, trade rebuilding and
// reconciliation across all tracked accounts.
type TrackingService struct {
	cfg         *config.Config
	logger      ports.Logger
	broker      ports.BrokerClient
	quotes      ports.QuoteProvider
	orderRepo   ports.OrderRepository
	tradeRepo   ports.TradeRepository
	quoteRepo   ports.QuoteRepository
	accountRepo ports.AccountRepository
	calc        *trades.Calculator
	repair      *reconcile.Engine
	now         func() time.Time
}

// NewTrackingService creates a new application service instance.
func NewTrackingService(
	cfg *config.Config,
	logger ports.Logger,
	broker ports.BrokerClient,
	quotes ports.QuoteProvider,
	orderRepo ports.OrderRepository,
	tradeRepo ports.TradeRepository,
	quoteRepo ports.QuoteRepository,
	accountRepo ports.AccountRepository,
	calc *trades.Calculator,
	repair *reconcile.Engine,
) (*TrackingService, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || broker == nil || quotes == nil ||
		orderRepo == nil || tradeRepo == nil || quoteRepo == nil || accountRepo == nil || calc == nil {
		return nil, fmt.Errorf("missing required dependencies for TrackingService")
	}
	if cfg.ReconcileEnabled && repair == nil {
		return nil, fmt.Errorf("reconciliation is enabled but no repair engine was provided")
	}
	if cfg.MaxDailyImports <= 0 {
		return nil, fmt.Errorf("configuration MaxDailyImports must be positive")
	}
	if cfg.ImportLookback <= 0 {
		return nil, fmt.Errorf("configuration ImportLookback must be positive")
	}

	return &TrackingService{
		cfg:         cfg,
		logger:      logger,
		broker:      broker,
		quotes:      quotes,
		orderRepo:   orderRepo,
		tradeRepo:   tradeRepo,
		quoteRepo:   quoteRepo,
		accountRepo: accountRepo,
		calc:        calc,
		repair:      repair,
		now:         time.Now,
	}, nil
}

// Run executes tracking passes until the context is canceled or a shutdown
// signal arrives. When once is true a single pass runs and Run returns its
// result.
func (s *TrackingService) Run(ctx context.Context, once bool) error {
	s.logger.Info(ctx, "Starting Tracking Service...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if once {
		return s.ProcessAll(ctx)
	}

	ticker := time.NewTicker(s.cfg.ProcessInterval)
	defer ticker.Stop()
	for {
		if err := s.ProcessAll(ctx); err != nil {
			s.logger.Error(ctx, err, "Tracking pass finished with errors")
		}
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Tracking Service stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessAll runs one full tracking pass over every stored account. A
// failure on one account does not block the others; the joined error carries
// every per-account failure.
func (s *TrackingService) ProcessAll(ctx context.Context) error {
	accounts, err := s.accountRepo.FindAllAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		s.logger.Warn(ctx, "No accounts configured, nothing to process")
		return nil
	}

	var errs []error
	for _, account := range accounts {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := s.ProcessAccount(ctx, account); err != nil {
			s.logger.Error(ctx, err, "Account processing failed", map[string]interface{}{
				"accountID": account.ID, "name": account.Name,
			})
			errs = append(errs, fmt.Errorf("account %d (%s): %w", account.ID, account.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ProcessAccount imports new orders, rebuilds the account's trades and, when
// enabled, reconciles them against the broker's position snapshot.
func (s *TrackingService) ProcessAccount(ctx context.Context, account *domain.Account) error {
	op := "ProcessAccount"
	s.logger.Info(ctx, op+": starting pass", map[string]interface{}{
		"accountID": account.ID, "name": account.Name,
	})

	imported, err := s.ImportOrders(ctx, account)
	if err != nil {
		return fmt.Errorf("order import failed: %w", err)
	}

	quotes, err := s.refreshQuotes(ctx, account)
	if err != nil {
		// Stale quotes only degrade open-trade valuation, not correctness.
		s.logger.Warn(ctx, op+": quote refresh failed, proceeding with cached quotes", map[string]interface{}{
			"accountID": account.ID, "error": err.Error(),
		})
		quotes, err = s.quoteRepo.FindQuotes(ctx, account.ID)
		if err != nil {
			return fmt.Errorf("failed to load cached quotes: %w", err)
		}
	}

	rebuilt, err := s.RebuildTrades(ctx, account, quotes)
	if err != nil {
		return fmt.Errorf("trade rebuild failed: %w", err)
	}

	corrections := 0
	if s.cfg.ReconcileEnabled {
		corrections, err = s.repair.RepairAccount(ctx, account, quotes)
		if err != nil {
			return fmt.Errorf("reconciliation failed: %w", err)
		}
	}

	s.logger.Info(ctx, op+": pass complete", map[string]interface{}{
		"accountID": account.ID, "imported": imported, "rebuiltSymbols": rebuilt, "corrections": corrections,
	})
	return nil
}

// ImportOrders pulls the account's executed orders from the broker and
// stores the ones not seen before, returning how many were stored. The
// broker only reports buy/sell sides; the stored action is resolved against
// the symbol's running signed exposure so short entries and covers come out
// as SellShort and BuyToCover.
func (s *TrackingService) ImportOrders(ctx context.Context, account *domain.Account) (int, error) {
	op := "ImportOrders"

	today := s.now().UTC().Format("2006-01-02")
	alreadyToday, err := s.orderRepo.CountOrdersExecutedOn(ctx, account.ID, today)
	if err != nil {
		return 0, fmt.Errorf("failed to count today's orders: %w", err)
	}
	if alreadyToday >= s.cfg.MaxDailyImports {
		s.logger.Warn(ctx, op+": daily import limit reached, skipping", map[string]interface{}{
			"accountID": account.ID, "limit": s.cfg.MaxDailyImports,
		})
		return 0, nil
	}

	fromDate := s.now().Add(-s.cfg.ImportLookback)
	incoming, err := s.broker.GetOrders(ctx, account, fromDate, true)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch orders from broker: %w", err)
	}
	if len(incoming) == 0 {
		return 0, nil
	}

	states := make(map[string]*symbolState)
	imported := 0
	for _, order := range incoming {
		existing, err := s.orderRepo.FindOrderByBrokerID(ctx, account.ID, order.BrokerOrderID)
		if err != nil {
			return imported, fmt.Errorf("failed to check for existing order %s: %w", order.BrokerOrderID, err)
		}
		if existing != nil {
			// Already stored, so the history seed accounts for it. Seed the
			// symbol here and advance nothing, or the seed would count it
			// twice.
			if _, err := s.loadSymbolState(ctx, account, existing.Symbol, states); err != nil {
				return imported, err
			}
			continue
		}

		st, err := s.loadSymbolState(ctx, account, order.Symbol, states)
		if err != nil {
			return imported, err
		}
		order.Action = classifyAction(order.Action, st)
		st.advance(order)

		if _, err := s.orderRepo.CreateOrder(ctx, order); err != nil {
			return imported, fmt.Errorf("failed to store imported order %s: %w", order.BrokerOrderID, err)
		}
		imported++
	}

	s.logger.Info(ctx, op+": import complete", map[string]interface{}{
		"accountID": account.ID, "fetched": len(incoming), "imported": imported,
	})
	return imported, nil
}

// symbolState tracks what classification knows about one symbol mid-import:
// the running signed exposure and whether any order for it has been seen at
// all, stored or incoming.
type symbolState struct {
	exposure float64
	traded   bool
}

// advance applies a classified order to the running exposure. Sell and
// BuyToCover are exits: their quantity never pushes exposure through zero,
// so an oversized or orphaned exit leaves the symbol flat rather than
// opening a phantom position on the other side.
func (st *symbolState) advance(o *domain.Order) {
	st.traded = true
	switch o.Action {
	case domain.Buy:
		st.exposure += o.Quantity
	case domain.SellShort:
		st.exposure -= o.Quantity
	case domain.Sell:
		st.exposure = math.Max(0, st.exposure-o.Quantity)
	case domain.BuyToCover:
		st.exposure = math.Min(0, st.exposure+o.Quantity)
	}
}

// loadSymbolState returns the symbol's classification state, replaying the
// full stored order history on first sight. Every order already in the store
// is covered by this replay, so callers must not advance for stored orders.
func (s *TrackingService) loadSymbolState(ctx context.Context, account *domain.Account, symbol string, states map[string]*symbolState) (*symbolState, error) {
	if st, seen := states[symbol]; seen {
		return st, nil
	}

	stored, err := s.orderRepo.FindOrdersBySymbol(ctx, account.ID, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to seed exposure for %s: %w", symbol, err)
	}
	st := &symbolState{}
	for _, o := range stored {
		st.advance(o)
	}
	states[symbol] = st
	return st, nil
}

// classifyAction resolves a broker-reported buy/sell side into the four-way
// action taxonomy using the symbol's state before the order. A sell on a
// symbol with no visible position and no order history at all stays a plain
// Sell: its entry most likely predates the import window, and the segmenter
// knows how to orphan an exit without an entry.
func classifyAction(side domain.OrderAction, st *symbolState) domain.OrderAction {
	switch side {
	case domain.Buy, domain.BuyToCover:
		if st.exposure < -exposureEpsilon {
			return domain.BuyToCover
		}
		return domain.Buy
	default:
		if st.exposure > exposureEpsilon {
			return domain.Sell
		}
		if !st.traded {
			return domain.Sell
		}
		return domain.SellShort
	}
}

// RebuildTrades recomputes every trade on the account from its stored order
// history, symbol by symbol, and returns the number of symbols rebuilt.
// Existing trades for a symbol are replaced wholesale; orders the segmenter
// cannot place in a trade stay stored but unattached.
func (s *TrackingService) RebuildTrades(ctx context.Context, account *domain.Account, quotes map[string]*domain.Quote) (int, error) {
	op := "RebuildTrades"

	symbols, err := s.orderRepo.ListSymbols(ctx, account.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list symbols: %w", err)
	}

	rebuilt := 0
	for _, symbol := range symbols {
		if err := s.rebuildSymbol(ctx, account, symbol, quotes[symbol]); err != nil {
			return rebuilt, fmt.Errorf("symbol %s: %w", symbol, err)
		}
		rebuilt++
	}

	s.logger.Info(ctx, op+": rebuild complete", map[string]interface{}{
		"accountID": account.ID, "symbols": rebuilt,
	})
	return rebuilt, nil
}

func (s *TrackingService) rebuildSymbol(ctx context.Context, account *domain.Account, symbol string, quote *domain.Quote) error {
	orders, err := s.orderRepo.FindOrdersBySymbol(ctx, account.ID, symbol)
	if err != nil {
		return fmt.Errorf("failed to load orders: %w", err)
	}
	if len(orders) == 0 {
		return nil
	}

	seg, err := trades.Segment(orders, s.cfg.StrictSegmentation)
	if err != nil {
		return fmt.Errorf("segmentation failed: %w", err)
	}

	deleted, err := s.tradeRepo.DeleteTradesBySymbol(ctx, account.ID, symbol)
	if err != nil {
		return fmt.Errorf("failed to clear existing trades: %w", err)
	}
	if len(deleted) > 0 {
		s.logger.Debug(ctx, "rebuildSymbol: cleared existing trades", map[string]interface{}{
			"symbol": symbol, "count": len(deleted),
		})
	}

	if err := s.detachOrders(ctx, seg.Leading); err != nil {
		return err
	}

	for _, group := range seg.Completed {
		trade, err := s.calc.CreateClosed(group, account.ID)
		if err != nil {
			return fmt.Errorf("failed to compute closed trade: %w", err)
		}
		if err := s.persistTradeWithOrders(ctx, trade, group); err != nil {
			return err
		}
	}

	if len(seg.Trailing) > 0 {
		trade, err := s.calc.CreateOpen(seg.Trailing, account.ID, staleSafeQuote(quote, seg.Trailing))
		if err != nil {
			return fmt.Errorf("failed to compute open trade: %w", err)
		}
		if err := s.persistTradeWithOrders(ctx, trade, seg.Trailing); err != nil {
			return err
		}
	}

	return nil
}

// staleSafeQuote drops a quote that predates the newest order so an open
// trade is never valued against a price older than its own activity.
func staleSafeQuote(quote *domain.Quote, orders []*domain.Order) *domain.Quote {
	if quote == nil || len(orders) == 0 {
		return quote
	}
	last := orders[len(orders)-1].ExecutedTime
	if quote.LastUpdated.Before(last) {
		return nil
	}
	return quote
}

func (s *TrackingService) persistTradeWithOrders(ctx context.Context, trade *domain.Trade, orders []*domain.Order) error {
	tradeID, err := s.tradeRepo.CreateTrade(ctx, trade)
	if err != nil {
		return fmt.Errorf("failed to store trade: %w", err)
	}
	for _, order := range orders {
		if order.TradeID == tradeID {
			continue
		}
		order.TradeID = tradeID
		if err := s.orderRepo.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to attach order %d to trade %d: %w", order.OrderID, tradeID, err)
		}
	}
	return nil
}

// detachOrders clears the trade reference on orders that no longer belong to
// any trade after a rebuild.
func (s *TrackingService) detachOrders(ctx context.Context, orders []*domain.Order) error {
	for _, order := range orders {
		if order.TradeID == 0 {
			continue
		}
		order.TradeID = 0
		if err := s.orderRepo.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to detach order %d: %w", order.OrderID, err)
		}
	}
	return nil
}

// refreshQuotes fetches current prices for every symbol the account has
// traded and caches them, returning the fresh map.
func (s *TrackingService) refreshQuotes(ctx context.Context, account *domain.Account) (map[string]*domain.Quote, error) {
	if !s.cfg.QuoteRefreshEnabled {
		return s.quoteRepo.FindQuotes(ctx, account.ID)
	}

	symbols, err := s.orderRepo.ListSymbols(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols for quote refresh: %w", err)
	}
	if len(symbols) == 0 {
		return map[string]*domain.Quote{}, nil
	}

	quotes, err := s.quotes.GetQuotes(ctx, account, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}
	for _, quote := range quotes {
		if math.IsNaN(quote.Price) || quote.Price <= 0 {
			continue
		}
		if err := s.quoteRepo.UpsertQuote(ctx, account.ID, quote); err != nil {
			return nil, fmt.Errorf("failed to cache quote for %s: %w", quote.Symbol, err)
		}
	}
	return quotes, nil
}
