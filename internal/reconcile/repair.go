// Package reconcile keeps locally computed open trades consistent with the
// broker's authoritative position snapshot, synthesizing corrective orders
// when quantities drift and purging trades invalidated by external events.
package reconcile

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"tradeTracker/internal/domain"
	"tradeTracker/internal/ports"
	"tradeTracker/internal/trades"
)

// QuantityTolerance is the drift, in shares, below which a broker position
// and a local open trade are considered to agree.
const QuantityTolerance = 0.01

// Engine compares broker positions against locally stored open trades per
// symbol and repairs disagreements. A repair run either fully applies each
// symbol's correction or propagates the error; re-running after a failure is
// safe because corrections are derived from the then-current state.
type Engine struct {
	logger    ports.Logger
	broker    ports.BrokerClient
	orderRepo ports.OrderRepository
	tradeRepo ports.TradeRepository
	calc      *trades.Calculator
	now       func() time.Time
}

// EngineConfig holds the collaborators the repair engine needs.
type EngineConfig struct {
	Logger    ports.Logger
	Broker    ports.BrokerClient
	OrderRepo ports.OrderRepository
	TradeRepo ports.TradeRepository
	Calc      *trades.Calculator
}

// NewEngine creates a repair engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Logger == nil || cfg.Broker == nil || cfg.OrderRepo == nil || cfg.TradeRepo == nil || cfg.Calc == nil {
		return nil, fmt.Errorf("missing required dependencies for repair engine")
	}
	return &Engine{
		logger:    cfg.Logger,
		broker:    cfg.Broker,
		orderRepo: cfg.OrderRepo,
		tradeRepo: cfg.TradeRepo,
		calc:      cfg.Calc,
		now:       time.Now,
	}, nil
}

// RepairAccount reconciles one account against the broker and returns the
// number of corrective actions taken. quotes values open trades after
// recomputation and may be nil. Invoke at most once per account at a time:
// two concurrent repairs would observe inconsistent broker snapshots.
func (e *Engine) RepairAccount(ctx context.Context, account *domain.Account, quotes map[string]*domain.Quote) (int, error) {
	op := "RepairAccount"

	positions, err := e.broker.GetPositions(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch broker positions for account %d: %w", account.ID, err)
	}
	openTrades, err := e.tradeRepo.FindOpenTrades(ctx, account.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load open trades for account %d: %w", account.ID, err)
	}

	posBySymbol := make(map[string]*domain.Position, len(positions))
	for _, p := range positions {
		if _, dup := posBySymbol[p.Symbol]; dup {
			return 0, fmt.Errorf("broker reports more than one position for %s on account %d: %w",
				p.Symbol, account.ID, ports.ErrDataIntegrity)
		}
		posBySymbol[p.Symbol] = p
	}
	tradeBySymbol := make(map[string]*domain.Trade, len(openTrades))
	for _, tr := range openTrades {
		if _, dup := tradeBySymbol[tr.Symbol]; dup {
			return 0, fmt.Errorf("more than one open trade stored for %s on account %d: %w",
				tr.Symbol, account.ID, ports.ErrDataIntegrity)
		}
		tradeBySymbol[tr.Symbol] = tr
	}

	corrections := 0

	// Broker-held symbols: create what is missing, adjust what drifted.
	for _, symbol := range sortedKeys(posBySymbol) {
		pos := posBySymbol[symbol]
		tr := tradeBySymbol[symbol]

		if tr == nil {
			if err := e.synthesizeMissingEntry(ctx, account, pos); err != nil {
				return corrections, err
			}
			corrections++
			continue
		}
		if math.Abs(pos.Quantity-tr.OpenQuantity) <= QuantityTolerance {
			e.logger.Debug(ctx, op+": position matches open trade", map[string]interface{}{
				"symbol": symbol, "quantity": pos.Quantity,
			})
			continue
		}
		if err := e.adjustTrade(ctx, account, tr, pos.Quantity, pos.Price, quotes[symbol]); err != nil {
			return corrections, err
		}
		corrections++
	}

	// Locally open symbols the broker no longer holds: force them closed.
	for _, symbol := range sortedKeys(tradeBySymbol) {
		if _, held := posBySymbol[symbol]; held {
			continue
		}
		tr := tradeBySymbol[symbol]
		e.logger.Info(ctx, op+": broker no longer holds symbol, closing local trade", map[string]interface{}{
			"symbol": symbol, "tradeID": tr.TradeID, "openQuantity": tr.OpenQuantity,
		})
		if err := e.adjustTrade(ctx, account, tr, 0, 0, quotes[symbol]); err != nil {
			return corrections, err
		}
		corrections++
	}

	e.logger.Info(ctx, op+": reconciliation complete", map[string]interface{}{
		"accountID": account.ID, "corrections": corrections,
	})
	return corrections, nil
}

// adjustTrade synthesizes a single delta order that moves the trade's open
// quantity to targetQty, prices it so the implied average cost lands on
// targetPrice, persists it, and recomputes the trade.
func (e *Engine) adjustTrade(ctx context.Context, account *domain.Account, tr *domain.Trade, targetQty, targetPrice float64, quote *domain.Quote) error {
	op := "adjustTrade"

	orders, err := e.orderRepo.FindOrdersByTrade(ctx, account.ID, tr.TradeID)
	if err != nil {
		return fmt.Errorf("failed to load orders for trade %d: %w", tr.TradeID, err)
	}
	if len(orders) == 0 {
		return fmt.Errorf("open trade %d for %s has no orders: %w", tr.TradeID, tr.Symbol, ports.ErrDataIntegrity)
	}

	deltaQty := round4(math.Abs(targetQty - tr.OpenQuantity))
	// The corrective action's sign follows the existing sequence's direction,
	// never the mismatch alone: a long trade grows with Buy and shrinks with
	// Sell, a short trade grows with SellShort and shrinks with BuyToCover.
	var action domain.OrderAction
	if tr.LongTrade {
		if targetQty > tr.OpenQuantity {
			action = domain.Buy
		} else {
			action = domain.Sell
		}
	} else {
		if targetQty < tr.OpenQuantity {
			action = domain.SellShort
		} else {
			action = domain.BuyToCover
		}
	}

	// Back-solve the delta price so the trade's implied average cost reaches
	// the broker-reported target exactly.
	totalCost := 0.0
	for _, o := range orders {
		if o.Action.IsEntry() {
			totalCost += o.Quantity * o.ExecutedPrice
		} else {
			totalCost -= o.Quantity * o.ExecutedPrice
		}
	}
	raw := (targetPrice*math.Abs(targetQty) - totalCost) / deltaQty
	if raw < 0 {
		e.logger.Warn(ctx, op+": back-solved delta price is negative before normalization", map[string]interface{}{
			"symbol": tr.Symbol, "tradeID": tr.TradeID, "rawPrice": raw,
			"targetQty": targetQty, "targetPrice": targetPrice, "totalCost": totalCost,
		})
	}
	deltaPrice := round4(math.Abs(raw))

	delta := &domain.Order{
		AccountID:        account.ID,
		TradeID:          tr.TradeID,
		Symbol:           tr.Symbol,
		Action:           action,
		ExecutedTime:     e.now().UTC(),
		Quantity:         deltaQty,
		ExecutedPrice:    deltaPrice,
		OrderAmount:      round4(deltaQty * deltaPrice),
		ManuallyAdjusted: true,
		Comment: fmt.Sprintf("Adjustment order synthesized during reconciliation: broker quantity %.4f, local quantity %.4f",
			targetQty, tr.OpenQuantity),
	}
	if _, err := e.orderRepo.CreateOrder(ctx, delta); err != nil {
		return fmt.Errorf("failed to persist adjustment order for trade %d: %w", tr.TradeID, err)
	}
	e.logger.Info(ctx, op+": adjustment order created", map[string]interface{}{
		"symbol": tr.Symbol, "tradeID": tr.TradeID, "action": action,
		"quantity": deltaQty, "price": deltaPrice,
	})

	orders = append(orders, delta)
	return e.recompute(ctx, account, tr, orders, targetQty, quote)
}

// recompute rebuilds the trade aggregate from its (now corrected) orders and
// persists it, keeping the stored identity.
func (e *Engine) recompute(ctx context.Context, account *domain.Account, tr *domain.Trade, orders []*domain.Order, targetQty float64, quote *domain.Quote) error {
	var (
		updated *domain.Trade
		err     error
	)
	if math.Abs(targetQty) <= QuantityTolerance {
		updated, err = e.calc.CreateClosed(orders, account.ID)
	} else {
		updated, err = e.calc.CreateOpen(orders, account.ID, quote)
	}
	if err != nil {
		return fmt.Errorf("failed to recompute trade %d after adjustment: %w", tr.TradeID, err)
	}
	updated.TradeID = tr.TradeID
	if err := e.tradeRepo.UpdateTrade(ctx, updated); err != nil {
		return fmt.Errorf("failed to persist recomputed trade %d: %w", tr.TradeID, err)
	}
	return nil
}

// synthesizeMissingEntry creates a whole entry order and a new open trade for
// a symbol the broker holds but the local store has no open trade for.
func (e *Engine) synthesizeMissingEntry(ctx context.Context, account *domain.Account, pos *domain.Position) error {
	op := "synthesizeMissingEntry"

	action := domain.Buy
	if pos.IsShort() {
		action = domain.SellShort
	}
	qty := round4(math.Abs(pos.Quantity))
	entry, err := domain.NewOrder(account.ID, pos.Symbol, action, e.now().UTC(), qty, pos.Price, round4(qty*pos.Price), 0)
	if err != nil {
		return fmt.Errorf("failed to build missing entry order for %s: %w", pos.Symbol, err)
	}
	entry.ManuallyAdjusted = true
	entry.Comment = fmt.Sprintf("Missing entry order synthesized during reconciliation: broker holds %.4f with no local open trade", pos.Quantity)

	trade, err := e.calc.CreateOpen([]*domain.Order{entry}, account.ID, nil)
	if err != nil {
		return fmt.Errorf("failed to build trade for missing position %s: %w", pos.Symbol, err)
	}
	tradeID, err := e.tradeRepo.CreateTrade(ctx, trade)
	if err != nil {
		return fmt.Errorf("failed to persist trade for missing position %s: %w", pos.Symbol, err)
	}
	entry.TradeID = tradeID
	if _, err := e.orderRepo.CreateOrder(ctx, entry); err != nil {
		return fmt.Errorf("failed to persist missing entry order for %s: %w", pos.Symbol, err)
	}

	e.logger.Info(ctx, op+": position recreated from broker snapshot", map[string]interface{}{
		"symbol": pos.Symbol, "tradeID": tradeID, "quantity": pos.Quantity, "price": pos.Price,
	})
	return nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
