// Command rebuild_trades recomputes every trade for one account (or all
// accounts) from the stored order history, without touching the broker.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"tradeTracker/config"
	"tradeTracker/internal/adapters/logger"
	"tradeTracker/internal/adapters/sqlite"
	"tradeTracker/internal/analytics"
	"tradeTracker/internal/domain"
	"tradeTracker/internal/trades"
)

func main() {
	accountID := flag.Int64("account", 0, "account ID to rebuild (0 rebuilds every account)")
	strict := flag.Bool("strict", false, "fail on order sequences that cannot be segmented cleanly")
	summary := flag.Bool("summary", true, "print a performance summary after rebuilding")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	calc, err := trades.NewCalculator(appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize trade calculator: %v", err)
	}

	ctx := context.Background()
	accounts, err := loadAccounts(ctx, repo, *accountID)
	if err != nil {
		appLogger.Error(ctx, err, "Failed to load accounts")
		log.Fatalf("FATAL: %v", err)
	}

	for _, account := range accounts {
		if err := rebuildAccount(ctx, repo, calc, account, *strict); err != nil {
			appLogger.Error(ctx, err, "Rebuild failed", map[string]interface{}{"accountID": account.ID})
			log.Fatalf("FATAL: rebuild failed for account %d: %v", account.ID, err)
		}
		if *summary {
			printSummary(ctx, repo, account)
		}
	}
}

func loadAccounts(ctx context.Context, repo *sqlite.Repository, accountID int64) ([]*domain.Account, error) {
	if accountID == 0 {
		return repo.FindAllAccounts(ctx)
	}
	account, err := repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account %d not found", accountID)
	}
	return []*domain.Account{account}, nil
}

func rebuildAccount(ctx context.Context, repo *sqlite.Repository, calc *trades.Calculator, account *domain.Account, strict bool) error {
	symbols, err := repo.ListSymbols(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("failed to list symbols: %w", err)
	}
	quotes, err := repo.FindQuotes(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("failed to load cached quotes: %w", err)
	}

	fmt.Printf("Rebuilding %d symbols for account %d (%s)...\n", len(symbols), account.ID, account.Name)
	for _, symbol := range symbols {
		orders, err := repo.FindOrdersBySymbol(ctx, account.ID, symbol)
		if err != nil {
			return fmt.Errorf("symbol %s: %w", symbol, err)
		}
		seg, err := trades.Segment(orders, strict)
		if err != nil {
			return fmt.Errorf("symbol %s: %w", symbol, err)
		}
		if _, err := repo.DeleteTradesBySymbol(ctx, account.ID, symbol); err != nil {
			return fmt.Errorf("symbol %s: %w", symbol, err)
		}

		for _, order := range seg.Leading {
			if order.TradeID != 0 {
				order.TradeID = 0
				if err := repo.UpdateOrder(ctx, order); err != nil {
					return fmt.Errorf("symbol %s: %w", symbol, err)
				}
			}
		}
		for _, group := range seg.Completed {
			trade, err := calc.CreateClosed(group, account.ID)
			if err != nil {
				return fmt.Errorf("symbol %s: %w", symbol, err)
			}
			if err := attach(ctx, repo, trade, group); err != nil {
				return fmt.Errorf("symbol %s: %w", symbol, err)
			}
		}
		if len(seg.Trailing) > 0 {
			trade, err := calc.CreateOpen(seg.Trailing, account.ID, quotes[symbol])
			if err != nil {
				return fmt.Errorf("symbol %s: %w", symbol, err)
			}
			if err := attach(ctx, repo, trade, seg.Trailing); err != nil {
				return fmt.Errorf("symbol %s: %w", symbol, err)
			}
		}
	}
	return nil
}

func attach(ctx context.Context, repo *sqlite.Repository, trade *domain.Trade, orders []*domain.Order) error {
	tradeID, err := repo.CreateTrade(ctx, trade)
	if err != nil {
		return err
	}
	for _, order := range orders {
		order.TradeID = tradeID
		if err := repo.UpdateOrder(ctx, order); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(ctx context.Context, repo *sqlite.Repository, account *domain.Account) {
	symbols, err := repo.ListSymbols(ctx, account.ID)
	if err != nil {
		fmt.Printf("summary unavailable: %v\n", err)
		return
	}
	var all []*domain.Trade
	for _, symbol := range symbols {
		ts, err := repo.FindTradesBySymbol(ctx, account.ID, symbol)
		if err != nil {
			fmt.Printf("summary unavailable: %v\n", err)
			return
		}
		all = append(all, ts...)
	}

	s := analytics.Summarize(all)
	fmt.Printf("\nAccount %d (%s)\n", account.ID, account.Name)
	fmt.Printf("  Trades: %d total, %d closed, %d open\n", s.TotalTrades, s.ClosedTrades, s.OpenTrades)
	fmt.Printf("  Win rate: %.1f%% (%d wins / %d losses)\n", s.WinRate*100, s.WinningTrades, s.LosingTrades)
	fmt.Printf("  Realized gain: %.2f (fees %.2f)\n", s.RealizedGain, s.TotalFees)
	fmt.Printf("  Avg win %.2f / avg loss %.2f, expectancy %.2f\n", s.AverageWin, s.AverageLoss, s.Expectancy)
	for _, sym := range s.TopSymbols() {
		fmt.Printf("    %-6s %3d closed  %10.2f  win %.0f%%\n", sym.Symbol, sym.ClosedTrades, sym.RealizedGain, sym.WinRate*100)
	}
}
