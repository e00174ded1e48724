package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tradeTracker/internal/domain"
	"tradeTracker/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.OrderRepository, ports.TradeRepository,
// ports.QuoteRepository and ports.AccountRepository interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trade_tracker.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
// NOTE: This is a basic approach. A proper migration tool is recommended for production.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		broker_account_id TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		trade_id INTEGER NOT NULL DEFAULT 0,
		broker_order_id TEXT NOT NULL DEFAULT '',
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		executed_time TIMESTAMP NOT NULL,
		quantity REAL NOT NULL,
		executed_price REAL NOT NULL,
		order_amount REAL NOT NULL,
		fees REAL NOT NULL DEFAULT 0,
		manually_adjusted INTEGER NOT NULL DEFAULT 0,
		comment TEXT NOT NULL DEFAULT '',
		incomplete_trade INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		long_trade INTEGER NOT NULL,
		open_date TIMESTAMP NOT NULL,
		close_date TIMESTAMP DEFAULT NULL,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		closed INTEGER NOT NULL DEFAULT 0,
		open_quantity REAL NOT NULL,
		avg_entry_price REAL NOT NULL,
		avg_exit_price REAL DEFAULT NULL,
		break_even_price REAL NOT NULL,
		realized_gain REAL NOT NULL DEFAULT 0,
		unrealized_gain REAL DEFAULT NULL,
		total_gain REAL DEFAULT NULL,
		total_gain_pct REAL DEFAULT NULL,
		largest_risk REAL NOT NULL DEFAULT 0,
		total_fees REAL NOT NULL DEFAULT 0,
		total_order_count INTEGER NOT NULL DEFAULT 0,
		winning_trade INTEGER DEFAULT NULL,
		manually_adjusted INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS quotes (
		account_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		price REAL NOT NULL,
		last_updated TIMESTAMP NOT NULL,
		PRIMARY KEY (account_id, symbol)
	);

	-- Add indexes for common lookups
	CREATE INDEX IF NOT EXISTS idx_orders_account_symbol_time ON orders (account_id, symbol, executed_time);
	CREATE INDEX IF NOT EXISTS idx_orders_account_trade ON orders (account_id, trade_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_account_broker_id ON orders (account_id, broker_order_id) WHERE broker_order_id != '';
	CREATE INDEX IF NOT EXISTS idx_trades_account_symbol ON trades (account_id, symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_account_closed ON trades (account_id, closed);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- OrderRepository Implementation ---

const orderColumns = `id, account_id, trade_id, broker_order_id, symbol, action, executed_time,
       quantity, executed_price, order_amount, fees, manually_adjusted, comment, incomplete_trade`

// CreateOrder saves a new order and returns its assigned ID.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) (int64, error) {
	const query = `
	INSERT INTO orders (account_id, trade_id, broker_order_id, symbol, action, executed_time,
	                    quantity, executed_price, order_amount, fees, manually_adjusted, comment, incomplete_trade)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		order.AccountID, order.TradeID, order.BrokerOrderID, order.Symbol, string(order.Action),
		order.ExecutedTime, order.Quantity, order.ExecutedPrice, order.OrderAmount, order.Fees,
		order.ManuallyAdjusted, order.Comment, order.IncompleteTrade)
	if err != nil {
		return 0, fmt.Errorf("failed to insert order for symbol %s: %w", order.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for order %s: %w", order.Symbol, err)
	}
	order.OrderID = id // Update the domain object with the ID
	r.logger.Debug(ctx, "Order created", map[string]interface{}{"orderID": id, "symbol": order.Symbol, "action": order.Action})
	return id, nil
}

// UpdateOrder modifies an existing order based on its ID.
func (r *Repository) UpdateOrder(ctx context.Context, order *domain.Order) error {
	const query = `
	UPDATE orders
	SET trade_id = ?, broker_order_id = ?, symbol = ?, action = ?, executed_time = ?,
	    quantity = ?, executed_price = ?, order_amount = ?, fees = ?,
	    manually_adjusted = ?, comment = ?, incomplete_trade = ?
	WHERE id = ? AND account_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		order.TradeID, order.BrokerOrderID, order.Symbol, string(order.Action), order.ExecutedTime,
		order.Quantity, order.ExecutedPrice, order.OrderAmount, order.Fees,
		order.ManuallyAdjusted, order.Comment, order.IncompleteTrade,
		order.OrderID, order.AccountID)
	if err != nil {
		return fmt.Errorf("failed to update order ID %d: %w", order.OrderID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for update order ID %d: %w", order.OrderID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("order ID %d not found for update: %w", order.OrderID, ports.ErrNotFound)
	}
	return nil
}

// FindOrdersByTrade retrieves all orders attached to a trade, ordered by execution time ascending.
func (r *Repository) FindOrdersByTrade(ctx context.Context, accountID, tradeID int64) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE account_id = ? AND trade_id = ? ORDER BY executed_time ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, accountID, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders for trade %d: %w", tradeID, err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// FindOrdersBySymbol retrieves all orders for a symbol on an account, ordered by execution time ascending.
func (r *Repository) FindOrdersBySymbol(ctx context.Context, accountID int64, symbol string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE account_id = ? AND symbol = ? ORDER BY executed_time ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, accountID, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders for symbol %s: %w", symbol, err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// FindOrderByBrokerID retrieves the order carrying the given broker-assigned ID.
func (r *Repository) FindOrderByBrokerID(ctx context.Context, accountID int64, brokerOrderID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE account_id = ? AND broker_order_id = ?`

	row := r.db.QueryRowContext(ctx, query, accountID, brokerOrderID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query order by broker ID %s: %w", brokerOrderID, err)
	}
	return order, nil
}

// ListSymbols returns the distinct symbols that have orders on the account.
func (r *Repository) ListSymbols(ctx context.Context, accountID int64) ([]string, error) {
	const query = `SELECT DISTINCT symbol FROM orders WHERE account_id = ? ORDER BY symbol ASC`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols for account %d: %w", accountID, err)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol during ListSymbols: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbol rows: %w", err)
	}
	return symbols, nil
}

// CountOrdersExecutedOn counts orders executed on a calendar date (YYYY-MM-DD).
func (r *Repository) CountOrdersExecutedOn(ctx context.Context, accountID int64, date string) (int, error) {
	const query = `SELECT COUNT(*) FROM orders WHERE account_id = ? AND date(executed_time) = ?`
	var count int
	err := r.db.QueryRowContext(ctx, query, accountID, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders on %s for account %d: %w", date, accountID, err)
	}
	return count, nil
}

// --- TradeRepository Implementation ---

const tradeColumns = `id, account_id, symbol, long_trade, open_date, close_date, duration_ns, closed,
       open_quantity, avg_entry_price, avg_exit_price, break_even_price, realized_gain,
       unrealized_gain, total_gain, total_gain_pct, largest_risk, total_fees,
       total_order_count, winning_trade, manually_adjusted`

// CreateTrade saves a new trade and returns its assigned ID.
func (r *Repository) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO trades (account_id, symbol, long_trade, open_date, close_date, duration_ns, closed,
	                    open_quantity, avg_entry_price, avg_exit_price, break_even_price, realized_gain,
	                    unrealized_gain, total_gain, total_gain_pct, largest_risk, total_fees,
	                    total_order_count, winning_trade, manually_adjusted)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		trade.AccountID, trade.Symbol, trade.LongTrade, trade.OpenDate, nullTime(trade.CloseDate),
		int64(trade.Duration), trade.Closed, trade.OpenQuantity, trade.AvgEntryPrice,
		nullFloat(trade.AvgExitPrice), trade.BreakEvenPrice, trade.RealizedGain,
		nullFloat(trade.UnrealizedGain), nullFloat(trade.TotalGain), nullFloat(trade.TotalGainPct),
		trade.LargestRisk, trade.TotalFees, trade.TotalOrderCount, nullBool(trade.WinningTrade),
		trade.ManuallyAdjusted)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade for symbol %s: %w", trade.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade %s: %w", trade.Symbol, err)
	}
	trade.TradeID = id // Update the domain object with the ID
	r.logger.Debug(ctx, "Trade created", map[string]interface{}{"tradeID": id, "symbol": trade.Symbol, "closed": trade.Closed})
	return id, nil
}

// UpdateTrade replaces a stored trade's computed fields.
func (r *Repository) UpdateTrade(ctx context.Context, trade *domain.Trade) error {
	const query = `
	UPDATE trades
	SET symbol = ?, long_trade = ?, open_date = ?, close_date = ?, duration_ns = ?, closed = ?,
	    open_quantity = ?, avg_entry_price = ?, avg_exit_price = ?, break_even_price = ?,
	    realized_gain = ?, unrealized_gain = ?, total_gain = ?, total_gain_pct = ?,
	    largest_risk = ?, total_fees = ?, total_order_count = ?, winning_trade = ?, manually_adjusted = ?
	WHERE id = ? AND account_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		trade.Symbol, trade.LongTrade, trade.OpenDate, nullTime(trade.CloseDate), int64(trade.Duration),
		trade.Closed, trade.OpenQuantity, trade.AvgEntryPrice, nullFloat(trade.AvgExitPrice),
		trade.BreakEvenPrice, trade.RealizedGain, nullFloat(trade.UnrealizedGain),
		nullFloat(trade.TotalGain), nullFloat(trade.TotalGainPct), trade.LargestRisk, trade.TotalFees,
		trade.TotalOrderCount, nullBool(trade.WinningTrade), trade.ManuallyAdjusted,
		trade.TradeID, trade.AccountID)
	if err != nil {
		return fmt.Errorf("failed to update trade ID %d: %w", trade.TradeID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for update trade ID %d: %w", trade.TradeID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade ID %d not found for update: %w", trade.TradeID, ports.ErrNotFound)
	}
	return nil
}

// DeleteTrade removes a trade. Orders that referenced it must be detached by the caller.
func (r *Repository) DeleteTrade(ctx context.Context, accountID, tradeID int64) error {
	const query = `DELETE FROM trades WHERE id = ? AND account_id = ?`

	result, err := r.db.ExecContext(ctx, query, tradeID, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete trade ID %d: %w", tradeID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for delete trade ID %d: %w", tradeID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade ID %d not found for delete: %w", tradeID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade deleted", map[string]interface{}{"tradeID": tradeID})
	return nil
}

// DeleteTradesBySymbol removes every trade for a symbol on an account, returning the deleted IDs.
func (r *Repository) DeleteTradesBySymbol(ctx context.Context, accountID int64, symbol string) ([]int64, error) {
	const selectQuery = `SELECT id FROM trades WHERE account_id = ? AND symbol = ? ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, selectQuery, accountID, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for symbol %s: %w", symbol, err)
	}
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan trade ID during DeleteTradesBySymbol: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating trade ID rows: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return ids, nil
	}

	const deleteQuery = `DELETE FROM trades WHERE account_id = ? AND symbol = ?`
	if _, err := r.db.ExecContext(ctx, deleteQuery, accountID, symbol); err != nil {
		return nil, fmt.Errorf("failed to delete trades for symbol %s: %w", symbol, err)
	}
	r.logger.Debug(ctx, "Trades deleted by symbol", map[string]interface{}{"symbol": symbol, "count": len(ids)})
	return ids, nil
}

// FindTradeByID retrieves a trade by its ID.
func (r *Repository) FindTradeByID(ctx context.Context, accountID, tradeID int64) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = ? AND account_id = ?`

	row := r.db.QueryRowContext(ctx, query, tradeID, accountID)
	trade, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query trade by ID %d: %w", tradeID, err)
	}
	return trade, nil
}

// FindOpenTrades retrieves all open trades for an account.
func (r *Repository) FindOpenTrades(ctx context.Context, accountID int64) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE account_id = ? AND closed = 0 ORDER BY open_date ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open trades for account %d: %w", accountID, err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

// FindTradesBySymbol retrieves all trades for a symbol on an account, ordered by open date ascending.
func (r *Repository) FindTradesBySymbol(ctx context.Context, accountID int64, symbol string) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE account_id = ? AND symbol = ? ORDER BY open_date ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, accountID, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for symbol %s: %w", symbol, err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

// --- QuoteRepository Implementation ---

// UpsertQuote inserts or refreshes a cached quote.
func (r *Repository) UpsertQuote(ctx context.Context, accountID int64, quote *domain.Quote) error {
	const query = `
	INSERT INTO quotes (account_id, symbol, price, last_updated)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(account_id, symbol) DO UPDATE SET price = excluded.price, last_updated = excluded.last_updated`

	if _, err := r.db.ExecContext(ctx, query, accountID, quote.Symbol, quote.Price, quote.LastUpdated); err != nil {
		return fmt.Errorf("failed to upsert quote for symbol %s: %w", quote.Symbol, err)
	}
	return nil
}

// FindQuotes returns all cached quotes for an account, keyed by symbol.
func (r *Repository) FindQuotes(ctx context.Context, accountID int64) (map[string]*domain.Quote, error) {
	const query = `SELECT symbol, price, last_updated FROM quotes WHERE account_id = ?`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes for account %d: %w", accountID, err)
	}
	defer rows.Close()

	quotes := make(map[string]*domain.Quote)
	for rows.Next() {
		q := &domain.Quote{}
		if err := rows.Scan(&q.Symbol, &q.Price, &q.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan quote during FindQuotes: %w", err)
		}
		quotes[q.Symbol] = q
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quote rows: %w", err)
	}
	return quotes, nil
}

// --- AccountRepository Implementation ---

// CreateAccount saves a new account and returns its assigned ID.
func (r *Repository) CreateAccount(ctx context.Context, account *domain.Account) (int64, error) {
	const query = `INSERT INTO accounts (name, broker_account_id) VALUES (?, ?)`

	result, err := r.db.ExecContext(ctx, query, account.Name, account.BrokerAccountID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert account %s: %w", account.Name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for account %s: %w", account.Name, err)
	}
	account.ID = id
	r.logger.Debug(ctx, "Account created", map[string]interface{}{"accountID": id, "name": account.Name})
	return id, nil
}

// FindAccountByID retrieves an account by ID.
func (r *Repository) FindAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	const query = `SELECT id, name, broker_account_id FROM accounts WHERE id = ?`

	a := &domain.Account{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Name, &a.BrokerAccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query account by ID %d: %w", id, err)
	}
	return a, nil
}

// FindAllAccounts retrieves every stored account.
func (r *Repository) FindAllAccounts(ctx context.Context) ([]*domain.Account, error) {
	const query = `SELECT id, name, broker_account_id FROM accounts ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query all accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		a := &domain.Account{}
		if err := rows.Scan(&a.ID, &a.Name, &a.BrokerAccountID); err != nil {
			return nil, fmt.Errorf("failed to scan account during FindAllAccounts: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanOrder scans a row into a domain.Order struct.
func scanOrder(s scanner) (*domain.Order, error) {
	o := &domain.Order{}
	var action string
	err := s.Scan(
		&o.OrderID, &o.AccountID, &o.TradeID, &o.BrokerOrderID, &o.Symbol, &action, &o.ExecutedTime,
		&o.Quantity, &o.ExecutedPrice, &o.OrderAmount, &o.Fees, &o.ManuallyAdjusted, &o.Comment,
		&o.IncompleteTrade)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	o.Action = domain.OrderAction(action)
	return o, nil
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var (
		closeDate  sql.NullTime
		durationNs int64
		avgExit    sql.NullFloat64
		unrealized sql.NullFloat64
		totalGain  sql.NullFloat64
		totalPct   sql.NullFloat64
		winning    sql.NullBool
	)
	err := s.Scan(
		&t.TradeID, &t.AccountID, &t.Symbol, &t.LongTrade, &t.OpenDate, &closeDate, &durationNs,
		&t.Closed, &t.OpenQuantity, &t.AvgEntryPrice, &avgExit, &t.BreakEvenPrice, &t.RealizedGain,
		&unrealized, &totalGain, &totalPct, &t.LargestRisk, &t.TotalFees,
		&t.TotalOrderCount, &winning, &t.ManuallyAdjusted)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	t.Duration = time.Duration(durationNs)
	if closeDate.Valid {
		t.CloseDate = &closeDate.Time
	}
	if avgExit.Valid {
		t.AvgExitPrice = &avgExit.Float64
	}
	if unrealized.Valid {
		t.UnrealizedGain = &unrealized.Float64
	}
	if totalGain.Valid {
		t.TotalGain = &totalGain.Float64
	}
	if totalPct.Valid {
		t.TotalGainPct = &totalPct.Float64
	}
	if winning.Valid {
		t.WinningTrade = &winning.Bool
	}
	return t, nil
}

func collectOrders(rows *sql.Rows) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	return orders, nil
}

func collectTrades(rows *sql.Rows) ([]*domain.Trade, error) {
	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
