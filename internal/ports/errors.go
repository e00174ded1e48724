package ports

import "errors"

// Standard application-level errors.
// Adapters and core components wrap underlying errors with these sentinels so
// callers can discriminate with errors.Is.
var (
	// General Errors
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Order/Trade Contract Errors
	ErrInvalidOrder   = errors.New("order violates its construction contract")
	ErrEmptyOrderList = errors.New("at least one order is required")
	ErrSymbolMismatch = errors.New("symbol does not match the trade's symbol")

	// Data Integrity Errors (upstream corruption, not recoverable locally)
	ErrDataIntegrity      = errors.New("data integrity violation")
	ErrStrictSegmentation = errors.New("exit quantity exceeds available entry quantity in a complete order history")

	// Broker Specific Errors
	ErrBrokerUnavailable    = errors.New("broker API is unavailable")
	ErrAuthenticationFailed = errors.New("broker authentication failed (check API keys)")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrOrderPlacementFailed = errors.New("failed to place order")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
	ErrDeleteFailed   = errors.New("database delete failed")
)
