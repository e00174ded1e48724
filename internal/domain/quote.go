package domain

import "time"

// Quote is a last-known price for a symbol, used to value open trades.
type Quote struct {
	Symbol      string
	Price       float64
	LastUpdated time.Time
}
