package domain

// Account ties a local account record to its broker-side identity.
type Account struct {
	ID              int64  // Local identifier (assigned by the repository)
	Name            string // Human-readable label
	BrokerAccountID string // Identifier at the broker
}
