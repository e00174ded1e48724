package domain

// Position is the broker's authoritative snapshot of a currently held symbol.
// The broker is the source of truth during reconciliation; locally computed
// open trades are adjusted to match it.
type Position struct {
	Symbol   string
	Quantity float64 // Signed: positive for long, negative for short
	Price    float64 // Broker's cost-basis estimate per unit
}

// IsShort reports whether the broker holds the symbol short.
func (p *Position) IsShort() bool {
	return p.Quantity < 0
}
