package domain

// OrderAction identifies what a broker execution did to a position.
// The set is closed: every filled order is exactly one of these four.
type OrderAction string

const (
	Buy        OrderAction = "BUY"
	Sell       OrderAction = "SELL"
	SellShort  OrderAction = "SELL_SHORT"
	BuyToCover OrderAction = "BUY_TO_COVER"
)

// IsBuy reports whether the action is a long-side purchase.
func (a OrderAction) IsBuy() bool { return a == Buy }

// IsSell reports whether the action is a long-side sale.
func (a OrderAction) IsSell() bool { return a == Sell }

// IsSellShort reports whether the action opens or extends a short position.
func (a OrderAction) IsSellShort() bool { return a == SellShort }

// IsBuyToCover reports whether the action reduces or closes a short position.
func (a OrderAction) IsBuyToCover() bool { return a == BuyToCover }

// IsLongTrade reports whether the action belongs to a long position's lifecycle.
func (a OrderAction) IsLongTrade() bool { return a == Buy || a == Sell }

// IsShortTrade reports whether the action belongs to a short position's lifecycle.
func (a OrderAction) IsShortTrade() bool { return a == SellShort || a == BuyToCover }

// IsEntry reports whether the action increases the absolute size of a
// position, relative to the action's own direction (Buy for long,
// SellShort for short).
func (a OrderAction) IsEntry() bool { return a == Buy || a == SellShort }

// IsExit reports whether the action decreases the absolute size of a
// position, relative to the action's own direction (Sell for long,
// BuyToCover for short).
func (a OrderAction) IsExit() bool { return a == Sell || a == BuyToCover }

// IsValid reports whether the value is one of the four known actions.
func (a OrderAction) IsValid() bool {
	switch a {
	case Buy, Sell, SellShort, BuyToCover:
		return true
	}
	return false
}
