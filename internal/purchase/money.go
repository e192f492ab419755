package purchase

import "github.com/shopspring/decimal"

// minorUnits converts a major-unit price to the gateway's integer minor-unit
// amount, rounding half up: 19.99 -> 1999, 19.995 -> 2000.
func minorUnits(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
