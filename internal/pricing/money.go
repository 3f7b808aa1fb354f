package pricing

import "github.com/shopspring/decimal"

// Round2 rounds a currency value to two decimal places. Intermediate sums stay
// unrounded; callers round once, at the point the value is stored or displayed.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

var (
	two        = decimal.NewFromInt(2)
	oneHundred = decimal.NewFromInt(100)
	bpsDivisor = decimal.NewFromInt(10000)
)
