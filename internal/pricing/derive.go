package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category markup divisors: the cost price divided by the divisor yields the
// default selling price per stock unit.
var (
	markupTiles   = decimal.RequireFromString("0.80")
	markupGranite = decimal.RequireFromString("0.65")
	markupDefault = decimal.RequireFromString("0.70")
)

// MarkupDivisor returns the category markup divisor applied to the cost price.
func MarkupDivisor(category string) decimal.Decimal {
	switch {
	case strings.EqualFold(strings.TrimSpace(category), "TILES"):
		return markupTiles
	case strings.EqualFold(strings.TrimSpace(category), "GRANITE"):
		return markupGranite
	default:
		return markupDefault
	}
}

// DefaultSellingPrice derives the seeded selling price per billing unit from a
// cost price and product category. It is a default only: callers seed the field
// on product selection or unit change and never overwrite a price the user has
// already typed.
//
// SQFT divides the per-stock-unit base by the actual tile area, BOX multiplies
// by the piece ratio; every other unit keeps the per-stock-unit figure.
func DefaultSellingPrice(costPrice decimal.Decimal, category string, unit BillingUnit, d Dims) (decimal.Decimal, error) {
	base := costPrice.Div(MarkupDivisor(category))
	switch unit {
	case UnitSQFT:
		actArea := d.ActArea()
		if !actArea.IsPositive() {
			return base, ErrMissingDimensions
		}
		return base.Div(actArea), nil
	case UnitBOX:
		if !d.PSRatio.IsPositive() {
			return base, ErrMissingPieceRatio
		}
		return base.Mul(d.PSRatio), nil
	default:
		return base, nil
	}
}
