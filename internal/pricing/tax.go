package pricing

import "github.com/shopspring/decimal"

// GSTMode selects how tax is applied to a settlement.
type GSTMode string

const (
	// GSTExtract treats the total as tax-inclusive and extracts GST from it.
	GSTExtract GSTMode = "extract"
	// GSTAdd computes per-line tax from each line's own rate and adds it on top.
	GSTAdd GSTMode = "add"
	// GSTOff disables tax entirely; the taxed figure equals the pre-tax figure.
	GSTOff GSTMode = "off"
)

// Valid reports whether the mode is one of the supported values.
func (m GSTMode) Valid() bool {
	switch m {
	case GSTExtract, GSTAdd, GSTOff:
		return true
	}
	return false
}

// TaxBreakdown is the result of a GST computation. CGST and SGST are the two
// equal halves of the full GST amount.
type TaxBreakdown struct {
	AmountExcludingGST decimal.Decimal
	GSTAmount          decimal.Decimal
	CGST               decimal.Decimal
	SGST               decimal.Decimal
}

// TaxCalculator computes GST at a fixed rate expressed in basis points
// (1800 == 18%).
type TaxCalculator struct {
	RateBps int64
}

func (c TaxCalculator) divisor() decimal.Decimal {
	// 1 + rate, e.g. 1.18 for 18%
	return decimal.NewFromInt(1).Add(decimal.NewFromInt(c.RateBps).Div(bpsDivisor))
}

// Extract splits a tax-inclusive amount into its excluding-GST base and the
// CGST/SGST halves. Outputs stay unrounded so accumulation does not compound
// rounding error.
func (c TaxCalculator) Extract(amount decimal.Decimal) TaxBreakdown {
	if c.RateBps <= 0 {
		return c.Disabled(amount)
	}
	excl := amount.Div(c.divisor())
	gst := amount.Sub(excl)
	half := gst.Div(two)
	return TaxBreakdown{
		AmountExcludingGST: excl,
		GSTAmount:          gst,
		CGST:               half,
		SGST:               half,
	}
}

// AddLine computes addition-mode GST for one line: the line's own rate applied
// to its per-unit price, scaled by quantity. Used on purchase intake where
// prices are tax-exclusive.
func (c TaxCalculator) AddLine(sellingPrice, gstPercent, quantity decimal.Decimal) decimal.Decimal {
	if !gstPercent.IsPositive() {
		return decimal.Zero
	}
	return sellingPrice.Mul(gstPercent).Div(oneHundred).Mul(quantity)
}

// Disabled returns the zero-tax breakdown: the taxed figure equals the pre-tax
// figure.
func (c TaxCalculator) Disabled(amount decimal.Decimal) TaxBreakdown {
	return TaxBreakdown{AmountExcludingGST: amount}
}
