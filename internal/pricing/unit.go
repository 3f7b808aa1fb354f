package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BillingUnit identifies the unit a line quantity and price are entered in.
// Each unit implies a conversion between the entered figures and the
// stock-tracked quantity / per-stock-unit price.
type BillingUnit string

const (
	// UnitSQFT bills by square foot; quantity and price convert through the tile area.
	UnitSQFT BillingUnit = "SQFT"
	// UnitGSQFT bills granite by square foot; converts like SQFT.
	UnitGSQFT BillingUnit = "GSQFT"
	// UnitBOX bills by box; quantity converts through psRatio, price through the area.
	UnitBOX BillingUnit = "BOX"
	// UnitNOS bills by piece; no conversion.
	UnitNOS BillingUnit = "NOS"
	// UnitTNOS bills tiles by piece; quantity passes through, price scales by the area.
	UnitTNOS BillingUnit = "TNOS"
)

// ParseUnit normalises a unit string. Unknown values yield ErrUnknownUnit.
func ParseUnit(raw string) (BillingUnit, error) {
	switch BillingUnit(strings.ToUpper(strings.TrimSpace(raw))) {
	case UnitSQFT:
		return UnitSQFT, nil
	case UnitGSQFT:
		return UnitGSQFT, nil
	case UnitBOX:
		return UnitBOX, nil
	case UnitNOS:
		return UnitNOS, nil
	case UnitTNOS:
		return UnitTNOS, nil
	default:
		return "", ErrUnknownUnit
	}
}

// Dims carries the product measurements conversions depend on.
type Dims struct {
	Length     decimal.Decimal
	Breadth    decimal.Decimal
	ActLength  decimal.Decimal
	ActBreadth decimal.Decimal
	PSRatio    decimal.Decimal
}

// Area returns length × breadth.
func (d Dims) Area() decimal.Decimal {
	return d.Length.Mul(d.Breadth)
}

// ActArea returns actLength × actBreadth.
func (d Dims) ActArea() decimal.Decimal {
	return d.ActLength.Mul(d.ActBreadth)
}

// StockToUnit expresses a stock-tracked quantity in the given billing unit, the
// direction used to show available stock to the person entering a line.
// When the measurements needed for the conversion are missing the stock
// quantity is passed through unchanged alongside the validation error, so the
// caller can surface the problem without ever seeing Inf or NaN.
func StockToUnit(stockQty decimal.Decimal, unit BillingUnit, d Dims) (decimal.Decimal, error) {
	switch unit {
	case UnitSQFT, UnitGSQFT:
		area := d.Area()
		if !area.IsPositive() {
			return stockQty, ErrMissingDimensions
		}
		return stockQty.Mul(area), nil
	case UnitBOX:
		if !d.PSRatio.IsPositive() {
			return stockQty, ErrMissingPieceRatio
		}
		return stockQty.Div(d.PSRatio), nil
	case UnitNOS, UnitTNOS:
		return stockQty, nil
	default:
		return stockQty, ErrUnknownUnit
	}
}

// Converted holds the stock-side pair derived from an entered quantity and
// price. Quantity is what inventory tracks; PriceInQty is the selling price
// re-expressed per stock unit. The two are always derived together.
type Converted struct {
	Quantity   decimal.Decimal
	PriceInQty decimal.Decimal
}

// UnitToStock converts an entered quantity and per-billing-unit price into the
// stock-tracked quantity and per-stock-unit price. A missing area or piece
// ratio yields the entered figures unchanged together with the validation
// error; division by zero never happens.
func UnitToStock(enteredQty, enteredPrice decimal.Decimal, unit BillingUnit, d Dims) (Converted, error) {
	passthrough := Converted{Quantity: enteredQty, PriceInQty: enteredPrice}
	switch unit {
	case UnitSQFT, UnitGSQFT:
		area := d.Area()
		if !area.IsPositive() {
			return passthrough, ErrMissingDimensions
		}
		return Converted{
			Quantity:   enteredQty.Div(area),
			PriceInQty: enteredPrice.Mul(area),
		}, nil
	case UnitBOX:
		if !d.PSRatio.IsPositive() {
			return passthrough, ErrMissingPieceRatio
		}
		area := d.Area()
		if !area.IsPositive() {
			return passthrough, ErrMissingDimensions
		}
		return Converted{
			Quantity:   enteredQty.Mul(d.PSRatio),
			PriceInQty: enteredPrice.Mul(area),
		}, nil
	case UnitTNOS:
		area := d.Area()
		if !area.IsPositive() {
			return passthrough, ErrMissingDimensions
		}
		return Converted{
			Quantity:   enteredQty,
			PriceInQty: enteredPrice.Mul(area),
		}, nil
	case UnitNOS:
		return passthrough, nil
	default:
		return passthrough, ErrUnknownUnit
	}
}
