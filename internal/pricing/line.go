package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is a billed line after unit conversion. EnteredQty and SellingPrice
// are the figures as typed in the billing unit; Quantity and SellingPriceInQty
// are the stock-side pair. The two derived fields are always recomputed
// together whenever the entered figures or the unit change.
type LineItem struct {
	ProductID    string          `json:"item_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Brand        string          `json:"brand,omitempty"`
	Unit         BillingUnit     `json:"unit"`
	EnteredQty   decimal.Decimal `json:"enteredQty"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	// Stock-side pair, derived.
	Quantity          decimal.Decimal `json:"quantity"`
	SellingPriceInQty decimal.Decimal `json:"sellingPriceinQty"`
	// GSTPercent is carried for addition-mode tax on purchase intake lines.
	GSTPercent decimal.Decimal `json:"gstPercent,omitempty"`
}

// LineInput is the raw material for a line: a product snapshot plus the
// entered figures.
type LineInput struct {
	ProductID    string
	Name         string
	Category     string
	Brand        string
	Unit         BillingUnit
	EnteredQty   decimal.Decimal
	SellingPrice decimal.Decimal
	Dims         Dims
	GSTPercent   decimal.Decimal
}

// NewLineItem validates the entered figures, runs the unit conversion, and
// returns the complete line. Validation failures reject the line here, at
// construction time, so settlement never sees a non-positive quantity or
// price.
func (in LineInput) NewLineItem() (LineItem, error) {
	if strings.TrimSpace(in.ProductID) == "" {
		return LineItem{}, ErrMissingProduct
	}
	if !in.EnteredQty.IsPositive() {
		return LineItem{}, ErrNonPositiveQuantity
	}
	if !in.SellingPrice.IsPositive() {
		return LineItem{}, ErrNonPositivePrice
	}
	conv, err := UnitToStock(in.EnteredQty, in.SellingPrice, in.Unit, in.Dims)
	if err != nil {
		return LineItem{}, err
	}
	if !conv.Quantity.IsPositive() || !conv.PriceInQty.IsPositive() {
		return LineItem{}, ErrNonPositiveQuantity
	}
	return LineItem{
		ProductID:         in.ProductID,
		Name:              in.Name,
		Category:          in.Category,
		Brand:             in.Brand,
		Unit:              in.Unit,
		EnteredQty:        in.EnteredQty,
		SellingPrice:      in.SellingPrice,
		Quantity:          conv.Quantity,
		SellingPriceInQty: conv.PriceInQty,
		GSTPercent:        in.GSTPercent,
	}, nil
}

// GrossTotal is the pre-discount line total in stock terms.
func (li LineItem) GrossTotal() decimal.Decimal {
	return li.Quantity.Mul(li.SellingPriceInQty)
}
