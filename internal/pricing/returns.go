package pricing

import "github.com/shopspring/decimal"

// ReturnLine is an original invoice line priced for return: the unit price net
// of that invoice's per-item discount share, and the quantity ceiling imposed
// by what was billed.
type ReturnLine struct {
	ProductID   string          `json:"item_id"`
	Name        string          `json:"name"`
	Unit        BillingUnit     `json:"unit"`
	BilledQty   decimal.Decimal `json:"quantity"`
	ReturnPrice decimal.Decimal `json:"returnPrice"`
}

// BuildReturnLines recomputes the per-item discount exactly as billing did and
// nets it out of each line's per-stock-unit price.
func BuildReturnLines(original []LineItem, originalDiscount decimal.Decimal) []ReturnLine {
	perItem := PerItemDiscount(originalDiscount, TotalQuantity(original))
	lines := make([]ReturnLine, len(original))
	for i, it := range original {
		lines[i] = ReturnLine{
			ProductID:   it.ProductID,
			Name:        it.Name,
			Unit:        it.Unit,
			BilledQty:   it.Quantity,
			ReturnPrice: it.SellingPriceInQty.Sub(perItem),
		}
	}
	return lines
}

// ReturnRequest pairs a return line with the quantity being sent back.
type ReturnRequest struct {
	Line     ReturnLine
	Quantity decimal.Decimal
}

// ReturnTotals is the refund bundle for a return.
type ReturnTotals struct {
	ReturnAmount    decimal.Decimal `json:"returnAmount"`
	CGST            decimal.Decimal `json:"cgst"`
	SGST            decimal.Decimal `json:"sgst"`
	NetReturnAmount decimal.Decimal `json:"netReturnAmount"`
}

// ComputeReturn totals the refund. Each requested quantity must stay within
// the originally billed quantity. When GST applies, CGST/SGST are extracted
// from the return amount and the net figure layers them back on top, the same
// add-back rule the settlement grand total uses.
func (e Engine) ComputeReturn(requests []ReturnRequest, mode GSTMode) (ReturnTotals, error) {
	amount := decimal.Zero
	for _, req := range requests {
		if !req.Quantity.IsPositive() {
			return ReturnTotals{}, ErrNonPositiveQuantity
		}
		if req.Quantity.GreaterThan(req.Line.BilledQty) {
			return ReturnTotals{}, ErrReturnExceedsSold
		}
		amount = amount.Add(req.Line.ReturnPrice.Mul(req.Quantity))
	}

	var tax TaxBreakdown
	if mode == GSTOff {
		tax = e.Tax.Disabled(amount)
	} else {
		tax = e.Tax.Extract(amount)
	}
	net := amount.Add(tax.CGST).Add(tax.SGST)

	return ReturnTotals{
		ReturnAmount:    Round2(amount),
		CGST:            Round2(tax.CGST),
		SGST:            Round2(tax.SGST),
		NetReturnAmount: Round2(net),
	}, nil
}
