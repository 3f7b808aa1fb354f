package pricing

import "github.com/shopspring/decimal"

// State tracks an invoice-in-progress. Settled is terminal: a settled invoice
// refuses further mutation.
type State string

const (
	// StateEmpty means no lines are present and every total is zero.
	StateEmpty State = "EMPTY"
	// StatePopulated means totals have been computed over at least one line.
	StatePopulated State = "POPULATED"
	// StateSettled means the invoice was submitted and is frozen.
	StateSettled State = "SETTLED"
)

// Charges are the invoice-level figures layered onto the line totals.
type Charges struct {
	Discount       decimal.Decimal `json:"discount"`
	Transportation decimal.Decimal `json:"transportation"`
	Unloading      decimal.Decimal `json:"unloading"`
	Handling       decimal.Decimal `json:"handlingcharge"`
}

// Totals is the full settlement bundle. Every currency figure is rounded to
// two decimals exactly once, here, after unrounded accumulation.
type Totals struct {
	State           State           `json:"state"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Discount        decimal.Decimal `json:"discount"`
	PerItemDiscount decimal.Decimal `json:"perItemDiscount"`
	AmountWithoutGST decimal.Decimal `json:"amountWithoutGST"`
	GSTAmount       decimal.Decimal `json:"gstAmount"`
	CGST            decimal.Decimal `json:"cgst"`
	SGST            decimal.Decimal `json:"sgst"`
	Transportation  decimal.Decimal `json:"transportation"`
	Unloading       decimal.Decimal `json:"unloading"`
	Handling        decimal.Decimal `json:"handlingcharge"`
	GrandTotal      decimal.Decimal `json:"grandTotal"`
}

// Engine computes settlement totals. It is pure: identical inputs always
// produce identical outputs.
type Engine struct {
	Tax TaxCalculator
}

// ComputeTotals reconciles the lines, the lump discount, and the ancillary
// charges into the settlement bundle.
//
// The grand total layers CGST and SGST back on top of the tax-inclusive,
// post-discount total they were extracted from. That reproduces the
// established invoice figures and is a fixed contract; amountWithoutGST is
// informational only.
func (e Engine) ComputeTotals(items []LineItem, ch Charges, mode GSTMode) Totals {
	if len(items) == 0 {
		// Discount and every derived figure reset; nothing stale survives
		// an emptied line set.
		return Totals{State: StateEmpty,
			TotalAmount:      decimal.Zero,
			Discount:         decimal.Zero,
			PerItemDiscount:  decimal.Zero,
			AmountWithoutGST: decimal.Zero,
			GSTAmount:        decimal.Zero,
			CGST:             decimal.Zero,
			SGST:             decimal.Zero,
			Transportation:   decimal.Zero,
			Unloading:        decimal.Zero,
			Handling:         decimal.Zero,
			GrandTotal:       decimal.Zero,
		}
	}

	perItem, nets := AllocateDiscount(items, ch.Discount)
	totalAmount := decimal.Zero
	for _, net := range nets {
		totalAmount = totalAmount.Add(net)
	}

	var tax TaxBreakdown
	switch mode {
	case GSTAdd:
		gst := decimal.Zero
		for _, it := range items {
			gst = gst.Add(e.Tax.AddLine(it.SellingPrice, it.GSTPercent, it.EnteredQty))
		}
		half := gst.Div(two)
		tax = TaxBreakdown{AmountExcludingGST: totalAmount, GSTAmount: gst, CGST: half, SGST: half}
	case GSTOff:
		tax = e.Tax.Disabled(totalAmount)
	default:
		tax = e.Tax.Extract(totalAmount)
	}

	grand := totalAmount.
		Add(tax.CGST).
		Add(tax.SGST).
		Add(ch.Transportation).
		Add(ch.Unloading).
		Add(ch.Handling)

	return Totals{
		State:            StatePopulated,
		TotalAmount:      Round2(totalAmount),
		Discount:         Round2(ch.Discount),
		PerItemDiscount:  Round2(perItem),
		AmountWithoutGST: Round2(tax.AmountExcludingGST),
		GSTAmount:        Round2(tax.GSTAmount),
		CGST:             Round2(tax.CGST),
		SGST:             Round2(tax.SGST),
		Transportation:   Round2(ch.Transportation),
		Unloading:        Round2(ch.Unloading),
		Handling:         Round2(ch.Handling),
		GrandTotal:       Round2(grand),
	}
}
