package pricing

import "github.com/shopspring/decimal"

// TotalQuantity sums the stock-tracked quantity across lines.
func TotalQuantity(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Quantity)
	}
	return total
}

// PerItemDiscount spreads a lump discount per unit of quantity. A zero total
// quantity ignores the discount instead of dividing by it.
func PerItemDiscount(discount decimal.Decimal, totalQty decimal.Decimal) decimal.Decimal {
	if !totalQty.IsPositive() {
		return decimal.Zero
	}
	return discount.Div(totalQty)
}

// AllocateDiscount distributes a lump discount across the lines proportional
// to quantity. It returns the per-unit figure and each line's net total
// (gross minus the line's discount share). The shares sum back to the full
// discount; nothing is truncated.
func AllocateDiscount(items []LineItem, discount decimal.Decimal) (perItem decimal.Decimal, nets []decimal.Decimal) {
	perItem = PerItemDiscount(discount, TotalQuantity(items))
	nets = make([]decimal.Decimal, len(items))
	for i, it := range items {
		nets[i] = it.GrossTotal().Sub(perItem.Mul(it.Quantity))
	}
	return perItem, nets
}
