package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/pricing"
)

// Product mirrors the record served by the upstream product API. Prices are
// cost prices per stock unit; dimensions are in feet.
type Product struct {
	ID           string          `json:"item_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Brand        string          `json:"brand"`
	Size         string          `json:"size"`
	Price        decimal.Decimal `json:"price"`
	CountInStock decimal.Decimal `json:"countInStock"`
	Length       decimal.Decimal `json:"length"`
	Breadth      decimal.Decimal `json:"breadth"`
	ActLength    decimal.Decimal `json:"actLength"`
	ActBreadth   decimal.Decimal `json:"actBreadth"`
	PSRatio      decimal.Decimal `json:"psRatio"`
}

// Dims lifts the product measurements into the shape the conversions take.
func (p Product) Dims() pricing.Dims {
	return pricing.Dims{
		Length:     p.Length,
		Breadth:    p.Breadth,
		ActLength:  p.ActLength,
		ActBreadth: p.ActBreadth,
		PSRatio:    p.PSRatio,
	}
}
