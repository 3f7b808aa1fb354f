package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewLineItemDerivesStockPairTogether(t *testing.T) {
	in := LineInput{
		ProductID:    "p1",
		Name:         "Glossy 600x600",
		Category:     "TILES",
		Unit:         UnitSQFT,
		EnteredQty:   decimal.NewFromInt(12),
		SellingPrice: decimal.NewFromInt(60),
		Dims:         Dims{Length: decimal.NewFromInt(2), Breadth: decimal.NewFromInt(3)},
	}
	li, err := in.NewLineItem()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !li.Quantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected quantity 2, got %s", li.Quantity)
	}
	if !li.SellingPriceInQty.Equal(decimal.NewFromInt(360)) {
		t.Fatalf("expected price 360, got %s", li.SellingPriceInQty)
	}
	if !li.GrossTotal().Equal(decimal.NewFromInt(720)) {
		t.Fatalf("expected gross 720, got %s", li.GrossTotal())
	}
}

func TestNewLineItemRejectsNonPositiveFigures(t *testing.T) {
	base := LineInput{
		ProductID:    "p1",
		Unit:         UnitNOS,
		EnteredQty:   decimal.NewFromInt(1),
		SellingPrice: decimal.NewFromInt(1),
	}

	in := base
	in.EnteredQty = decimal.Zero
	if _, err := in.NewLineItem(); !errors.Is(err, ErrNonPositiveQuantity) {
		t.Fatalf("expected ErrNonPositiveQuantity, got %v", err)
	}

	in = base
	in.SellingPrice = decimal.NewFromInt(-5)
	if _, err := in.NewLineItem(); !errors.Is(err, ErrNonPositivePrice) {
		t.Fatalf("expected ErrNonPositivePrice, got %v", err)
	}

	in = base
	in.ProductID = "  "
	if _, err := in.NewLineItem(); !errors.Is(err, ErrMissingProduct) {
		t.Fatalf("expected ErrMissingProduct, got %v", err)
	}
}

func TestNewLineItemSurfacesConversionFailure(t *testing.T) {
	in := LineInput{
		ProductID:    "p1",
		Unit:         UnitSQFT,
		EnteredQty:   decimal.NewFromInt(10),
		SellingPrice: decimal.NewFromInt(10),
	}
	if _, err := in.NewLineItem(); !errors.Is(err, ErrMissingDimensions) {
		t.Fatalf("expected ErrMissingDimensions, got %v", err)
	}
}
