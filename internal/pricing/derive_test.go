package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaultSellingPriceTilesSQFT(t *testing.T) {
	d := Dims{ActLength: decimal.NewFromInt(2), ActBreadth: decimal.NewFromInt(1)}
	price, err := DefaultSellingPrice(decimal.NewFromInt(100), "TILES", UnitSQFT, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 100 / 0.8 = 125 per stock unit, / 2 sqft = 62.5
	if !price.Equal(dec(t, "62.5")) {
		t.Fatalf("expected 62.5, got %s", price)
	}
}

func TestDefaultSellingPriceGraniteBox(t *testing.T) {
	d := Dims{PSRatio: decimal.NewFromInt(4)}
	price, err := DefaultSellingPrice(decimal.NewFromInt(65), "GRANITE", UnitBOX, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected 400, got %s", price)
	}
}

func TestDefaultSellingPriceOtherCategory(t *testing.T) {
	price, err := DefaultSellingPrice(decimal.NewFromInt(70), "ADHESIVE", UnitNOS, Dims{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100, got %s", price)
	}
}

func TestDefaultSellingPriceMissingActualArea(t *testing.T) {
	price, err := DefaultSellingPrice(decimal.NewFromInt(80), "TILES", UnitSQFT, Dims{})
	if !errors.Is(err, ErrMissingDimensions) {
		t.Fatalf("expected ErrMissingDimensions, got %v", err)
	}
	// Falls back to the per-stock-unit base.
	if !price.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected base 100, got %s", price)
	}
}

func TestMarkupDivisorCaseInsensitive(t *testing.T) {
	if !MarkupDivisor("tiles").Equal(dec(t, "0.80")) {
		t.Fatal("expected tiles divisor 0.80")
	}
	if !MarkupDivisor("granite").Equal(dec(t, "0.65")) {
		t.Fatal("expected granite divisor 0.65")
	}
	if !MarkupDivisor("").Equal(dec(t, "0.70")) {
		t.Fatal("expected default divisor 0.70")
	}
}
