package pricing

import "errors"

var (
	// ErrMissingProduct is returned when a line names no product.
	ErrMissingProduct = errors.New("pricing: product id required")
	// ErrNonPositiveQuantity is returned when a line would carry a zero or negative quantity.
	ErrNonPositiveQuantity = errors.New("pricing: quantity must be positive")
	// ErrNonPositivePrice is returned when a line would carry a zero or negative selling price.
	ErrNonPositivePrice = errors.New("pricing: selling price must be positive")
	// ErrMissingDimensions indicates the product lacks the length/breadth needed for area conversion.
	ErrMissingDimensions = errors.New("pricing: product dimensions required for unit conversion")
	// ErrMissingPieceRatio indicates the product lacks the psRatio needed for BOX conversion.
	ErrMissingPieceRatio = errors.New("pricing: piece ratio required for box conversion")
	// ErrUnknownUnit is returned for a billing unit outside the supported set.
	ErrUnknownUnit = errors.New("pricing: unknown billing unit")
	// ErrReturnExceedsSold is returned when a return quantity exceeds the originally billed quantity.
	ErrReturnExceedsSold = errors.New("pricing: return quantity exceeds billed quantity")
	// ErrSettled indicates the settlement is terminal and refuses further mutation.
	ErrSettled = errors.New("pricing: settlement already finalised")
)
