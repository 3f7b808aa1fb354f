package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/pricing"
)

// Service looks up products through the cache and expresses their stock in
// billing units.
type Service struct {
	client Client
	cache  *Cache
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Client Client
	Cache  *Cache
}

// Availability is a product's stock expressed in a requested billing unit,
// together with the derived default selling price for that unit.
type Availability struct {
	ProductID           string          `json:"item_id"`
	Name                string          `json:"name"`
	Category            string          `json:"category"`
	Brand               string          `json:"brand"`
	Unit                string          `json:"unit"`
	StockQty            decimal.Decimal `json:"countInStock"`
	AvailableQty        decimal.Decimal `json:"availableQty"`
	DefaultSellingPrice decimal.Decimal `json:"defaultSellingPrice"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Client == nil {
		return nil, errors.New("catalog: product client is required")
	}
	return &Service{client: cfg.Client, cache: cfg.Cache}, nil
}

// GetProduct returns a product record, serving from cache when possible.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	if cached, ok, err := s.cache.GetProduct(ctx, id); err == nil && ok {
		return cached, nil
	}
	product, err := s.client.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return Product{}, &common.AppError{
				Code:       "NOT_FOUND",
				Message:    "product not found",
				HTTPStatus: http.StatusNotFound,
				Err:        err,
			}
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	_ = s.cache.SetProduct(ctx, product)
	return product, nil
}

// Availability expresses the product's tracked stock in the requested billing
// unit and derives the default selling price for that unit.
func (s *Service) Availability(ctx context.Context, id, rawUnit string) (Availability, error) {
	unit, err := pricing.ParseUnit(rawUnit)
	if err != nil {
		return Availability{}, &common.AppError{
			Code:       "BAD_REQUEST",
			Message:    "unknown billing unit",
			HTTPStatus: http.StatusBadRequest,
			Err:        err,
			Details:    map[string]any{"unit": rawUnit},
		}
	}
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return Availability{}, err
	}
	dims := product.Dims()
	available, err := pricing.StockToUnit(product.CountInStock, unit, dims)
	if err != nil {
		return Availability{}, unprocessable(product.ID, err)
	}
	price, err := pricing.DefaultSellingPrice(product.Price, product.Category, unit, dims)
	if err != nil {
		return Availability{}, unprocessable(product.ID, err)
	}
	return Availability{
		ProductID:           product.ID,
		Name:                product.Name,
		Category:            product.Category,
		Brand:               product.Brand,
		Unit:                string(unit),
		StockQty:            product.CountInStock,
		AvailableQty:        pricing.Round2(available),
		DefaultSellingPrice: pricing.Round2(price),
	}, nil
}

func unprocessable(productID string, err error) *common.AppError {
	return &common.AppError{
		Code:       "UNPROCESSABLE",
		Message:    "product measurements do not support the requested unit",
		HTTPStatus: http.StatusUnprocessableEntity,
		Err:        err,
		Details:    map[string]any{"item_id": productID, "reason": err.Error()},
	}
}
