package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/noah-isme/backend-billing/internal/resilience"
)

// ErrProductNotFound is returned when the upstream API has no product for the id.
var ErrProductNotFound = errors.New("catalog: product not found")

// Client fetches product records from the upstream product API.
type Client interface {
	GetProduct(ctx context.Context, id string) (Product, error)
}

// RemoteClient talks to the product API over the shared resilient HTTP client.
type RemoteClient struct {
	BaseURL string
	HTTP    resilience.HTTPClient
}

// GetProduct fetches a single product by its id.
func (c RemoteClient) GetProduct(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, errors.New("catalog: product id is required")
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/products/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Product{}, fmt.Errorf("build product request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return Product{}, fmt.Errorf("fetch product %s: %w", id, err)
	}
	defer func() { _ = resp.Body.Close() }()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Product{}, ErrProductNotFound
	case resp.StatusCode != http.StatusOK:
		return Product{}, fmt.Errorf("fetch product %s: unexpected status %s", id, resp.Status)
	}
	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return Product{}, fmt.Errorf("decode product %s: %w", id, err)
	}
	if product.ID == "" {
		product.ID = id
	}
	return product, nil
}
