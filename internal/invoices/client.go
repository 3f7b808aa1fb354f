package invoices

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/pricing"
	"github.com/noah-isme/backend-billing/internal/resilience"
)

// ErrInvoiceNotFound is returned when the invoice API has no record for the number.
var ErrInvoiceNotFound = errors.New("invoices: invoice not found")

// Submission is the flattened settlement posted to the invoice API. The field
// names are a stable contract with that API and must not change.
type Submission struct {
	InvoiceNo      string             `json:"invoiceNo"`
	Kind           string             `json:"kind,omitempty"`
	Products       []pricing.LineItem `json:"products"`
	Discount       decimal.Decimal    `json:"discount"`
	Unloading      decimal.Decimal    `json:"unloading"`
	Transportation decimal.Decimal    `json:"transportation"`
	HandlingCharge decimal.Decimal    `json:"handlingcharge"`
	BillingAmount  decimal.Decimal    `json:"billingAmount"`
	GrandTotal     decimal.Decimal    `json:"grandTotal"`
}

// Invoice is the prior-invoice payload returned by the invoice API, the
// inputs return computation needs.
type Invoice struct {
	InvoiceNo string             `json:"invoiceNo"`
	Products  []pricing.LineItem `json:"products"`
	Discount  decimal.Decimal    `json:"discount"`
}

// SubmitResult reports the persisted invoice reference.
type SubmitResult struct {
	InvoiceNo string `json:"invoiceNo"`
	Status    string `json:"status"`
}

// Client is the behaviour the billing and returns flows need from the
// invoice persistence API.
type Client interface {
	GetInvoice(ctx context.Context, invoiceNo string) (Invoice, error)
	SubmitSettlement(ctx context.Context, sub Submission) (SubmitResult, error)
}

// RemoteClient talks to the invoice API over the shared resilient HTTP client.
type RemoteClient struct {
	BaseURL string
	HTTP    resilience.HTTPClient
}

// GetInvoice fetches a previously persisted invoice by number.
func (c RemoteClient) GetInvoice(ctx context.Context, invoiceNo string) (Invoice, error) {
	invoiceNo = strings.TrimSpace(invoiceNo)
	if invoiceNo == "" {
		return Invoice{}, errors.New("invoices: invoice number is required")
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/invoices/" + url.PathEscape(invoiceNo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Invoice{}, fmt.Errorf("build invoice request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return Invoice{}, fmt.Errorf("fetch invoice %s: %w", invoiceNo, err)
	}
	defer func() { _ = resp.Body.Close() }()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Invoice{}, ErrInvoiceNotFound
	case resp.StatusCode != http.StatusOK:
		return Invoice{}, fmt.Errorf("fetch invoice %s: unexpected status %s", invoiceNo, resp.Status)
	}
	var invoice Invoice
	if err := json.NewDecoder(resp.Body).Decode(&invoice); err != nil {
		return Invoice{}, fmt.Errorf("decode invoice %s: %w", invoiceNo, err)
	}
	if invoice.InvoiceNo == "" {
		invoice.InvoiceNo = invoiceNo
	}
	return invoice, nil
}

// SubmitSettlement posts the flattened settlement to the invoice API.
func (c RemoteClient) SubmitSettlement(ctx context.Context, sub Submission) (SubmitResult, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("encode settlement: %w", err)
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/invoices"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("build settlement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("submit settlement %s: %w", sub.InvoiceNo, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return SubmitResult{}, fmt.Errorf("submit settlement %s: unexpected status %s", sub.InvoiceNo, resp.Status)
	}
	// some deployments reply with an empty body; keep the defaults then
	var result SubmitResult
	_ = json.NewDecoder(resp.Body).Decode(&result)
	if result.InvoiceNo == "" {
		result.InvoiceNo = sub.InvoiceNo
	}
	if result.Status == "" {
		result.Status = "submitted"
	}
	return result, nil
}
