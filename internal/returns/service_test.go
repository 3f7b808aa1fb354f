package returns

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/invoices"
	"github.com/noah-isme/backend-billing/internal/pricing"
	"github.com/noah-isme/backend-billing/internal/queue"
)

type fakeInvoices struct {
	invoice invoices.Invoice
}

func (f fakeInvoices) GetInvoice(_ context.Context, no string) (invoices.Invoice, error) {
	if no != f.invoice.InvoiceNo {
		return invoices.Invoice{}, invoices.ErrInvoiceNotFound
	}
	return f.invoice, nil
}

func (f fakeInvoices) SubmitSettlement(_ context.Context, sub invoices.Submission) (invoices.SubmitResult, error) {
	return invoices.SubmitResult{InvoiceNo: sub.InvoiceNo, Status: "submitted"}, nil
}

type captureQueue struct {
	tasks []queue.Task
}

func (c *captureQueue) Enqueue(_ context.Context, t queue.Task) error {
	c.tasks = append(c.tasks, t)
	return nil
}

func newTestService() (*Service, *captureQueue) {
	// original invoice: 10 units at 500 per stock unit, lump discount 50
	original := invoices.Invoice{
		InvoiceNo: "INV-1",
		Discount:  decimal.NewFromInt(50),
		Products: []pricing.LineItem{{
			ProductID:         "p1",
			Name:              "Vitrified 600",
			Unit:              pricing.UnitNOS,
			EnteredQty:        decimal.NewFromInt(10),
			SellingPrice:      decimal.NewFromInt(500),
			Quantity:          decimal.NewFromInt(10),
			SellingPriceInQty: decimal.NewFromInt(500),
		}},
	}
	q := &captureQueue{}
	svc := &Service{
		Invoices: fakeInvoices{invoice: original},
		Queue:    q,
		Engine:   pricing.Engine{Tax: pricing.TaxCalculator{RateBps: 1800}},
	}
	return svc, q
}

func TestBuildQuoteNetsOutOriginalDiscount(t *testing.T) {
	svc, _ := newTestService()

	quote, err := svc.BuildQuote(context.Background(), QuoteInput{
		InvoiceNo: "INV-1",
		GSTOff:    true,
		Items:     []QuoteItem{{ProductID: "p1", Quantity: decimal.NewFromInt(2)}},
	})
	if err != nil {
		t.Fatalf("BuildQuote: %v", err)
	}
	line := quote.Lines[0]
	// perItemDiscount = 50/10 = 5, returnPrice = 495
	if !line.ReturnPrice.Equal(decimal.NewFromInt(495)) {
		t.Fatalf("returnPrice = %s, want 495", line.ReturnPrice)
	}
	if !line.LineAmount.Equal(decimal.NewFromInt(990)) {
		t.Fatalf("lineAmount = %s, want 990", line.LineAmount)
	}
	if !quote.Totals.ReturnAmount.Equal(decimal.NewFromInt(990)) {
		t.Fatalf("returnAmount = %s, want 990", quote.Totals.ReturnAmount)
	}
	if !quote.Totals.NetReturnAmount.Equal(decimal.NewFromInt(990)) {
		t.Fatalf("gst off: netReturnAmount = %s, want 990", quote.Totals.NetReturnAmount)
	}
}

func TestBuildQuoteWithGSTAddsExtractedTax(t *testing.T) {
	svc, _ := newTestService()

	quote, err := svc.BuildQuote(context.Background(), QuoteInput{
		InvoiceNo: "INV-1",
		Items:     []QuoteItem{{ProductID: "p1", Quantity: decimal.NewFromInt(2)}},
	})
	if err != nil {
		t.Fatalf("BuildQuote: %v", err)
	}
	sum := quote.Totals.ReturnAmount.Add(quote.Totals.CGST).Add(quote.Totals.SGST)
	if sum.Sub(quote.Totals.NetReturnAmount).Abs().GreaterThan(decimal.RequireFromString("0.01")) {
		t.Fatalf("net = %s, want returnAmount + cgst + sgst = %s", quote.Totals.NetReturnAmount, sum)
	}
	if !quote.Totals.CGST.IsPositive() {
		t.Fatalf("cgst = %s, want positive", quote.Totals.CGST)
	}
}

func TestBuildQuoteCapsAtBilledQuantity(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.BuildQuote(context.Background(), QuoteInput{
		InvoiceNo: "INV-1",
		Items:     []QuoteItem{{ProductID: "p1", Quantity: decimal.NewFromInt(11)}},
	})
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "RETURN_EXCEEDS_SOLD" {
		t.Fatalf("err = %v, want RETURN_EXCEEDS_SOLD", err)
	}
}

func TestBuildQuoteRejectsDuplicateItems(t *testing.T) {
	svc, _ := newTestService()

	// Each request alone stays under the 10-unit line; together they exceed
	// it, so splitting a product across items must not slip past the cap.
	_, err := svc.BuildQuote(context.Background(), QuoteInput{
		InvoiceNo: "INV-1",
		Items: []QuoteItem{
			{ProductID: "p1", Quantity: decimal.NewFromInt(6)},
			{ProductID: "p1", Quantity: decimal.NewFromInt(6)},
		},
	})
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "DUPLICATE_LINE" {
		t.Fatalf("err = %v, want DUPLICATE_LINE", err)
	}
	if appErr.HTTPStatus != 409 {
		t.Fatalf("status = %d, want 409", appErr.HTTPStatus)
	}
}

func TestBuildQuoteUnknownInvoice(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.BuildQuote(context.Background(), QuoteInput{
		InvoiceNo: "INV-404",
		Items:     []QuoteItem{{ProductID: "p1", Quantity: decimal.NewFromInt(1)}},
	})
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 404 {
		t.Fatalf("err = %v, want 404 AppError", err)
	}
}

func TestSubmitEnqueuesCreditSettlement(t *testing.T) {
	svc, q := newTestService()

	result, err := svc.Submit(context.Background(), SubmitInput{
		QuoteInput: QuoteInput{
			InvoiceNo: "INV-1",
			GSTOff:    true,
			Items:     []QuoteItem{{ProductID: "p1", Quantity: decimal.NewFromInt(2)}},
		},
		RequestID: "ret-1",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.RequestID != "ret-1" {
		t.Fatalf("requestId = %s, want ret-1", result.RequestID)
	}
	if len(q.tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(q.tasks))
	}
	task := q.tasks[0]
	if task.Kind != TaskReturnSubmit {
		t.Fatalf("task kind = %s, want %s", task.Kind, TaskReturnSubmit)
	}
	if task.IdempotencyKey != "ret-1" {
		t.Fatalf("idempotency key = %s, want ret-1", task.IdempotencyKey)
	}
	var sub invoices.Submission
	if err := json.Unmarshal(task.Payload, &sub); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if sub.Kind != "return" {
		t.Fatalf("submission kind = %s, want return", sub.Kind)
	}
	if !sub.GrandTotal.Equal(decimal.NewFromInt(990)) {
		t.Fatalf("grandTotal = %s, want 990", sub.GrandTotal)
	}
}
