package returns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/events"
	"github.com/noah-isme/backend-billing/internal/invoices"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/pricing"
	"github.com/noah-isme/backend-billing/internal/queue"
)

// TaskReturnSubmit is the queue kind carrying credit settlements to the worker.
const TaskReturnSubmit = "return-submit"

// Enqueuer publishes submission tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, t queue.Task) error
}

// Service prices returns against the original invoice and submits credit
// settlements.
type Service struct {
	Invoices invoices.Client
	Queue    Enqueuer
	Engine   pricing.Engine
	Events   *events.Bus
}

// QuoteItem names a line of the original invoice and the quantity coming back.
type QuoteItem struct {
	ProductID string          `json:"item_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// QuoteInput asks for a refund computation against a persisted invoice.
type QuoteInput struct {
	InvoiceNo string      `json:"invoiceNo" validate:"required"`
	GSTOff    bool        `json:"gstOff"`
	Items     []QuoteItem `json:"items" validate:"required,min=1,dive"`
}

// QuotedLine is a return line priced net of the original per-item discount.
type QuotedLine struct {
	pricing.ReturnLine
	ReturnQty  decimal.Decimal `json:"returnQty"`
	LineAmount decimal.Decimal `json:"lineAmount"`
}

// Quote is the full refund picture for a requested return.
type Quote struct {
	InvoiceNo string               `json:"invoiceNo"`
	Lines     []QuotedLine         `json:"lines"`
	Totals    pricing.ReturnTotals `json:"totals"`
}

// SubmitInput quotes and submits in one call. RequestID deduplicates retries;
// when absent one is generated and the submission is effectively one-shot.
type SubmitInput struct {
	QuoteInput
	RequestID string `json:"requestId"`
}

// SubmitResult echoes the quote together with the queued submission reference.
type SubmitResult struct {
	Quote
	RequestID string `json:"requestId"`
}

// BuildQuote fetches the original invoice and prices the requested quantities.
func (s *Service) BuildQuote(ctx context.Context, in QuoteInput) (Quote, error) {
	invoice, err := s.Invoices.GetInvoice(ctx, in.InvoiceNo)
	if err != nil {
		if errors.Is(err, invoices.ErrInvoiceNotFound) {
			return Quote{}, &common.AppError{
				Code:       "NOT_FOUND",
				Message:    "original invoice not found",
				HTTPStatus: http.StatusNotFound,
				Err:        err,
			}
		}
		return Quote{}, fmt.Errorf("fetch original invoice: %w", err)
	}

	byProduct := make(map[string]pricing.ReturnLine)
	for _, line := range pricing.BuildReturnLines(invoice.Products, invoice.Discount) {
		byProduct[line.ProductID] = line
	}

	requests := make([]pricing.ReturnRequest, 0, len(in.Items))
	quoted := make([]QuotedLine, 0, len(in.Items))
	seen := make(map[string]bool, len(in.Items))
	for _, item := range in.Items {
		if seen[item.ProductID] {
			return Quote{}, &common.AppError{
				Code:       "DUPLICATE_LINE",
				Message:    "product listed more than once in the return",
				HTTPStatus: http.StatusConflict,
				Details:    map[string]any{"item_id": item.ProductID},
			}
		}
		seen[item.ProductID] = true
		line, ok := byProduct[item.ProductID]
		if !ok {
			return Quote{}, &common.AppError{
				Code:       "NOT_FOUND",
				Message:    "product not on the original invoice",
				HTTPStatus: http.StatusNotFound,
				Details:    map[string]any{"item_id": item.ProductID},
			}
		}
		requests = append(requests, pricing.ReturnRequest{Line: line, Quantity: item.Quantity})
		quoted = append(quoted, QuotedLine{
			ReturnLine: line,
			ReturnQty:  item.Quantity,
			LineAmount: pricing.Round2(line.ReturnPrice.Mul(item.Quantity)),
		})
	}

	mode := pricing.GSTExtract
	if in.GSTOff {
		mode = pricing.GSTOff
	}
	totals, err := s.Engine.ComputeReturn(requests, mode)
	if err != nil {
		countQuote("rejected")
		return Quote{}, returnError(err)
	}
	countQuote("ok")
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicReturnQuoted, invoice.InvoiceNo, map[string]string{
			"netReturnAmount": totals.NetReturnAmount.StringFixed(2),
		})
	}
	return Quote{InvoiceNo: invoice.InvoiceNo, Lines: quoted, Totals: totals}, nil
}

func countQuote(result string) {
	if obs.ReturnsQuotedTotal != nil {
		obs.ReturnsQuotedTotal.WithLabelValues(result).Inc()
	}
}

// Submit quotes the return and enqueues the credit settlement for submission.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	quote, err := s.BuildQuote(ctx, in.QuoteInput)
	if err != nil {
		return SubmitResult{}, err
	}
	requestID := in.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	lines := make([]pricing.LineItem, len(quote.Lines))
	for i, q := range quote.Lines {
		lines[i] = pricing.LineItem{
			ProductID:         q.ProductID,
			Name:              q.Name,
			Unit:              q.Unit,
			EnteredQty:        q.ReturnQty,
			SellingPrice:      q.ReturnPrice,
			Quantity:          q.ReturnQty,
			SellingPriceInQty: q.ReturnPrice,
		}
	}
	sub := invoices.Submission{
		InvoiceNo:     quote.InvoiceNo,
		Kind:          "return",
		Products:      lines,
		BillingAmount: quote.Totals.ReturnAmount,
		GrandTotal:    quote.Totals.NetReturnAmount,
	}
	payload, err := json.Marshal(sub)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("encode credit settlement: %w", err)
	}
	if err := s.Queue.Enqueue(ctx, queue.Task{
		Kind:           TaskReturnSubmit,
		Payload:        payload,
		IdempotencyKey: requestID,
	}); err != nil {
		return SubmitResult{}, fmt.Errorf("enqueue credit settlement: %w", err)
	}
	return SubmitResult{Quote: quote, RequestID: requestID}, nil
}

func returnError(err error) error {
	switch {
	case errors.Is(err, pricing.ErrReturnExceedsSold):
		return &common.AppError{
			Code:       "RETURN_EXCEEDS_SOLD",
			Message:    "return quantity exceeds the originally billed quantity",
			HTTPStatus: http.StatusUnprocessableEntity,
			Err:        err,
		}
	case errors.Is(err, pricing.ErrNonPositiveQuantity):
		return &common.AppError{
			Code:       "INVALID_LINE",
			Message:    "return quantity must be positive",
			HTTPStatus: http.StatusUnprocessableEntity,
			Err:        err,
		}
	default:
		return err
	}
}
