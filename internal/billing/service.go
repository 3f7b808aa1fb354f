package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/catalog"
	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/events"
	"github.com/noah-isme/backend-billing/internal/invoices"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/pricing"
	"github.com/noah-isme/backend-billing/internal/queue"
)

// TaskInvoiceSubmit is the queue kind carrying settled drafts to the worker.
const TaskInvoiceSubmit = "invoice-submit"

// ProductSource supplies product records for line construction.
type ProductSource interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
}

// Enqueuer publishes submission tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, t queue.Task) error
}

// Service owns the draft lifecycle: create, edit lines and charges, settle.
// Every operation returns the draft with freshly recomputed totals; nothing is
// patched incrementally.
type Service struct {
	Store    Store
	Products ProductSource
	Queue    Enqueuer
	Engine   pricing.Engine
	Events   *events.Bus
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// emit publishes a lifecycle event when a bus is configured. Events are
// advisory; a notifier failure never fails the operation.
func (s *Service) emit(ctx context.Context, topic, aggregateID string, payload any) {
	if s.Events == nil {
		return
	}
	_, _ = s.Events.Emit(ctx, topic, aggregateID, payload)
}

// View is a draft together with its computed settlement.
type View struct {
	Draft
	Totals pricing.Totals `json:"totals"`
}

func (s *Service) view(draft Draft) View {
	totals := s.Engine.ComputeTotals(draft.Lines, draft.Charges, draft.GSTMode)
	if draft.State == pricing.StateSettled {
		totals.State = pricing.StateSettled
	}
	if obs.SettlementsComputedTotal != nil {
		obs.SettlementsComputedTotal.WithLabelValues(string(draft.GSTMode), string(totals.State)).Inc()
	}
	return View{Draft: draft, Totals: totals}
}

// CreateInput starts a draft.
type CreateInput struct {
	InvoiceNo    string `json:"invoiceNo" validate:"required"`
	CustomerName string `json:"customerName"`
	GSTMode      string `json:"gstMode" validate:"omitempty,oneof=extract add off"`
}

// AddLineInput adds a product line to a draft.
type AddLineInput struct {
	ProductID    string           `json:"item_id" validate:"required"`
	Unit         string           `json:"unit" validate:"required"`
	EnteredQty   decimal.Decimal  `json:"enteredQty"`
	SellingPrice *decimal.Decimal `json:"sellingPrice"`
	GSTPercent   decimal.Decimal  `json:"gstPercent"`
}

// UpdateLineInput edits a line in place. Quantity and the per-stock-unit price
// are always re-derived together from whatever the entered figures become.
type UpdateLineInput struct {
	EnteredQty   *decimal.Decimal `json:"enteredQty"`
	SellingPrice *decimal.Decimal `json:"sellingPrice"`
	Unit         *string          `json:"unit"`
}

// ChargesInput replaces the invoice-level charges and optionally the GST mode.
type ChargesInput struct {
	Discount       decimal.Decimal `json:"discount"`
	Transportation decimal.Decimal `json:"transportation"`
	Unloading      decimal.Decimal `json:"unloading"`
	Handling       decimal.Decimal `json:"handlingcharge"`
	GSTMode        *string         `json:"gstMode" validate:"omitempty,oneof=extract add off"`
}

// CreateDraft opens a new draft invoice.
func (s *Service) CreateDraft(ctx context.Context, in CreateInput) (View, error) {
	mode := pricing.GSTExtract
	if in.GSTMode != "" {
		mode = pricing.GSTMode(in.GSTMode)
		if !mode.Valid() {
			return View{}, badRequest("gstMode", "unsupported gst mode")
		}
	}
	now := s.now()
	draft := Draft{
		ID:           uuid.NewString(),
		InvoiceNo:    strings.TrimSpace(in.InvoiceNo),
		CustomerName: strings.TrimSpace(in.CustomerName),
		State:        pricing.StateEmpty,
		GSTMode:      mode,
		Lines:        []pricing.LineItem{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if draft.InvoiceNo == "" {
		return View{}, badRequest("invoiceNo", "invoice number is required")
	}
	if err := s.Store.Save(ctx, draft); err != nil {
		return View{}, fmt.Errorf("save draft: %w", err)
	}
	s.emit(ctx, events.TopicDraftCreated, draft.ID, map[string]string{
		"invoiceNo": draft.InvoiceNo,
	})
	return s.view(draft), nil
}

// GetDraft returns the draft with its computed settlement.
func (s *Service) GetDraft(ctx context.Context, id string) (View, error) {
	draft, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.view(draft), nil
}

// AddLine fetches the product, converts the entered figures, and appends the
// line. A product already present in the draft is rejected, never merged.
func (s *Service) AddLine(ctx context.Context, draftID string, in AddLineInput) (View, error) {
	draft, err := s.mutable(ctx, draftID)
	if err != nil {
		return View{}, err
	}
	if draft.FindLine(in.ProductID) >= 0 {
		rejectLine("duplicate")
		return View{}, &common.AppError{
			Code:       "DUPLICATE_LINE",
			Message:    "product already on this draft",
			HTTPStatus: http.StatusConflict,
			Details:    map[string]any{"item_id": in.ProductID},
		}
	}
	unit, err := pricing.ParseUnit(in.Unit)
	if err != nil {
		return View{}, badRequest("unit", "unknown billing unit")
	}
	product, err := s.Products.GetProduct(ctx, in.ProductID)
	if err != nil {
		return View{}, err
	}
	dims := product.Dims()
	price, err := s.linePrice(in.SellingPrice, product, unit, dims)
	if err != nil {
		return View{}, err
	}
	line, err := pricing.LineInput{
		ProductID:    product.ID,
		Name:         product.Name,
		Category:     product.Category,
		Brand:        product.Brand,
		Unit:         unit,
		EnteredQty:   in.EnteredQty,
		SellingPrice: price,
		Dims:         dims,
		GSTPercent:   in.GSTPercent,
	}.NewLineItem()
	if err != nil {
		return View{}, lineError(err)
	}
	draft.Lines = append(draft.Lines, line)
	return s.save(ctx, draft)
}

// UpdateLine re-derives the stock-side pair from the merged entered figures.
// Changing the unit without supplying a price re-seeds the default selling
// price for the new unit; a typed price is never overwritten.
func (s *Service) UpdateLine(ctx context.Context, draftID, productID string, in UpdateLineInput) (View, error) {
	draft, err := s.mutable(ctx, draftID)
	if err != nil {
		return View{}, err
	}
	idx := draft.FindLine(productID)
	if idx < 0 {
		return View{}, lineNotFound(productID)
	}
	current := draft.Lines[idx]

	unit := current.Unit
	unitChanged := false
	if in.Unit != nil {
		parsed, err := pricing.ParseUnit(*in.Unit)
		if err != nil {
			return View{}, badRequest("unit", "unknown billing unit")
		}
		unitChanged = parsed != unit
		unit = parsed
	}
	qty := current.EnteredQty
	if in.EnteredQty != nil {
		qty = *in.EnteredQty
	}

	product, err := s.Products.GetProduct(ctx, productID)
	if err != nil {
		return View{}, err
	}
	dims := product.Dims()

	price := current.SellingPrice
	switch {
	case in.SellingPrice != nil:
		price = *in.SellingPrice
	case unitChanged:
		price, err = s.linePrice(nil, product, unit, dims)
		if err != nil {
			return View{}, err
		}
	}

	line, err := pricing.LineInput{
		ProductID:    current.ProductID,
		Name:         current.Name,
		Category:     current.Category,
		Brand:        current.Brand,
		Unit:         unit,
		EnteredQty:   qty,
		SellingPrice: price,
		Dims:         dims,
		GSTPercent:   current.GSTPercent,
	}.NewLineItem()
	if err != nil {
		return View{}, lineError(err)
	}
	draft.Lines[idx] = line
	return s.save(ctx, draft)
}

// RemoveLine deletes a line. Emptying the draft resets every derived total.
func (s *Service) RemoveLine(ctx context.Context, draftID, productID string) (View, error) {
	draft, err := s.mutable(ctx, draftID)
	if err != nil {
		return View{}, err
	}
	idx := draft.FindLine(productID)
	if idx < 0 {
		return View{}, lineNotFound(productID)
	}
	draft.Lines = append(draft.Lines[:idx], draft.Lines[idx+1:]...)
	return s.save(ctx, draft)
}

// SetCharges replaces discount and ancillary charges, and optionally the GST mode.
func (s *Service) SetCharges(ctx context.Context, draftID string, in ChargesInput) (View, error) {
	draft, err := s.mutable(ctx, draftID)
	if err != nil {
		return View{}, err
	}
	if in.Discount.IsNegative() || in.Transportation.IsNegative() || in.Unloading.IsNegative() || in.Handling.IsNegative() {
		return View{}, badRequest("charges", "charges must not be negative")
	}
	draft.Charges = pricing.Charges{
		Discount:       in.Discount,
		Transportation: in.Transportation,
		Unloading:      in.Unloading,
		Handling:       in.Handling,
	}
	if in.GSTMode != nil {
		mode := pricing.GSTMode(*in.GSTMode)
		if !mode.Valid() {
			return View{}, badRequest("gstMode", "unsupported gst mode")
		}
		draft.GSTMode = mode
	}
	return s.save(ctx, draft)
}

// Settle freezes the draft and enqueues the flattened settlement for
// submission to the invoice API. Settled drafts refuse every further mutation.
func (s *Service) Settle(ctx context.Context, draftID string) (View, error) {
	draft, err := s.mutable(ctx, draftID)
	if err != nil {
		return View{}, err
	}
	if len(draft.Lines) == 0 {
		return View{}, &common.AppError{
			Code:       "EMPTY_DRAFT",
			Message:    "cannot settle a draft with no lines",
			HTTPStatus: http.StatusUnprocessableEntity,
		}
	}
	totals := s.Engine.ComputeTotals(draft.Lines, draft.Charges, draft.GSTMode)

	sub := invoices.Submission{
		InvoiceNo:      draft.InvoiceNo,
		Kind:           "billing",
		Products:       draft.Lines,
		Discount:       totals.Discount,
		Unloading:      totals.Unloading,
		Transportation: totals.Transportation,
		HandlingCharge: totals.Handling,
		BillingAmount:  totals.TotalAmount,
		GrandTotal:     totals.GrandTotal,
	}
	payload, err := json.Marshal(sub)
	if err != nil {
		return View{}, fmt.Errorf("encode submission: %w", err)
	}
	// The draft stays mutable until the submission is queued; a queue outage
	// must leave settle retryable. On a save failure after this point the
	// retry's enqueue is absorbed by the idempotency key.
	if err := s.Queue.Enqueue(ctx, queue.Task{
		Kind:           TaskInvoiceSubmit,
		Payload:        payload,
		IdempotencyKey: draft.ID,
	}); err != nil {
		return View{}, fmt.Errorf("enqueue submission: %w", err)
	}

	draft.State = pricing.StateSettled
	draft.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, draft); err != nil {
		return View{}, fmt.Errorf("save draft: %w", err)
	}
	s.emit(ctx, events.TopicDraftSettled, draft.ID, map[string]string{
		"invoiceNo":  draft.InvoiceNo,
		"grandTotal": totals.GrandTotal.StringFixed(2),
	})

	totals.State = pricing.StateSettled
	return View{Draft: draft, Totals: totals}, nil
}

func (s *Service) load(ctx context.Context, id string) (Draft, error) {
	draft, err := s.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Draft{}, &common.AppError{
				Code:       "NOT_FOUND",
				Message:    "draft not found",
				HTTPStatus: http.StatusNotFound,
				Err:        err,
			}
		}
		return Draft{}, fmt.Errorf("load draft: %w", err)
	}
	return draft, nil
}

func (s *Service) mutable(ctx context.Context, id string) (Draft, error) {
	draft, err := s.load(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if draft.State == pricing.StateSettled {
		return Draft{}, &common.AppError{
			Code:       "SETTLED",
			Message:    "draft is settled and can no longer change",
			HTTPStatus: http.StatusConflict,
			Err:        pricing.ErrSettled,
		}
	}
	return draft, nil
}

func (s *Service) save(ctx context.Context, draft Draft) (View, error) {
	draft.UpdatedAt = s.now()
	view := s.view(draft)
	draft.State = view.Totals.State
	view.State = draft.State
	if err := s.Store.Save(ctx, draft); err != nil {
		return View{}, fmt.Errorf("save draft: %w", err)
	}
	return view, nil
}

func (s *Service) linePrice(entered *decimal.Decimal, product catalog.Product, unit pricing.BillingUnit, dims pricing.Dims) (decimal.Decimal, error) {
	if entered != nil {
		return *entered, nil
	}
	price, err := pricing.DefaultSellingPrice(product.Price, product.Category, unit, dims)
	if err != nil {
		return decimal.Zero, lineError(err)
	}
	return price, nil
}

func badRequest(field, message string) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"field": field},
	}
}

func lineNotFound(productID string) *common.AppError {
	return &common.AppError{
		Code:       "NOT_FOUND",
		Message:    "line not found on this draft",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"item_id": productID},
	}
}

func lineError(err error) error {
	switch {
	case errors.Is(err, pricing.ErrMissingProduct):
		rejectLine("missing_product")
		return &common.AppError{
			Code:       "INVALID_LINE",
			Message:    "product id is required",
			HTTPStatus: http.StatusUnprocessableEntity,
			Err:        err,
		}
	case errors.Is(err, pricing.ErrNonPositiveQuantity), errors.Is(err, pricing.ErrNonPositivePrice):
		rejectLine("non_positive")
		return &common.AppError{
			Code:       "INVALID_LINE",
			Message:    "quantity and selling price must be positive",
			HTTPStatus: http.StatusUnprocessableEntity,
			Err:        err,
		}
	case errors.Is(err, pricing.ErrMissingDimensions), errors.Is(err, pricing.ErrMissingPieceRatio):
		rejectLine("missing_measurements")
		return &common.AppError{
			Code:       "UNPROCESSABLE",
			Message:    "product measurements do not support the requested unit",
			HTTPStatus: http.StatusUnprocessableEntity,
			Err:        err,
		}
	case errors.Is(err, pricing.ErrUnknownUnit):
		rejectLine("unknown_unit")
		return badRequest("unit", "unknown billing unit")
	default:
		return err
	}
}

func rejectLine(reason string) {
	if obs.LinesRejectedTotal != nil {
		obs.LinesRejectedTotal.WithLabelValues(reason).Inc()
	}
}
