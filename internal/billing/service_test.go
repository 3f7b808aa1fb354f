package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/catalog"
	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/pricing"
	"github.com/noah-isme/backend-billing/internal/queue"
)

type fakeProducts struct {
	products map[string]catalog.Product
}

func (f fakeProducts) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, errors.New("no such product")
	}
	return p, nil
}

type captureQueue struct {
	tasks []queue.Task
}

func (c *captureQueue) Enqueue(_ context.Context, t queue.Task) error {
	c.tasks = append(c.tasks, t)
	return nil
}

type failQueue struct{}

func (failQueue) Enqueue(context.Context, queue.Task) error {
	return errors.New("redis unavailable")
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func newTestService(t *testing.T) (*Service, *captureQueue) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tile := catalog.Product{
		ID:           "p1",
		Name:         "Vitrified 600",
		Category:     "TILES",
		Brand:        "Kajaria",
		Price:        decimal.NewFromInt(100),
		CountInStock: decimal.NewFromInt(50),
		Length:       decimal.NewFromInt(2),
		Breadth:      decimal.NewFromInt(3),
		ActLength:    decimal.NewFromInt(2),
		ActBreadth:   decimal.NewFromInt(1),
		PSRatio:      decimal.NewFromInt(4),
	}
	granite := catalog.Product{
		ID:       "p2",
		Name:     "Black Galaxy",
		Category: "GRANITE",
		Price:    decimal.NewFromInt(130),
		Length:   decimal.NewFromInt(4),
		Breadth:  decimal.NewFromInt(2),
	}
	q := &captureQueue{}
	svc := &Service{
		Store:    Store{R: rdb, TTL: time.Hour},
		Products: fakeProducts{products: map[string]catalog.Product{"p1": tile, "p2": granite}},
		Queue:    q,
		Engine:   pricing.Engine{Tax: pricing.TaxCalculator{RateBps: 1800}},
	}
	return svc, q
}

func createDraft(t *testing.T, svc *Service) View {
	t.Helper()
	view, err := svc.CreateDraft(context.Background(), CreateInput{InvoiceNo: "INV-1"})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if view.State != pricing.StateEmpty {
		t.Fatalf("new draft state = %s, want EMPTY", view.State)
	}
	return view
}

func TestAddLineConvertsEnteredFigures(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	price := decimal.NewFromInt(60)
	view, err := svc.AddLine(context.Background(), draft.ID, AddLineInput{
		ProductID:    "p1",
		Unit:         "SQFT",
		EnteredQty:   decimal.NewFromInt(12),
		SellingPrice: &price,
	})
	if err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	line := view.Lines[0]
	if !line.Quantity.Equal(dec(t, "2")) {
		t.Fatalf("quantity = %s, want 2", line.Quantity)
	}
	if !line.SellingPriceInQty.Equal(dec(t, "360")) {
		t.Fatalf("sellingPriceinQty = %s, want 360", line.SellingPriceInQty)
	}
	if view.State != pricing.StatePopulated {
		t.Fatalf("state = %s, want POPULATED", view.State)
	}
}

func TestAddLineSeedsDefaultPrice(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	// TILES cost 100 -> base 125; SQFT divides by actual area 2 -> 62.5
	view, err := svc.AddLine(context.Background(), draft.ID, AddLineInput{
		ProductID:  "p1",
		Unit:       "SQFT",
		EnteredQty: decimal.NewFromInt(6),
	})
	if err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if !view.Lines[0].SellingPrice.Equal(dec(t, "62.5")) {
		t.Fatalf("seeded sellingPrice = %s, want 62.5", view.Lines[0].SellingPrice)
	}
}

func TestAddLineRejectsDuplicateProduct(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	in := AddLineInput{ProductID: "p1", Unit: "NOS", EnteredQty: decimal.NewFromInt(1)}
	if _, err := svc.AddLine(context.Background(), draft.ID, in); err != nil {
		t.Fatalf("first AddLine: %v", err)
	}
	_, err := svc.AddLine(context.Background(), draft.ID, in)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "DUPLICATE_LINE" {
		t.Fatalf("err = %v, want DUPLICATE_LINE", err)
	}
}

func TestAddLineRejectsNonPositiveQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	_, err := svc.AddLine(context.Background(), draft.ID, AddLineInput{
		ProductID:  "p1",
		Unit:       "NOS",
		EnteredQty: decimal.Zero,
	})
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "INVALID_LINE" {
		t.Fatalf("err = %v, want INVALID_LINE", err)
	}
}

func TestUpdateLineUnitChangeReseedsPrice(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	typed := decimal.NewFromInt(70)
	if _, err := svc.AddLine(context.Background(), draft.ID, AddLineInput{
		ProductID:    "p1",
		Unit:         "SQFT",
		EnteredQty:   decimal.NewFromInt(6),
		SellingPrice: &typed,
	}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}

	unit := "BOX"
	view, err := svc.UpdateLine(context.Background(), draft.ID, "p1", UpdateLineInput{Unit: &unit})
	if err != nil {
		t.Fatalf("UpdateLine: %v", err)
	}
	line := view.Lines[0]
	// BOX default price = base 125 x psRatio 4
	if !line.SellingPrice.Equal(dec(t, "500")) {
		t.Fatalf("reseeded sellingPrice = %s, want 500", line.SellingPrice)
	}
	// quantity re-derived together with the price: 6 BOX x psRatio 4 = 24
	if !line.Quantity.Equal(dec(t, "24")) {
		t.Fatalf("quantity = %s, want 24", line.Quantity)
	}
	if !line.SellingPriceInQty.Equal(dec(t, "3000")) {
		t.Fatalf("sellingPriceinQty = %s, want 3000 (500 x area 6)", line.SellingPriceInQty)
	}
}

func TestUpdateLineKeepsTypedPrice(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	typed := decimal.NewFromInt(70)
	if _, err := svc.AddLine(context.Background(), draft.ID, AddLineInput{
		ProductID:    "p1",
		Unit:         "SQFT",
		EnteredQty:   decimal.NewFromInt(6),
		SellingPrice: &typed,
	}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}

	qty := decimal.NewFromInt(12)
	view, err := svc.UpdateLine(context.Background(), draft.ID, "p1", UpdateLineInput{EnteredQty: &qty})
	if err != nil {
		t.Fatalf("UpdateLine: %v", err)
	}
	line := view.Lines[0]
	if !line.SellingPrice.Equal(typed) {
		t.Fatalf("sellingPrice = %s, want the typed 70", line.SellingPrice)
	}
	if !line.Quantity.Equal(dec(t, "2")) {
		t.Fatalf("quantity = %s, want 2", line.Quantity)
	}
}

func TestRemoveLastLineResetsTotals(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	if _, err := svc.AddLine(context.Background(), draft.ID, AddLineInput{
		ProductID:  "p1",
		Unit:       "NOS",
		EnteredQty: decimal.NewFromInt(5),
	}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if _, err := svc.SetCharges(context.Background(), draft.ID, ChargesInput{Discount: decimal.NewFromInt(50)}); err != nil {
		t.Fatalf("SetCharges: %v", err)
	}

	view, err := svc.RemoveLine(context.Background(), draft.ID, "p1")
	if err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	if view.State != pricing.StateEmpty {
		t.Fatalf("state = %s, want EMPTY", view.State)
	}
	if !view.Totals.GrandTotal.IsZero() || !view.Totals.Discount.IsZero() {
		t.Fatalf("totals not reset: grand=%s discount=%s", view.Totals.GrandTotal, view.Totals.Discount)
	}
}

func TestSettleFreezesDraftAndEnqueues(t *testing.T) {
	svc, q := newTestService(t)
	draft := createDraft(t, svc)

	price := decimal.NewFromInt(100)
	if _, err := svc.AddLine(context.Background(), draft.ID, AddLineInput{
		ProductID:    "p1",
		Unit:         "NOS",
		EnteredQty:   decimal.NewFromInt(5),
		SellingPrice: &price,
	}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if _, err := svc.SetCharges(context.Background(), draft.ID, ChargesInput{
		Discount:       decimal.NewFromInt(50),
		Transportation: decimal.NewFromInt(40),
	}); err != nil {
		t.Fatalf("SetCharges: %v", err)
	}

	view, err := svc.Settle(context.Background(), draft.ID)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if view.State != pricing.StateSettled {
		t.Fatalf("state = %s, want SETTLED", view.State)
	}
	if len(q.tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(q.tasks))
	}
	task := q.tasks[0]
	if task.Kind != TaskInvoiceSubmit {
		t.Fatalf("task kind = %s, want %s", task.Kind, TaskInvoiceSubmit)
	}
	if task.IdempotencyKey != draft.ID {
		t.Fatalf("idempotency key = %s, want draft id", task.IdempotencyKey)
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	for _, field := range []string{"products", "discount", "unloading", "transportation", "handlingcharge", "billingAmount", "grandTotal"} {
		if _, ok := payload[field]; !ok {
			t.Fatalf("submission payload missing field %q", field)
		}
	}

	// settled drafts refuse further mutation
	_, err = svc.RemoveLine(context.Background(), draft.ID, "p1")
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "SETTLED" {
		t.Fatalf("mutation after settle: err = %v, want SETTLED", err)
	}
	if _, err := svc.Settle(context.Background(), draft.ID); err == nil {
		t.Fatal("second Settle succeeded, want rejection")
	}
}

func TestSettleRetryableAfterEnqueueFailure(t *testing.T) {
	svc, q := newTestService(t)
	draft := createDraft(t, svc)

	price := decimal.NewFromInt(100)
	if _, err := svc.AddLine(context.Background(), draft.ID, AddLineInput{
		ProductID:    "p1",
		Unit:         "NOS",
		EnteredQty:   decimal.NewFromInt(5),
		SellingPrice: &price,
	}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}

	svc.Queue = failQueue{}
	if _, err := svc.Settle(context.Background(), draft.ID); err == nil {
		t.Fatal("Settle succeeded with a broken queue")
	}

	// the failed attempt must not freeze the draft
	view, err := svc.GetDraft(context.Background(), draft.ID)
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	if view.State == pricing.StateSettled {
		t.Fatal("draft settled although nothing was enqueued")
	}

	svc.Queue = q
	view, err = svc.Settle(context.Background(), draft.ID)
	if err != nil {
		t.Fatalf("retry Settle: %v", err)
	}
	if view.State != pricing.StateSettled {
		t.Fatalf("state = %s, want SETTLED", view.State)
	}
	if len(q.tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(q.tasks))
	}
}

func TestSettleEmptyDraftRejected(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	_, err := svc.Settle(context.Background(), draft.ID)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "EMPTY_DRAFT" {
		t.Fatalf("err = %v, want EMPTY_DRAFT", err)
	}
}

func TestGetDraftNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetDraft(context.Background(), "nope")
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 404 {
		t.Fatalf("err = %v, want 404 AppError", err)
	}
}
