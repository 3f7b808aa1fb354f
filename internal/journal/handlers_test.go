package journal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeStore struct {
	entries []Entry
	kind    string
}

func (f *fakeStore) Insert(_ context.Context, entry Entry) (uuid.UUID, error) {
	f.entries = append(f.entries, entry)
	return uuid.New(), nil
}

func (f *fakeStore) List(_ context.Context, kind string, limit, offset int) ([]Entry, error) {
	f.kind = kind
	if offset >= len(f.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.entries) {
		end = len(f.entries)
	}
	return f.entries[offset:end], nil
}

func (f *fakeStore) Count(_ context.Context, _ string) (int64, error) {
	return int64(len(f.entries)), nil
}

func TestListSettlements(t *testing.T) {
	store := &fakeStore{entries: []Entry{{
		ID:            uuid.New(),
		InvoiceNo:     "INV-1",
		Kind:          "billing",
		Status:        "submitted",
		Attempts:      1,
		BillingAmount: decimal.NewFromInt(550),
		GrandTotal:    decimal.RequireFromString("688.90"),
		CreatedAt:     time.Now(),
	}}}
	h := Handler{Store: store}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/settlements?kind=billing&limit=10", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.kind != "billing" {
		t.Fatalf("kind filter = %q, want billing", store.kind)
	}
	var body struct {
		Data       []Entry `json:"data"`
		Pagination struct {
			TotalItems int `json:"total_items"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].InvoiceNo != "INV-1" {
		t.Fatalf("unexpected data: %+v", body.Data)
	}
	if body.Pagination.TotalItems != 1 {
		t.Fatalf("total_items = %d, want 1", body.Pagination.TotalItems)
	}
}

func TestListSettlementsSecondPage(t *testing.T) {
	store := &fakeStore{entries: []Entry{
		{ID: uuid.New(), InvoiceNo: "INV-1", Kind: "billing", Status: "submitted"},
		{ID: uuid.New(), InvoiceNo: "INV-2", Kind: "billing", Status: "submitted"},
		{ID: uuid.New(), InvoiceNo: "INV-3", Kind: "billing", Status: "submitted"},
	}}
	h := Handler{Store: store}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/settlements?page=2&limit=1", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Data       []Entry `json:"data"`
		Pagination struct {
			Page    int `json:"page"`
			PerPage int `json:"per_page"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].InvoiceNo != "INV-2" {
		t.Fatalf("unexpected page 2 data: %+v", body.Data)
	}
	if body.Pagination.Page != 2 || body.Pagination.PerPage != 1 {
		t.Fatalf("pagination = %+v, want page 2 per_page 1", body.Pagination)
	}
}

func TestListSettlementsUnconfigured(t *testing.T) {
	h := Handler{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/settlements", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
