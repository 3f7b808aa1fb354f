package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-billing/internal/resilience"
)

func newTestRouter(t *testing.T, upstream *httptest.Server) *chi.Mux {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	client := RemoteClient{
		BaseURL: upstream.URL,
		HTTP: resilience.HTTPClient{
			Client:      upstream.Client(),
			MaxAttempts: 1,
		},
	}
	svc, err := NewService(ServiceConfig{
		Client: client,
		Cache:  NewCache(rdb, time.Minute),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h := NewHandler(HandlerConfig{Service: svc})
	r := chi.NewRouter()
	r.Get("/api/v1/products/{id}", h.Product)
	r.Get("/api/v1/products/{id}/availability", h.Availability)
	return r
}

func tileUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/p1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"item_id": "p1",
			"name": "Vitrified 600",
			"category": "TILES",
			"brand": "Kajaria",
			"price": 100,
			"countInStock": 10,
			"length": 4,
			"breadth": 2,
			"actLength": 2,
			"actBreadth": 2,
			"psRatio": 5
		}`))
	}))
}

type availabilityEnvelope struct {
	Data struct {
		ProductID           string `json:"item_id"`
		Unit                string `json:"unit"`
		AvailableQty        string `json:"availableQty"`
		DefaultSellingPrice string `json:"defaultSellingPrice"`
	} `json:"data"`
}

func getAvailability(t *testing.T, router http.Handler, unit string) (int, availabilityEnvelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/p1/availability?unit="+unit, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var body availabilityEnvelope
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec.Code, body
}

func TestAvailabilitySquareFeet(t *testing.T) {
	upstream := tileUpstream(t)
	defer upstream.Close()
	router := newTestRouter(t, upstream)

	code, body := getAvailability(t, router, "SQFT")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body.Data.AvailableQty != "80" {
		t.Fatalf("availableQty = %s, want 80", body.Data.AvailableQty)
	}
	if body.Data.DefaultSellingPrice != "31.25" {
		t.Fatalf("defaultSellingPrice = %s, want 31.25", body.Data.DefaultSellingPrice)
	}
}

func TestAvailabilityBox(t *testing.T) {
	upstream := tileUpstream(t)
	defer upstream.Close()
	router := newTestRouter(t, upstream)

	code, body := getAvailability(t, router, "BOX")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body.Data.AvailableQty != "2" {
		t.Fatalf("availableQty = %s, want 2", body.Data.AvailableQty)
	}
	if body.Data.DefaultSellingPrice != "625" {
		t.Fatalf("defaultSellingPrice = %s, want 625", body.Data.DefaultSellingPrice)
	}
}

func TestAvailabilityUnknownUnit(t *testing.T) {
	upstream := tileUpstream(t)
	defer upstream.Close()
	router := newTestRouter(t, upstream)

	code, _ := getAvailability(t, router, "KG")
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
}

func TestProductNotFound(t *testing.T) {
	upstream := tileUpstream(t)
	defer upstream.Close()
	router := newTestRouter(t, upstream)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestProductServedFromCache(t *testing.T) {
	upstream := tileUpstream(t)
	router := newTestRouter(t, upstream)

	if code, _ := getAvailability(t, router, "NOS"); code != http.StatusOK {
		t.Fatalf("warm-up status = %d, want 200", code)
	}
	// with the record cached the upstream is no longer consulted
	upstream.Close()
	code, body := getAvailability(t, router, "NOS")
	if code != http.StatusOK {
		t.Fatalf("cached status = %d, want 200", code)
	}
	if body.Data.AvailableQty != "10" {
		t.Fatalf("availableQty = %s, want 10", body.Data.AvailableQty)
	}
}
