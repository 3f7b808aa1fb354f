package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-billing/internal/pricing"
)

// ErrNotFound indicates the requested draft could not be located.
var ErrNotFound = errors.New("billing: draft not found")

// Draft is an invoice-in-progress. Drafts live in Redis with a TTL; nothing is
// durable until the settlement is submitted.
type Draft struct {
	ID           string             `json:"id"`
	InvoiceNo    string             `json:"invoiceNo"`
	CustomerName string             `json:"customerName,omitempty"`
	State        pricing.State      `json:"state"`
	GSTMode      pricing.GSTMode    `json:"gstMode"`
	Lines        []pricing.LineItem `json:"products"`
	Charges      pricing.Charges    `json:"charges"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// FindLine returns the index of the line holding the product, or -1.
func (d Draft) FindLine(productID string) int {
	for i, line := range d.Lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

// Store persists drafts in Redis. Every save refreshes the TTL, mirroring the
// session-like lifetime of an invoice being typed in.
type Store struct {
	R   *redis.Client
	TTL time.Duration
}

func (s Store) ttl() time.Duration {
	if s.TTL <= 0 {
		return 24 * time.Hour
	}
	return s.TTL
}

func draftKey(id string) string {
	return "billing:draft:" + id
}

// Get loads a draft by id.
func (s Store) Get(ctx context.Context, id string) (Draft, error) {
	if s.R == nil {
		return Draft{}, errors.New("billing: redis client not configured")
	}
	data, err := s.R.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Draft{}, ErrNotFound
		}
		return Draft{}, err
	}
	var draft Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return Draft{}, err
	}
	return draft, nil
}

// Save stores the draft and refreshes its TTL.
func (s Store) Save(ctx context.Context, draft Draft) error {
	if s.R == nil {
		return errors.New("billing: redis client not configured")
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return s.R.Set(ctx, draftKey(draft.ID), data, s.ttl()).Err()
}

// Delete removes a draft.
func (s Store) Delete(ctx context.Context, id string) error {
	if s.R == nil {
		return errors.New("billing: redis client not configured")
	}
	return s.R.Del(ctx, draftKey(id)).Err()
}
