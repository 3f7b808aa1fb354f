package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrStoreUnavailable indicates the journal store dependency is not configured.
var ErrStoreUnavailable = errors.New("journal: store unavailable")

// Entry is one submitted settlement: the outcome of posting a billing or
// return settlement to the invoice API, written by the worker.
type Entry struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNo     string          `json:"invoiceNo"`
	Kind          string          `json:"kind"`
	Status        string          `json:"status"`
	Attempts      int             `json:"attempts"`
	BillingAmount decimal.Decimal `json:"billingAmount"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	Payload       []byte          `json:"payload,omitempty"`
	LastError     *string         `json:"lastError,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Store provides database accessors for the settlement journal.
type Store interface {
	Insert(ctx context.Context, entry Entry) (uuid.UUID, error)
	List(ctx context.Context, kind string, limit, offset int) ([]Entry, error)
	Count(ctx context.Context, kind string) (int64, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

// Insert persists a journal entry and returns the generated identifier.
func (s *pgStore) Insert(ctx context.Context, entry Entry) (uuid.UUID, error) {
	if s == nil || s.pool == nil {
		return uuid.Nil, ErrStoreUnavailable
	}
	var lastError any
	if entry.LastError != nil {
		lastError = *entry.LastError
	}
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `INSERT INTO settlement_journal (invoice_no, kind, status, attempts, billing_amount, grand_total, payload, last_error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		entry.InvoiceNo, entry.Kind, entry.Status, entry.Attempts,
		entry.BillingAmount.String(), entry.GrandTotal.String(), entry.Payload, lastError).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// List returns journal entries, newest first, optionally filtered by kind.
func (s *pgStore) List(ctx context.Context, kind string, limit, offset int) ([]Entry, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	kind = strings.TrimSpace(kind)
	query := `SELECT id, invoice_no, kind, status, attempts, billing_amount, grand_total, payload, last_error, created_at
FROM settlement_journal`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = $1`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC`
	if kind != "" {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry         Entry
			billingAmount string
			grandTotal    string
			lastError     *string
		)
		if err := rows.Scan(&entry.ID, &entry.InvoiceNo, &entry.Kind, &entry.Status, &entry.Attempts,
			&billingAmount, &grandTotal, &entry.Payload, &lastError, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.BillingAmount, err = decimal.NewFromString(billingAmount)
		if err != nil {
			return nil, err
		}
		entry.GrandTotal, err = decimal.NewFromString(grandTotal)
		if err != nil {
			return nil, err
		}
		entry.LastError = lastError
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the number of journal entries, optionally filtered by kind.
func (s *pgStore) Count(ctx context.Context, kind string) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	kind = strings.TrimSpace(kind)
	var count int64
	var err error
	if kind != "" {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM settlement_journal WHERE kind = $1`, kind).Scan(&count)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM settlement_journal`).Scan(&count)
	}
	return count, err
}
