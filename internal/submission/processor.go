package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-billing/internal/events"
	"github.com/noah-isme/backend-billing/internal/invoices"
	"github.com/noah-isme/backend-billing/internal/journal"
	"github.com/noah-isme/backend-billing/internal/lock"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/queue"
)

// Journal entry statuses recorded for each submission attempt.
const (
	StatusSubmitted = "submitted"
	StatusFailed    = "failed"
)

// Processor posts settlements picked off the queue to the invoice API while
// holding a per-invoice lock, and records every outcome in the journal.
type Processor struct {
	Invoices invoices.Client
	Journal  journal.Store
	Events   *events.Bus
	Locker   lock.Locker
	LockTTL  time.Duration
	Logger   *zerolog.Logger
}

// Handle processes one queued submission task. A returned error makes the
// queue retry the task with backoff, so only transport failures propagate.
func (p Processor) Handle(ctx context.Context, task queue.Task) error {
	if p.Invoices == nil {
		return errors.New("submission: invoice client not configured")
	}
	var sub invoices.Submission
	if err := json.Unmarshal(task.Payload, &sub); err != nil {
		// Malformed payloads never succeed; drop them without retrying.
		if p.Logger != nil {
			p.Logger.Error().Err(err).Str("kind", task.Kind).Msg("submission_payload_invalid")
		}
		return nil
	}
	if sub.InvoiceNo == "" {
		return nil
	}

	ttl := p.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	key := fmt.Sprintf("lock:submission:%s", sub.InvoiceNo)
	return p.Locker.WithLock(ctx, key, ttl, func(ctx context.Context) error {
		return p.submit(ctx, task, sub)
	})
}

func (p Processor) submit(ctx context.Context, task queue.Task, sub invoices.Submission) error {
	kind := task.Kind
	if kind == "" {
		kind = "invoice-submit"
	}
	start := time.Now()
	result, err := p.Invoices.SubmitSettlement(ctx, sub)
	elapsed := time.Since(start)

	if err != nil {
		p.record(ctx, task, sub, StatusFailed, err)
		p.observe(kind, "error", elapsed)
		if task.MaxAttempts > 0 && task.Attempt >= task.MaxAttempts {
			p.emit(ctx, events.TopicSettlementFailed, sub, task)
		}
		if p.Logger != nil {
			p.Logger.Warn().Err(err).
				Str("invoice_no", sub.InvoiceNo).
				Str("kind", kind).
				Int("attempt", task.Attempt).
				Msg("settlement_submit_failed")
		}
		return err
	}

	p.record(ctx, task, sub, StatusSubmitted, nil)
	p.observe(kind, "ok", elapsed)
	topic := events.TopicSettlementSubmitted
	if kind == "return-submit" {
		topic = events.TopicReturnSubmitted
	}
	p.emit(ctx, topic, sub, task)
	if p.Logger != nil {
		p.Logger.Info().
			Str("invoice_no", sub.InvoiceNo).
			Str("kind", kind).
			Str("status", result.Status).
			Dur("elapsed", elapsed).
			Msg("settlement_submitted")
	}
	return nil
}

func (p Processor) record(ctx context.Context, task queue.Task, sub invoices.Submission, status string, cause error) {
	if p.Journal == nil {
		return
	}
	entry := journal.Entry{
		InvoiceNo:     sub.InvoiceNo,
		Kind:          task.Kind,
		Status:        status,
		Attempts:      task.Attempt,
		BillingAmount: sub.BillingAmount,
		GrandTotal:    sub.GrandTotal,
		Payload:       task.Payload,
	}
	if cause != nil {
		text := cause.Error()
		entry.LastError = &text
	}
	if _, err := p.Journal.Insert(ctx, entry); err != nil && p.Logger != nil {
		p.Logger.Error().Err(err).
			Str("invoice_no", sub.InvoiceNo).
			Msg("journal_insert_failed")
	}
}

func (p Processor) emit(ctx context.Context, topic string, sub invoices.Submission, task queue.Task) {
	if p.Events == nil {
		return
	}
	payload := map[string]any{
		"invoiceNo":  sub.InvoiceNo,
		"kind":       task.Kind,
		"attempt":    task.Attempt,
		"grandTotal": sub.GrandTotal,
	}
	if _, err := p.Events.Emit(ctx, topic, sub.InvoiceNo, payload); err != nil && p.Logger != nil {
		p.Logger.Error().Err(err).Str("topic", topic).Msg("event_emit_failed")
	}
}

func (p Processor) observe(kind, result string, elapsed time.Duration) {
	if obs.SubmissionsTotal != nil {
		obs.SubmissionsTotal.WithLabelValues(kind, result).Inc()
	}
	if obs.SubmissionLatency != nil {
		obs.SubmissionLatency.WithLabelValues(kind, result).Observe(float64(elapsed.Milliseconds()))
	}
}
