package queue_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/queue"
)

func TestMoveToDLQAfterMaxAttempts(t *testing.T) {
	client := newQueueClient(t)

	store := newMemoryStore()
	enq := queue.Enqueuer{R: client, Prefix: "dlq", MaxAttempts: 2}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := zerolog.New(io.Discard)
	worker := queue.Worker{
		R:                 client,
		Prefix:            "dlq",
		Kind:              "invoice-submit",
		Concurrency:       1,
		VisibilityTimeout: 120 * time.Millisecond,
		RetryBase:         20 * time.Millisecond,
		Store:             store,
		Logger:            &log,
		Handler: func(context.Context, queue.Task) error {
			return errors.New("invoice api unavailable")
		},
	}

	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	task := queue.Task{Kind: "invoice-submit", Payload: []byte(`{"invoiceNo":"INV-3"}`), IdempotencyKey: "INV-3", MaxAttempts: 2}
	require.NoError(t, enq.Enqueue(context.Background(), task))

	require.Eventually(t, func() bool {
		count, err := store.CountQueueDlq(context.Background(), "invoice-submit")
		return err == nil && count == 1
	}, 2*time.Second, 20*time.Millisecond)

	snapshot := store.snapshot()
	require.Len(t, snapshot, 1)
	for _, entry := range snapshot {
		require.Equal(t, "invoice-submit", entry.Kind)
		require.Equal(t, "INV-3", entry.IdempotencyKey)
		require.Equal(t, 2, entry.Attempts)
		require.NotNil(t, entry.LastError)
		require.NotEmpty(t, entry.Payload)
	}

	cancel()
	<-done
}
