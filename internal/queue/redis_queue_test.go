package queue_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ujjwalsingh108/payment-processing-app/internal/queue"
)

func newRedisQueue(t *testing.T, client *goredis.Client, consumer string) *queue.RedisQueue {
	t.Helper()
	q, err := queue.NewRedisQueue(context.Background(), client, queue.RedisQueueConfig{
		Stream:        "transactions.process",
		Group:         "transaction-processors",
		Consumer:      consumer,
		BlockDuration: 50 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return q
}

func newRedisFixture(t *testing.T) *goredis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisQueue_EnqueueDequeueAck(t *testing.T) {
	client := newRedisFixture(t)
	q := newRedisQueue(t, client, "worker-1")
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, queue.Task{TransactionID: "txn_1", Attempt: 1}))

	dctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	d, err := q.Dequeue(dctx)
	require.NoError(t, err)
	require.Equal(t, "txn_1", d.Task.TransactionID)
	require.Equal(t, 1, d.Task.Attempt)

	require.NoError(t, q.Ack(ctx, d))
}

func TestRedisQueue_NackRetrySurvivesConsumerRestart(t *testing.T) {
	client := newRedisFixture(t)
	q := newRedisQueue(t, client, "worker-1")
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, queue.Task{TransactionID: "txn_1", Attempt: 1}))

	dctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	d, err := q.Dequeue(dctx)
	require.NoError(t, err)
	require.NoError(t, q.Nack(ctx, d, 0))

	// The retry lives in Redis, not in the consumer that nacked: a brand-new
	// consumer must still receive it with the incremented attempt.
	restarted := newRedisQueue(t, client, "worker-2")
	rctx, rcancel := context.WithTimeout(ctx, 2*time.Second)
	defer rcancel()
	redelivered, err := restarted.Dequeue(rctx)
	require.NoError(t, err)
	require.Equal(t, "txn_1", redelivered.Task.TransactionID)
	require.Equal(t, 2, redelivered.Task.Attempt)
	require.NoError(t, restarted.Ack(ctx, redelivered))
}

func TestRedisQueue_NackHoldsRetryUntilDue(t *testing.T) {
	client := newRedisFixture(t)
	q := newRedisQueue(t, client, "worker-1")
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, queue.Task{TransactionID: "txn_1", Attempt: 1}))

	dctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	d, err := q.Dequeue(dctx)
	require.NoError(t, err)
	require.NoError(t, q.Nack(ctx, d, time.Hour))

	parked, err := client.ZCard(ctx, "transactions.process:retry").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, parked)

	// Nothing is deliverable before the delay elapses.
	sctx, scancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer scancel()
	_, err = q.Dequeue(sctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	parked, err = client.ZCard(ctx, "transactions.process:retry").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, parked)
}
