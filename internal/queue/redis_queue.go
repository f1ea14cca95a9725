package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a TaskQueue backed by a Redis stream with a consumer group.
//
// Enqueue is an XADD; Dequeue reads via XREADGROUP, first attempting to reclaim
// entries whose consumer went silent for longer than the visibility timeout
// (XAUTOCLAIM), which gives the at-least-once redelivery guarantee. Ack is an
// XACK. Nack parks the task with an incremented attempt in a retry sorted set
// scored by its ready time; consumers promote due retries back onto the
// stream, so a scheduled retry survives any consumer crash.
type RedisQueue struct {
	client            *redis.Client
	stream            string
	group             string
	consumer          string
	visibilityTimeout time.Duration
	blockDuration     time.Duration
	logger            *slog.Logger
}

type RedisQueueConfig struct {
	Stream            string
	Group             string
	Consumer          string
	VisibilityTimeout time.Duration
	BlockDuration     time.Duration
}

func NewRedisQueue(ctx context.Context, client *redis.Client, cfg RedisQueueConfig, logger *slog.Logger) (*RedisQueue, error) {
	if cfg.VisibilityTimeout == 0 {
		cfg.VisibilityTimeout = 2 * time.Minute
	}
	if cfg.BlockDuration == 0 {
		cfg.BlockDuration = 5 * time.Second
	}

	err := client.XGroupCreateMkStream(ctx, cfg.Stream, cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &RedisQueue{
		client:            client,
		stream:            cfg.Stream,
		group:             cfg.Group,
		consumer:          cfg.Consumer,
		visibilityTimeout: cfg.VisibilityTimeout,
		blockDuration:     cfg.BlockDuration,
		logger:            logger,
	}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{"task": payload},
	}
	if _, err := q.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	for {
		if d, ok := q.claimStale(ctx); ok {
			return d, nil
		}
		q.promoteDue(ctx)

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.stream, ">"},
			Count:    1,
			Block:    q.blockDuration,
		}).Result()

		if err == redis.Nil {
			continue // nothing within the block window, poll again
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to read from stream: %w", err)
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				d, err := q.toDelivery(msg)
				if err != nil {
					// Malformed entry, drop it rather than poison the group.
					q.logger.Error("dropping malformed queue entry", "id", msg.ID, "error", err)
					q.client.XAck(ctx, q.stream, q.group, msg.ID)
					continue
				}
				return d, nil
			}
		}
	}
}

// claimStale takes over one entry abandoned past the visibility timeout.
func (q *RedisQueue) claimStale(ctx context.Context) (*Delivery, bool) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  q.visibilityTimeout,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil || len(msgs) == 0 {
		return nil, false
	}

	d, err := q.toDelivery(msgs[0])
	if err != nil {
		q.logger.Error("dropping malformed reclaimed entry", "id", msgs[0].ID, "error", err)
		q.client.XAck(ctx, q.stream, q.group, msgs[0].ID)
		return nil, false
	}
	q.logger.Warn("reclaimed stale task", "transaction_id", d.Task.TransactionID, "attempt", d.Task.Attempt)
	return d, true
}

// promoteDue moves retries whose delay has elapsed back onto the stream.
func (q *RedisQueue) promoteDue(ctx context.Context) {
	due, err := q.client.ZRangeByScore(ctx, q.retryKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(time.Now().UnixMilli(), 10),
		Count: 16,
	}).Result()
	if err != nil || len(due) == 0 {
		return
	}

	for _, member := range due {
		// Stream first, then remove: a crash in between duplicates the
		// delivery, which consumers already tolerate.
		err := q.client.XAdd(ctx, &redis.XAddArgs{
			Stream: q.stream,
			Values: map[string]any{"task": member},
		}).Err()
		if err != nil {
			q.logger.Error("failed to promote retry", "error", err)
			continue
		}
		q.client.ZRem(ctx, q.retryKey(), member)
	}
}

func (q *RedisQueue) toDelivery(msg redis.XMessage) (*Delivery, error) {
	raw, ok := msg.Values["task"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid message format")
	}
	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &Delivery{Task: task, receipt: msg.ID}, nil
}

func (q *RedisQueue) Ack(ctx context.Context, d *Delivery) error {
	if err := q.client.XAck(ctx, q.stream, q.group, d.receipt).Err(); err != nil {
		return fmt.Errorf("failed to ack task: %w", err)
	}
	return nil
}

// Nack settles the delivered entry and schedules a fresh delivery with an
// incremented attempt once retryAfter elapses. The retry is written to Redis
// before the ack, so a consumer crash at any point redelivers rather than
// drops the task.
func (q *RedisQueue) Nack(ctx context.Context, d *Delivery, retryAfter time.Duration) error {
	next := Task{TransactionID: d.Task.TransactionID, Attempt: d.Task.Attempt + 1}
	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	readyAt := time.Now().Add(retryAfter)
	err = q.client.ZAdd(ctx, q.retryKey(), redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: string(payload),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}

	return q.Ack(ctx, d)
}

// retryKey names the sorted set holding delayed retries for this stream.
func (q *RedisQueue) retryKey() string {
	return q.stream + ":retry"
}
