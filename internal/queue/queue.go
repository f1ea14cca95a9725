package queue

import (
	"context"
	"time"
)

// Task is the payload carried on the processing queue. Attempt starts at 1 for
// the admission-time enqueue and is incremented by the queue on each Nack, so
// retry state lives on the task itself rather than in the store.
type Task struct {
	TransactionID string `json:"transaction_id"`
	Attempt       int    `json:"attempt"`
}

// Delivery is one received task plus the transport receipt needed to settle it.
type Delivery struct {
	Task Task

	// receipt identifies the in-flight message to the transport (a Redis
	// stream entry id, or an in-memory token).
	receipt string
}

// TaskQueue is an at-least-once delivery channel for processing tasks.
//
// A dequeued task stays in-flight until Ack or Nack. Implementations redeliver
// tasks that are neither acked nor nacked within a visibility window, so a
// consumer crash never loses a task; consumers must therefore tolerate
// duplicate delivery. Nack schedules a fresh delivery of the task with an
// incremented attempt count after the given delay.
type TaskQueue interface {
	Enqueue(ctx context.Context, task Task) error

	// Dequeue blocks until a task is available or ctx is done.
	Dequeue(ctx context.Context) (*Delivery, error)

	Ack(ctx context.Context, d *Delivery) error
	Nack(ctx context.Context, d *Delivery, retryAfter time.Duration) error
}
