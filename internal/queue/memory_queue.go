package queue

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryQueue is a channel-backed TaskQueue with the same at-least-once
// contract as the Redis implementation. Dequeued tasks are tracked in an
// in-flight table; a reaper requeues any task not settled within the
// visibility timeout. Used by tests and by local runs without Redis.
type MemoryQueue struct {
	tasks      chan Task
	visibility time.Duration

	mu       sync.Mutex
	inflight map[string]inflightTask

	seq  atomic.Int64
	done chan struct{}
	wg   sync.WaitGroup
}

type inflightTask struct {
	task     Task
	deadline time.Time
}

func NewMemoryQueue(visibility time.Duration) *MemoryQueue {
	if visibility == 0 {
		visibility = 2 * time.Minute
	}
	q := &MemoryQueue{
		tasks:      make(chan Task, 1024),
		visibility: visibility,
		inflight:   make(map[string]inflightTask),
		done:       make(chan struct{}),
	}

	q.wg.Add(1)
	go q.reap()
	return q
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task Task) error {
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	select {
	case task := <-q.tasks:
		receipt := strconv.FormatInt(q.seq.Add(1), 10)
		q.mu.Lock()
		q.inflight[receipt] = inflightTask{task: task, deadline: time.Now().Add(q.visibility)}
		q.mu.Unlock()
		return &Delivery{Task: task, receipt: receipt}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Ack(_ context.Context, d *Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.inflight[d.receipt]; !ok {
		return fmt.Errorf("unknown or already settled delivery %s", d.receipt)
	}
	delete(q.inflight, d.receipt)
	return nil
}

func (q *MemoryQueue) Nack(ctx context.Context, d *Delivery, retryAfter time.Duration) error {
	if err := q.Ack(ctx, d); err != nil {
		return err
	}

	next := Task{TransactionID: d.Task.TransactionID, Attempt: d.Task.Attempt + 1}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(retryAfter)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-q.done:
		}
		select {
		case q.tasks <- next:
		case <-q.done:
			// Shutting down; drop only if the buffer is full.
			select {
			case q.tasks <- next:
			default:
			}
		}
	}()

	return nil
}

// reap requeues in-flight tasks whose visibility window expired, modelling a
// consumer that crashed mid-task.
func (q *MemoryQueue) reap() {
	defer q.wg.Done()

	interval := q.visibility / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.done:
			return
		case now := <-ticker.C:
			q.mu.Lock()
			var expired []Task
			for receipt, in := range q.inflight {
				if now.After(in.deadline) {
					expired = append(expired, in.task)
					delete(q.inflight, receipt)
				}
			}
			q.mu.Unlock()

			for _, task := range expired {
				select {
				case q.tasks <- task:
				default:
				}
			}
		}
	}
}

// Close stops the reaper and flushes pending retry timers.
func (q *MemoryQueue) Close() {
	close(q.done)
	q.wg.Wait()
}

// Len reports how many tasks are waiting for delivery. Intended for tests.
func (q *MemoryQueue) Len() int {
	return len(q.tasks)
}
