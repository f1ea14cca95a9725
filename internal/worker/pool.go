package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ujjwalsingh108/payment-processing-app/internal/queue"
)

// Pool runs a fixed number of consumer goroutines against the task queue.
// Each goroutine handles one task at a time and acknowledges only after the
// store transition, so a crash mid-task leads to redelivery, never loss.
// Worker count is a scaling knob, not a correctness one: records are
// independent and the store's conditional writes resolve any overlap.
type Pool struct {
	queue     queue.TaskQueue
	processor *Processor
	workers   int
	logger    *slog.Logger
}

func NewPool(q queue.TaskQueue, processor *Processor, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	return &Pool{queue: q, processor: processor, workers: workers, logger: logger}
}

// Run blocks until ctx is cancelled and every worker goroutine has drained.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.work(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) work(ctx context.Context, id int) {
	log := p.logger.With("worker", id)
	log.Info("worker started")

	for {
		d, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping")
				return
			}
			log.Error("dequeue failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if err := p.processor.Handle(ctx, d); err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping")
				return
			}
			log.Error("failed to settle task", "transaction_id", d.Task.TransactionID, "error", err)
		}
	}
}
