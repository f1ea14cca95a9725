package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ujjwalsingh108/payment-processing-app/internal/metrics"
	"github.com/ujjwalsingh108/payment-processing-app/internal/models"
	"github.com/ujjwalsingh108/payment-processing-app/internal/queue"
	"github.com/ujjwalsingh108/payment-processing-app/internal/repository"
)

// Processor consumes processing tasks and drives each transaction to its
// terminal status. The store-level conditional update makes a redelivered task
// for an already-terminal record a safe no-op, and the terminal write is the
// only mutation this code ever performs.
type Processor struct {
	store    repository.TransactionStore
	views    *repository.TransactionViewRepository
	queue    queue.TaskQueue
	executor SettlementExecutor
	policy   RetryPolicy
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Counters
}

func NewProcessor(
	store repository.TransactionStore,
	views *repository.TransactionViewRepository,
	q queue.TaskQueue,
	executor SettlementExecutor,
	policy RetryPolicy,
	timeout time.Duration,
	logger *slog.Logger,
	counters *metrics.Counters,
) *Processor {
	return &Processor{
		store:    store,
		views:    views,
		queue:    q,
		executor: executor,
		policy:   policy,
		timeout:  timeout,
		logger:   logger,
		metrics:  counters,
	}
}

// Handle processes one delivery end to end, including settling it with the
// queue. It returns an error only when the delivery could not be settled.
func (p *Processor) Handle(ctx context.Context, d *queue.Delivery) error {
	task := d.Task
	log := p.logger.With("transaction_id", task.TransactionID, "attempt", task.Attempt)

	t, err := p.store.GetByID(ctx, task.TransactionID)
	if errors.Is(err, repository.ErrTransactionNotFound) {
		// A task for an id the store has never seen means the insert-before-
		// enqueue ordering was broken somewhere. Not retryable.
		log.Error("task references unknown transaction, dropping")
		return p.queue.Ack(ctx, d)
	}
	if err != nil {
		log.Error("failed to load transaction", "error", err)
		return p.retryOrFail(ctx, d, log)
	}

	if t.Status.IsTerminal() {
		// Redelivery of a finished task; nothing to re-run.
		log.Info("transaction already terminal, acknowledging", "status", t.Status)
		return p.queue.Ack(ctx, d)
	}

	log.Info("processing transaction")

	execCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err = p.executor.Execute(execCtx, t)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			// Shutdown, not a settlement failure. Leave the delivery
			// in-flight; the visibility timeout redelivers it unchanged.
			return ctx.Err()
		}
		log.Warn("settlement attempt failed", "error", err)
		return p.retryOrFail(ctx, d, log)
	}

	if err := p.finish(ctx, task.TransactionID, models.StatusProcessed); err != nil {
		log.Error("failed to record processed status", "error", err)
		return p.retryOrFail(ctx, d, log)
	}

	p.metrics.IncProcessed()
	log.Info("transaction processed")
	return p.queue.Ack(ctx, d)
}

// retryOrFail nacks the delivery with the policy's backoff, or writes the
// terminal FAILED status once no attempts remain.
func (p *Processor) retryOrFail(ctx context.Context, d *queue.Delivery, log *slog.Logger) error {
	task := d.Task
	if !p.policy.Exhausted(task.Attempt) {
		delay := p.policy.Delay(task.Attempt)
		p.metrics.IncRetried()
		log.Info("scheduling retry", "delay", delay)
		return p.queue.Nack(ctx, d, delay)
	}

	if err := p.finish(ctx, task.TransactionID, models.StatusFailed); err != nil {
		log.Error("failed to record failed status", "error", err)
		return p.queue.Nack(ctx, d, p.policy.Delay(task.Attempt))
	}

	p.metrics.IncFailed()
	log.Error("retry attempts exhausted, transaction failed")
	return p.queue.Ack(ctx, d)
}

// finish writes the terminal transition. The conditional update only succeeds
// while the record is still PROCESSING; losing that race is fine, the cache is
// refreshed only by the winner.
func (p *Processor) finish(ctx context.Context, transactionID string, status models.TransactionStatus) error {
	processedAt := time.Now().UTC()
	updated, err := p.store.MarkTerminal(ctx, transactionID, status, processedAt)
	if err != nil {
		return err
	}
	if !updated {
		return nil
	}

	t, err := p.store.GetByID(ctx, transactionID)
	if err == nil {
		p.views.CacheView(ctx, models.NewTransactionView(t))
	}
	return nil
}
