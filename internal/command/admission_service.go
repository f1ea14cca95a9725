package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ujjwalsingh108/payment-processing-app/internal/metrics"
	"github.com/ujjwalsingh108/payment-processing-app/internal/models"
	"github.com/ujjwalsingh108/payment-processing-app/internal/queue"
	"github.com/ujjwalsingh108/payment-processing-app/internal/repository"
)

// AdmitRequest is the validated payload of an inbound transaction webhook.
type AdmitRequest struct {
	TransactionID      string
	SourceAccount      string
	DestinationAccount string
	Amount             float64
	Currency           string
}

// AdmitOutcome distinguishes a winning admission from a duplicate. Both are
// successes to the caller; the split exists for logging and metrics.
type AdmitOutcome int

const (
	OutcomeAccepted AdmitOutcome = iota
	OutcomeDuplicate
)

// ValidationError rejects a request before any store access.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid webhook request: " + e.Reason
}

// AdmissionService registers transaction webhooks exactly once. The store's
// insert-if-absent decides the winner under concurrent duplicate delivery, and
// only the winner enqueues a processing task, so exactly one task per
// transaction_id ever reaches the queue.
type AdmissionService struct {
	store   repository.TransactionStore
	views   *repository.TransactionViewRepository
	queue   queue.TaskQueue
	logger  *slog.Logger
	metrics *metrics.Counters
}

func NewAdmissionService(
	store repository.TransactionStore,
	views *repository.TransactionViewRepository,
	q queue.TaskQueue,
	logger *slog.Logger,
	counters *metrics.Counters,
) *AdmissionService {
	return &AdmissionService{
		store:   store,
		views:   views,
		queue:   q,
		logger:  logger,
		metrics: counters,
	}
}

// Admit validates the request, attempts the winning insert, and enqueues the
// processing task only after the insert is confirmed. A duplicate id returns
// OutcomeDuplicate without touching the queue.
func (s *AdmissionService) Admit(ctx context.Context, req AdmitRequest) (AdmitOutcome, error) {
	s.metrics.IncReceived()

	if err := validate(req); err != nil {
		s.metrics.IncRejected()
		return 0, err
	}

	transaction := &models.Transaction{
		TransactionID:      req.TransactionID,
		SourceAccount:      req.SourceAccount,
		DestinationAccount: req.DestinationAccount,
		Amount:             req.Amount,
		Currency:           req.Currency,
		Status:             models.StatusProcessing,
		CreatedAt:          time.Now().UTC(),
	}

	err := s.store.InsertIfAbsent(ctx, transaction)
	if errors.Is(err, repository.ErrDuplicateTransaction) {
		s.metrics.IncDuplicate()
		s.logger.Info("duplicate webhook received", "transaction_id", req.TransactionID)
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to admit transaction: %w", err)
	}

	s.views.CacheView(ctx, models.NewTransactionView(transaction))

	// The insert committed, so the worker can never dequeue an id the store
	// does not contain.
	task := queue.Task{TransactionID: req.TransactionID, Attempt: 1}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return 0, fmt.Errorf("failed to enqueue processing task: %w", err)
	}

	s.metrics.IncAccepted()
	s.logger.Info("webhook accepted", "transaction_id", req.TransactionID)
	return OutcomeAccepted, nil
}

func validate(req AdmitRequest) error {
	switch {
	case req.TransactionID == "":
		return &ValidationError{Reason: "transaction_id is required"}
	case req.SourceAccount == "":
		return &ValidationError{Reason: "source_account is required"}
	case req.DestinationAccount == "":
		return &ValidationError{Reason: "destination_account is required"}
	case req.Amount <= 0:
		return &ValidationError{Reason: "amount must be greater than zero"}
	case req.Currency == "":
		return &ValidationError{Reason: "currency is required"}
	}
	return nil
}
