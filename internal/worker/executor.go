package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ujjwalsingh108/payment-processing-app/internal/models"
)

// SettlementExecutor performs the external settlement step for a transaction.
// Any returned error is treated as transient and retried under the policy.
type SettlementExecutor interface {
	Execute(ctx context.Context, t *models.Transaction) error
}

// SimulatedSettlementExecutor stands in for the real settlement API: it waits
// for a fixed delay and fails a configurable percentage of calls. The delay is
// interruptible, so the processing timeout on ctx is honoured.
type SimulatedSettlementExecutor struct {
	delay       time.Duration
	failureRate int // 0-100
}

func NewSimulatedSettlementExecutor(delay time.Duration, failureRate int) *SimulatedSettlementExecutor {
	return &SimulatedSettlementExecutor{delay: delay, failureRate: failureRate}
}

func (e *SimulatedSettlementExecutor) Execute(ctx context.Context, t *models.Transaction) error {
	timer := time.NewTimer(e.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return fmt.Errorf("settlement interrupted: %w", ctx.Err())
	}

	if e.failureRate > 0 && rand.Intn(100) < e.failureRate {
		return errors.New("simulated settlement failure")
	}
	return nil
}
