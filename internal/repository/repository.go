package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ujjwalsingh108/payment-processing-app/internal/models"
)

var (
	// ErrDuplicateTransaction is returned by InsertIfAbsent when a record with
	// the same transaction_id already exists.
	ErrDuplicateTransaction = errors.New("transaction already exists")

	// ErrTransactionNotFound is returned by GetByID for unknown ids.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// TransactionStore is the durable keyed store for transactions. Implementations
// must make InsertIfAbsent and MarkTerminal atomic single-record operations:
// under concurrent inserts for one id exactly one caller wins, and a terminal
// status is written at most once per record.
type TransactionStore interface {
	// InsertIfAbsent creates the record if no record with the same
	// transaction_id exists. Returns ErrDuplicateTransaction when the key is
	// already taken; the stored record is never modified in that case.
	InsertIfAbsent(ctx context.Context, t *models.Transaction) error

	// GetByID returns the current record, or ErrTransactionNotFound.
	GetByID(ctx context.Context, transactionID string) (*models.Transaction, error)

	// MarkTerminal transitions the record from PROCESSING to the given terminal
	// status, setting processed_at, in a single conditional write. Returns
	// false when the record is no longer in PROCESSING (already terminal),
	// which callers must treat as a benign no-op.
	MarkTerminal(ctx context.Context, transactionID string, status models.TransactionStatus, processedAt time.Time) (bool, error)
}
