package models

import "time"

// TransactionStatus tracks a transaction through its lifecycle. A transaction
// enters PROCESSING at admission and moves exactly once to PROCESSED or FAILED.
type TransactionStatus string

const (
	StatusProcessing TransactionStatus = "PROCESSING"
	StatusProcessed  TransactionStatus = "PROCESSED"
	StatusFailed     TransactionStatus = "FAILED"
)

// IsTerminal reports whether no further status transitions are allowed.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// Transaction is the stored record for a webhook-delivered payment transaction.
// TransactionID is supplied by the external sender and is the identity key;
// ProcessedAt is nil until the worker reaches a terminal status.
type Transaction struct {
	TransactionID      string            `json:"transaction_id"`
	SourceAccount      string            `json:"source_account"`
	DestinationAccount string            `json:"destination_account"`
	Amount             float64           `json:"amount"`
	Currency           string            `json:"currency"`
	Status             TransactionStatus `json:"status"`
	CreatedAt          time.Time         `json:"created_at"`
	ProcessedAt        *time.Time        `json:"processed_at"`
}
