package models

import "time"

// TransactionView is the read-optimised projection served by the status query
// endpoint and cached in Redis. It mirrors Transaction field-for-field today but
// is a separate type so the API shape can diverge from the write model.
type TransactionView struct {
	TransactionID      string            `json:"transaction_id"`
	SourceAccount      string            `json:"source_account"`
	DestinationAccount string            `json:"destination_account"`
	Amount             float64           `json:"amount"`
	Currency           string            `json:"currency"`
	Status             TransactionStatus `json:"status"`
	CreatedAt          time.Time         `json:"created_at"`
	ProcessedAt        *time.Time        `json:"processed_at"`
}

// NewTransactionView projects the write model into its read view.
func NewTransactionView(t *Transaction) *TransactionView {
	return &TransactionView{
		TransactionID:      t.TransactionID,
		SourceAccount:      t.SourceAccount,
		DestinationAccount: t.DestinationAccount,
		Amount:             t.Amount,
		Currency:           t.Currency,
		Status:             t.Status,
		CreatedAt:          t.CreatedAt,
		ProcessedAt:        t.ProcessedAt,
	}
}
