package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ujjwalsingh108/payment-processing-app/internal/models"
)

// PostgresTransactionStore is the production TransactionStore. Insert-if-absent
// rides on the primary key constraint (ON CONFLICT DO NOTHING) and the terminal
// transition is a conditional single-statement update, so both are atomic at
// the database without explicit locking.
type PostgresTransactionStore struct {
	db *sql.DB
}

func NewPostgresTransactionStore(db *sql.DB) *PostgresTransactionStore {
	return &PostgresTransactionStore{db: db}
}

func (s *PostgresTransactionStore) InsertIfAbsent(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (transaction_id, source_account, destination_account, amount, currency, status, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
		ON CONFLICT (transaction_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		t.TransactionID, t.SourceAccount, t.DestinationAccount,
		t.Amount, t.Currency, t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read insert result: %w", err)
	}
	if rows == 0 {
		return ErrDuplicateTransaction
	}
	return nil
}

func (s *PostgresTransactionStore) GetByID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	query := `
		SELECT transaction_id, source_account, destination_account, amount, currency, status, created_at, processed_at
		FROM transactions
		WHERE transaction_id = $1
	`
	var t models.Transaction
	var processedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, transactionID).Scan(
		&t.TransactionID, &t.SourceAccount, &t.DestinationAccount,
		&t.Amount, &t.Currency, &t.Status, &t.CreatedAt, &processedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if processedAt.Valid {
		ts := processedAt.Time
		t.ProcessedAt = &ts
	}
	return &t, nil
}

func (s *PostgresTransactionStore) MarkTerminal(ctx context.Context, transactionID string, status models.TransactionStatus, processedAt time.Time) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $2, processed_at = $3
		WHERE transaction_id = $1 AND status = $4
	`
	res, err := s.db.ExecContext(ctx, query, transactionID, status, processedAt, models.StatusProcessing)
	if err != nil {
		return false, fmt.Errorf("failed to update transaction status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return rows == 1, nil
}
