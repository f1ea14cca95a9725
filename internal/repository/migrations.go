package repository

import (
	"context"
	"database/sql"
	"fmt"
)

const createTransactionsTable = `
CREATE TABLE IF NOT EXISTS transactions (
	transaction_id      TEXT PRIMARY KEY,
	source_account      TEXT NOT NULL,
	destination_account TEXT NOT NULL,
	amount              DOUBLE PRECISION NOT NULL,
	currency            TEXT NOT NULL,
	status              TEXT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	processed_at        TIMESTAMPTZ
)`

// Migrate creates the schema if it does not exist. Run once at startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createTransactionsTable); err != nil {
		return fmt.Errorf("failed to create transactions table: %w", err)
	}
	return nil
}
