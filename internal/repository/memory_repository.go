package repository

import (
	"context"
	"sync"
	"time"

	"github.com/ujjwalsingh108/payment-processing-app/internal/models"
)

// MemoryTransactionStore is a mutex-guarded in-memory TransactionStore with the
// same atomicity contract as the Postgres implementation. Used by tests and by
// local runs without a database.
type MemoryTransactionStore struct {
	mu      sync.RWMutex
	records map[string]models.Transaction
}

func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{records: make(map[string]models.Transaction)}
}

func (s *MemoryTransactionStore) InsertIfAbsent(_ context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[t.TransactionID]; exists {
		return ErrDuplicateTransaction
	}
	s.records[t.TransactionID] = *t
	return nil
}

func (s *MemoryTransactionStore) GetByID(_ context.Context, transactionID string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[transactionID]
	if !exists {
		return nil, ErrTransactionNotFound
	}
	if rec.ProcessedAt != nil {
		ts := *rec.ProcessedAt
		rec.ProcessedAt = &ts
	}
	return &rec, nil
}

func (s *MemoryTransactionStore) MarkTerminal(_ context.Context, transactionID string, status models.TransactionStatus, processedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[transactionID]
	if !exists || rec.Status != models.StatusProcessing {
		return false, nil
	}
	rec.Status = status
	rec.ProcessedAt = &processedAt
	s.records[transactionID] = rec
	return true, nil
}
