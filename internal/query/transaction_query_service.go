package query

import (
	"context"

	"github.com/ujjwalsingh108/payment-processing-app/internal/models"
	"github.com/ujjwalsingh108/payment-processing-app/internal/repository"
)

// TransactionQueryService serves status lookups for external pollers. Reads
// are side-effect free and reflect the latest committed store state.
type TransactionQueryService struct {
	views *repository.TransactionViewRepository
}

func NewTransactionQueryService(views *repository.TransactionViewRepository) *TransactionQueryService {
	return &TransactionQueryService{views: views}
}

// GetTransaction returns the current view of a transaction, or
// repository.ErrTransactionNotFound for unknown ids.
func (s *TransactionQueryService) GetTransaction(ctx context.Context, transactionID string) (*models.TransactionView, error) {
	return s.views.GetByID(ctx, transactionID)
}
