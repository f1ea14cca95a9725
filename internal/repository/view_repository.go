package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ujjwalsingh108/payment-processing-app/internal/models"
	"github.com/ujjwalsingh108/payment-processing-app/internal/redisclient"
)

const transactionViewKeyPrefix = "transaction:view:"

// A terminal view is immutable, but a cached PROCESSING view goes stale the
// moment the worker finishes. Writers refresh the cache after every committed
// store write; the TTL bounds how long a missed refresh can be served.
const viewCacheTTL = 5 * time.Minute

// TransactionViewRepository serves read-model projections, attempting Redis
// first and falling back to the store on a miss. With a nil Redis client it
// degrades to plain store reads.
type TransactionViewRepository struct {
	store TransactionStore
	cache *redisclient.ViewCache[models.TransactionView]
}

func NewTransactionViewRepository(store TransactionStore, redisClient *goredis.Client, logger *slog.Logger) *TransactionViewRepository {
	r := &TransactionViewRepository{store: store}
	if redisClient != nil {
		r.cache = redisclient.NewViewCache[models.TransactionView](redisClient, viewCacheTTL, logger)
	}
	return r
}

// GetByID returns a TransactionView, warming the cache on a store hit.
// Only terminal views are written back here: a PROCESSING snapshot read from
// the store may already be stale against the worker's terminal transition,
// and writing it would overwrite the worker's cache refresh.
func (r *TransactionViewRepository) GetByID(ctx context.Context, transactionID string) (*models.TransactionView, error) {
	if r.cache != nil {
		if view, ok := r.cache.Get(ctx, viewKey(transactionID)); ok {
			return view, nil
		}
	}

	t, err := r.store.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	view := models.NewTransactionView(t)
	if view.Status.IsTerminal() {
		r.CacheView(ctx, view)
	}
	return view, nil
}

// CacheView stores the read model for a transaction in Redis. Called by the
// admission service after the winning insert and by the worker after a
// terminal transition.
func (r *TransactionViewRepository) CacheView(ctx context.Context, view *models.TransactionView) {
	if r.cache == nil {
		return
	}
	r.cache.Set(ctx, viewKey(view.TransactionID), view)
}

func viewKey(transactionID string) string {
	return fmt.Sprintf("%s%s", transactionViewKeyPrefix, transactionID)
}
