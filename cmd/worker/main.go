package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/ujjwalsingh108/payment-processing-app/internal/config"
	"github.com/ujjwalsingh108/payment-processing-app/internal/logging"
	"github.com/ujjwalsingh108/payment-processing-app/internal/metrics"
	"github.com/ujjwalsingh108/payment-processing-app/internal/queue"
	"github.com/ujjwalsingh108/payment-processing-app/internal/redisclient"
	"github.com/ujjwalsingh108/payment-processing-app/internal/repository"
	"github.com/ujjwalsingh108/payment-processing-app/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database connection
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if err := repository.Migrate(ctx, db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Redis connection
	redis, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redis.Close()

	taskQueue, err := queue.NewRedisQueue(ctx, redis.Client, queue.RedisQueueConfig{
		Stream:            cfg.Queue.Stream,
		Group:             cfg.Queue.Group,
		Consumer:          cfg.Queue.Consumer,
		VisibilityTimeout: cfg.Queue.VisibilityTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to set up task queue", "error", err)
		os.Exit(1)
	}

	counters := &metrics.Counters{}
	store := repository.NewPostgresTransactionStore(db)
	views := repository.NewTransactionViewRepository(store, redis.Client, logger)

	executor := worker.NewSimulatedSettlementExecutor(cfg.Processing.ProcessingDelay, cfg.Processing.FailureRate)
	policy := worker.RetryPolicy{
		MaxAttempts: cfg.Processing.MaxRetryAttempts,
		BaseDelay:   cfg.Processing.RetryBaseDelay,
		MaxDelay:    cfg.Processing.RetryMaxDelay,
	}
	processor := worker.NewProcessor(store, views, taskQueue, executor, policy, cfg.Processing.ProcessingTimeout, logger, counters)
	pool := worker.NewPool(taskQueue, processor, cfg.Processing.Workers, logger)

	logger.Info("worker starting",
		"workers", cfg.Processing.Workers,
		"stream", cfg.Queue.Stream,
		"group", cfg.Queue.Group,
		"consumer", cfg.Queue.Consumer,
	)
	pool.Run(ctx)

	logger.Info("worker stopped", "metrics", counters.Snapshot())
}
