package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	"github.com/ujjwalsingh108/payment-processing-app/internal/command"
	"github.com/ujjwalsingh108/payment-processing-app/internal/config"
	"github.com/ujjwalsingh108/payment-processing-app/internal/handler"
	"github.com/ujjwalsingh108/payment-processing-app/internal/logging"
	"github.com/ujjwalsingh108/payment-processing-app/internal/metrics"
	"github.com/ujjwalsingh108/payment-processing-app/internal/middleware"
	"github.com/ujjwalsingh108/payment-processing-app/internal/query"
	"github.com/ujjwalsingh108/payment-processing-app/internal/queue"
	"github.com/ujjwalsingh108/payment-processing-app/internal/redisclient"
	"github.com/ujjwalsingh108/payment-processing-app/internal/repository"
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

	// Redis connection (queue transport + view cache)
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

	// Services
	counters := &metrics.Counters{}
	store := repository.NewPostgresTransactionStore(db)
	views := repository.NewTransactionViewRepository(store, redis.Client, logger)
	admissionSvc := command.NewAdmissionService(store, views, taskQueue, logger, counters)
	querySvc := query.NewTransactionQueryService(views)

	webhookHandler := handler.NewWebhookHandler(admissionSvc, querySvc)

	// Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger))

	router.GET("/", webhookHandler.HealthCheck)
	v := router.Group("/" + cfg.HTTP.APIVersion)
	{
		v.POST("/webhooks/transactions", webhookHandler.ReceiveWebhook)
		v.GET("/transactions/:transactionId", webhookHandler.GetTransaction)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info("webhook server starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}

	logger.Info("server stopped", "metrics", counters.Snapshot())
}
