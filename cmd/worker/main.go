package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/shoplytics/shoplytics/internal/app"
	"github.com/shoplytics/shoplytics/internal/audit"
	"github.com/shoplytics/shoplytics/internal/customers"
	"github.com/shoplytics/shoplytics/internal/orders"
	"github.com/shoplytics/shoplytics/internal/platform/crypt"
	"github.com/shoplytics/shoplytics/internal/platform/db"
	"github.com/shoplytics/shoplytics/internal/products"
	"github.com/shoplytics/shoplytics/internal/shopify"
	"github.com/shoplytics/shoplytics/internal/stores"
	"github.com/shoplytics/shoplytics/internal/storesync"
	"github.com/shoplytics/shoplytics/internal/webhooks"
	"github.com/shoplytics/shoplytics/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	sealKey, err := cfg.SealKey()
	if err != nil {
		logger.Error("seal key", slog.Any("error", err))
		os.Exit(1)
	}
	sealer, err := crypt.NewSealer(sealKey)
	if err != nil {
		logger.Error("sealer", slog.Any("error", err))
		os.Exit(1)
	}

	storeRepo := stores.NewRepository(dbpool)
	customerRepo := customers.NewRepository(dbpool)
	productService := products.NewService(products.NewRepository(dbpool))
	orderRepo := orders.NewRepository(dbpool)
	auditRepo := audit.NewRepository(dbpool)
	deliveryStore := webhooks.NewDeliveryStore(dbpool)

	syncService := storesync.NewService(storesync.ServiceParams{
		Logger: logger,
		Stores: storeRepo,
		Sealer: sealer,
		Clients: func(shop, token string) storesync.AdminAPI {
			return shopify.NewClient(shop, token, http.DefaultClient)
		},
		Customers: customerRepo,
		Products:  productService,
		Orders:    orderRepo,
	})

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeStoreSync, Handler: jobs.HandleStoreSyncTask(syncService, logger)},
			{Type: jobs.TaskTypeAuditRetry, Handler: jobs.HandleAuditRetryTask(auditRepo, logger)},
			{Type: jobs.TaskTypeDedupeCleanup, Handler: jobs.HandleDedupeCleanupTask(deliveryStore, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: jobs.NewDedupeCleanupTask()},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
