package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shoplytics/shoplytics/internal/app"
	"github.com/shoplytics/shoplytics/internal/audit"
	"github.com/shoplytics/shoplytics/internal/customers"
	"github.com/shoplytics/shoplytics/internal/orders"
	"github.com/shoplytics/shoplytics/internal/platform/cache"
	"github.com/shoplytics/shoplytics/internal/platform/crypt"
	"github.com/shoplytics/shoplytics/internal/platform/db"
	"github.com/shoplytics/shoplytics/internal/products"
	"github.com/shoplytics/shoplytics/internal/shopify"
	"github.com/shoplytics/shoplytics/internal/stores"
	"github.com/shoplytics/shoplytics/internal/webhooks"
	"github.com/shoplytics/shoplytics/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

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

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	storeRepo := stores.NewRepository(dbpool)
	storeService := stores.NewService(storeRepo)
	storeHandler := stores.NewHandler(logger, storeService)

	customerRepo := customers.NewRepository(dbpool)
	productRepo := products.NewRepository(dbpool)
	productService := products.NewService(productRepo)
	orderRepo := orders.NewRepository(dbpool)

	auditRepo := audit.NewRepository(dbpool)
	recorder := audit.NewRecorder(auditRepo, logger, jobClient)

	deliveryStore := webhooks.NewDeliveryStore(dbpool)
	dispatcher := webhooks.NewDispatcher(webhooks.DispatcherParams{
		Logger:     logger,
		Verifier:   webhooks.NewVerifier(cfg.WebhookSecret),
		Stores:     storeService,
		Deliveries: deliveryStore,
		Customers:  customerRepo,
		Products:   productService,
		Orders:     orderRepo,
		Recorder:   recorder,
	})
	webhookHandler := webhooks.NewHandler(logger, dispatcher)

	stateStore := shopify.NewStateStore(redisClient, 10*time.Minute)
	exchanger := &shopify.RESTExchanger{
		APIKey:    cfg.ShopifyAPIKey,
		APISecret: cfg.ShopifyAPISecret,
		Client:    http.DefaultClient,
	}
	oauthHandler := shopify.NewOAuthHandler(logger, shopify.OAuthConfig{
		APIKey:       cfg.ShopifyAPIKey,
		APISecret:    cfg.ShopifyAPISecret,
		Scopes:       cfg.ShopifyScopes,
		RedirectBase: cfg.ShopifyRedirectBase,
	}, stateStore, storeService, sealer, exchanger, jobClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		WebhookHandler: webhookHandler,
		OAuthHandler:   oauthHandler,
		StoreHandler:   storeHandler,
		JobHandler:     jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
