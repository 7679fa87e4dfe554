package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/godown-erp/godown/internal/app"
	"github.com/godown-erp/godown/internal/auth"
	"github.com/godown-erp/godown/internal/billing"
	"github.com/godown-erp/godown/internal/observability"
	"github.com/godown-erp/godown/internal/platform/db"
	"github.com/godown-erp/godown/internal/product"
	"github.com/godown-erp/godown/internal/shared"
	"github.com/godown-erp/godown/internal/view"
	"github.com/godown-erp/godown/jobs"
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "godown_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	authService, err := auth.NewService(cfg.OperatorUser, cfg.OperatorPassword)
	if err != nil {
		logger.Error("init auth", slog.Any("error", err))
		os.Exit(1)
	}
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	productRepo := product.NewRepository(dbpool)
	productService := product.NewService(productRepo)
	productHandler := product.NewHandler(logger, productService, templates, csrfManager)

	enqueuer := jobs.NewEnqueuer(cfg.RedisAddr)
	defer func() {
		if err := enqueuer.Close(); err != nil {
			logger.Warn("enqueuer close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	billingRepo := billing.NewRepository(dbpool)
	pdfRenderer := billing.NewFileRenderer(cfg.InvoiceDir)
	billingService := billing.NewService(billingRepo, pdfRenderer, enqueuer, logger)
	billingHandler := billing.NewHandler(logger, billingService, productService, templates, csrfManager, metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		ProductHandler: productHandler,
		BillingHandler: billingHandler,
		Metrics:        metrics,
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
