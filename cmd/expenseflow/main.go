package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/app"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/config"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/handler"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/cache"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/observability"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_backend", cfg.DataBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("tracing_enabled", cfg.TracingEnabled),
		zap.Bool("tenant_auth", cfg.JWTSecret != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(context.Background(), cfg.TracingEndpoint(), "expenseflow-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	store, err := app.OpenStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	// --- Events ---
	publisher, err := app.NewPublisher(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create event publisher", zap.Error(err))
	}
	defer publisher.Close()

	// --- Cache ---
	categoryCache := cache.New[[]domain.Category](cfg.CacheTTL)
	defer categoryCache.Close()

	// --- Services ---
	services := handler.Services{
		Tenants:      service.NewTenantService(store, logger),
		Categories:   service.NewCategoryService(store, categoryCache, metrics, logger),
		Transactions: service.NewTransactionService(store, store, logger),
		MonthEnd:     service.NewMonthEndService(store, publisher, metrics, logger),
		Accounts:     service.NewAccountService(store, metrics, logger),
		Borrowings:   service.NewBorrowingService(store, publisher, metrics, logger),
		Reminders:    service.NewReminderService(store, store, logger),
		Reports:      service.NewReportService(store, logger),
	}

	// --- Router ---
	router := handler.NewRouter(services, handler.Options{
		JWTSecret: []byte(cfg.JWTSecret),
		Store:     store,
		Backend:   cfg.DataBackend,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
