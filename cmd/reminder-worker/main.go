package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/app"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/config"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/observability"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/resilience"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel).Named("reminder-worker")
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("memory backend has no data shared with the API; sweeps will find nothing")
	}

	shutdownTracer, err := observability.InitTracer(context.Background(), cfg.TracingEndpoint(), "expenseflow-reminder-worker")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	store, err := app.OpenStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	publisher, err := app.NewPublisher(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create event publisher", zap.Error(err))
	}
	defer publisher.Close()

	sweeper := service.NewSweeper(
		store,
		publisher,
		resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg.ReminderLookaheadDays,
		observability.NewMetrics(),
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("reminder sweep configured",
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Int("lookahead_days", cfg.ReminderLookaheadDays),
		zap.String("data_backend", cfg.DataBackend),
	)

	run := func(now time.Time) {
		res, err := sweeper.Sweep(ctx, now)
		if err != nil {
			logger.Error("sweep failed", zap.Error(err))
			return
		}
		logger.Info("sweep complete",
			zap.Int("tenants", res.Tenants),
			zap.Int("reminders_due", res.RemindersDue),
			zap.Int("overdue_borrowings", res.OverdueBorrowing),
			zap.Int("failed_tenants", res.Failed),
			zap.Time("next_run", now.Add(cfg.WorkerInterval)),
		)
	}

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	// initial sweep on startup
	run(time.Now())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				run(now)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutdown signal received", zap.String("signal", sig.String()))

	cancel()
	select {
	case <-done:
		logger.Info("reminder-worker stopped")
	case <-time.After(30 * time.Second):
		logger.Warn("shutdown timeout reached")
	}
}
