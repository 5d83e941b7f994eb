// Package app wires configuration into the concrete store and event
// publisher shared by the API server and the reminder worker.
package app

import (
	"fmt"
	"net/http"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/config"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/events"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/memory"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/resilience"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/sqlite"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/supabase"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	"go.uber.org/zap"
)

// OpenStore returns the backend selected by cfg.DataBackend.
func OpenStore(cfg *config.Config, logger *zap.Logger) (port.Store, error) {
	switch cfg.DataBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil

	case config.BackendSQLite:
		logger.Info("using SQLite as data backend", zap.String("path", cfg.SQLitePath))
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, nil

	case config.BackendSupabase:
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		return supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnon,
			cfg.SupabaseKey,
			resilience.NewCircuitBreaker("supabase"),
			resilienceConfig(cfg),
			logger,
		), nil
	}
	return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
}

// NewPublisher connects to AMQP when configured and otherwise drops events.
func NewPublisher(cfg *config.Config, logger *zap.Logger) (port.EventPublisher, error) {
	if cfg.AMQPURL == "" {
		logger.Info("event publishing disabled (AMQP_URL not set)")
		return events.NoopPublisher{Logger: logger}, nil
	}
	pub, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		return nil, fmt.Errorf("connect amqp: %w", err)
	}
	logger.Info("event publishing enabled", zap.String("exchange", cfg.AMQPExchange))
	return pub, nil
}

func resilienceConfig(cfg *config.Config) resilience.Config {
	return resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
}
