package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.DataBackend != config.BackendMemory {
		t.Errorf("expected memory backend, got %s", cfg.DataBackend)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("expected 5m cache ttl, got %s", cfg.CacheTTL)
	}
	if cfg.ReminderLookaheadDays != 7 {
		t.Errorf("expected 7 lookahead days, got %d", cfg.ReminderLookaheadDays)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", "/tmp/x.db")
	t.Setenv("WORKER_INTERVAL", "15m")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.DataBackend != config.BackendSQLite || cfg.SQLitePath != "/tmp/x.db" {
		t.Errorf("unexpected storage config: %s %s", cfg.DataBackend, cfg.SQLitePath)
	}
	if cfg.WorkerInterval != 15*time.Minute {
		t.Errorf("expected 15m, got %s", cfg.WorkerInterval)
	}
	if cfg.TracingEndpoint() != "localhost:4317" {
		t.Errorf("expected tracing endpoint, got %q", cfg.TracingEndpoint())
	}
	if cfg.JWTSecret != "s3cret" {
		t.Errorf("expected jwt secret from env")
	}
}

func TestValidate_AccumulatesErrors(t *testing.T) {
	cfg := &config.Config{
		Port:           0,
		DataBackend:    config.BackendSupabase,
		HTTPTimeout:    time.Second,
		MaxConcurrency: 0,
		WorkerInterval: time.Minute,
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"PORT", "SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY", "MAX_CONCURRENCY"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %s in %q", want, msg)
		}
	}
}

func TestValidate_UnknownBackend(t *testing.T) {
	cfg := &config.Config{
		Port:           8080,
		DataBackend:    "mongo",
		HTTPTimeout:    time.Second,
		MaxConcurrency: 1,
		WorkerInterval: time.Minute,
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "DATA_BACKEND") {
		t.Fatalf("expected DATA_BACKEND error, got %v", err)
	}
}

func TestTracingEndpoint_Disabled(t *testing.T) {
	cfg := &config.Config{OTLPEndpoint: "collector:4317"}
	if got := cfg.TracingEndpoint(); got != "" {
		t.Errorf("expected empty endpoint when tracing disabled, got %q", got)
	}
}
