package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Data backends selectable with DATA_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

// Config holds all application configuration.
// Values come from environment variables (optionally seeded from .env) with defaults.
type Config struct {
	// Server
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	// Storage
	DataBackend  string `mapstructure:"data_backend"`
	SQLitePath   string `mapstructure:"sqlite_db_path"`
	SupabaseURL  string `mapstructure:"supabase_url"`
	SupabaseAnon string `mapstructure:"supabase_anon_key"`
	SupabaseKey  string `mapstructure:"supabase_service_role_key"`

	// HTTP client
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	// Resilience
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`

	// Cache
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// Observability
	OTLPEndpoint   string `mapstructure:"otel_exporter_otlp_endpoint"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`

	// Events; an empty URL selects the no-op publisher
	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPExchange string `mapstructure:"amqp_exchange"`

	// Tenant tokens; an empty secret disables the check
	JWTSecret string `mapstructure:"jwt_secret"`

	// Reminder worker
	WorkerInterval        time.Duration `mapstructure:"worker_interval"`
	ReminderLookaheadDays int           `mapstructure:"reminder_lookahead_days"`
}

var defaults = map[string]any{
	"port":                        8080,
	"log_level":                   "info",
	"data_backend":                BackendMemory,
	"sqlite_db_path":              "data/expenseflow.db",
	"supabase_url":                "",
	"supabase_anon_key":           "",
	"supabase_service_role_key":   "",
	"http_timeout":                10 * time.Second,
	"max_retries":                 3,
	"initial_backoff":             100 * time.Millisecond,
	"max_concurrency":             50,
	"cache_ttl":                   5 * time.Minute,
	"otel_exporter_otlp_endpoint": "localhost:4317",
	"tracing_enabled":             false,
	"amqp_url":                    "",
	"amqp_exchange":               "expenseflow.events",
	"jwt_secret":                  "",
	"worker_interval":             time.Hour,
	"reminder_lookahead_days":     7,
}

// Load reads .env (existing environment variables win) and then the
// environment, falling back to defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_DB_PATH is required for the sqlite backend"))
		}
	case BackendSupabase:
		if c.SupabaseURL == "" {
			errs = append(errs, errors.New("SUPABASE_URL is required for the supabase backend"))
		}
		if c.SupabaseKey == "" {
			errs = append(errs, errors.New("SUPABASE_SERVICE_ROLE_KEY is required for the supabase backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATA_BACKEND must be one of memory, sqlite, supabase; got %q", c.DataBackend))
	}

	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("MAX_RETRIES must not be negative"))
	}
	if c.InitialBackoff < 0 {
		errs = append(errs, errors.New("INITIAL_BACKOFF must not be negative"))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, errors.New("MAX_CONCURRENCY must be at least 1"))
	}
	if c.TracingEnabled && c.OTLPEndpoint == "" {
		errs = append(errs, errors.New("OTEL_EXPORTER_OTLP_ENDPOINT is required when TRACING_ENABLED is set"))
	}
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		errs = append(errs, errors.New("AMQP_EXCHANGE is required when AMQP_URL is set"))
	}
	if c.WorkerInterval <= 0 {
		errs = append(errs, errors.New("WORKER_INTERVAL must be positive"))
	}
	if c.ReminderLookaheadDays < 0 {
		errs = append(errs, errors.New("REMINDER_LOOKAHEAD_DAYS must not be negative"))
	}

	return errors.Join(errs...)
}

// TracingEndpoint is the OTLP endpoint to export to, or "" when tracing is off.
func (c *Config) TracingEndpoint() string {
	if !c.TracingEnabled {
		return ""
	}
	return c.OTLPEndpoint
}
