package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMetrics_CountersAndSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrPosting("surplus_transfer")
	m.IncrPosting("surplus_transfer")
	m.IncrPosting("zero_balance")
	m.IncrCacheHit("categories")
	m.IncrCacheMiss("categories")
	m.IncrMonthEndRun("completed")
	m.IncrRepayment("Active")
	m.IncrEventPublished("month.closed", true)
	m.IncrEventPublished("month.closed", false)
	m.AddRemindersDue(3)

	if got := m.CounterValue("postings", "surplus_transfer"); got != 2 {
		t.Errorf("expected 2 surplus postings, got %v", got)
	}
	if got := m.CounterValue("events_published", "month.closed", "error"); got != 1 {
		t.Errorf("expected 1 failed publish, got %v", got)
	}
	if got := m.CounterValue("unknown"); got != 0 {
		t.Errorf("expected 0 for unknown counter, got %v", got)
	}

	s := m.Snapshot()
	if s.Postings != 3 || s.CacheHits != 1 || s.CacheMisses != 1 || s.MonthEndRuns != 1 {
		t.Errorf("unexpected snapshot: %+v", s)
	}
	if s.EventsPublished != 2 || s.Repayments != 1 || s.RemindersDue != 3 {
		t.Errorf("unexpected snapshot: %+v", s)
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := observability.NewMetrics()
	b := observability.NewMetrics()
	a.IncrPosting("zero_balance")

	if b.Snapshot().Postings != 0 {
		t.Error("metrics instances must not share state")
	}
}

func TestZapLoggerMiddleware_LogsRouteAndTenant(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	m := observability.NewMetrics()

	r := chi.NewRouter()
	r.Use(observability.ZapLoggerMiddleware(logger, m))
	r.Get("/v1/tenants/{tenantId}/categories", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tenants/t1/categories", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel {
		t.Errorf("expected warn for 4xx, got %s", e.Level)
	}
	fields := e.ContextMap()
	if fields["tenant_id"] != "t1" {
		t.Errorf("expected tenant_id t1, got %v", fields["tenant_id"])
	}
	if fields["route"] != "/v1/tenants/{tenantId}/categories" {
		t.Errorf("unexpected route %v", fields["route"])
	}
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var series int
	for _, f := range families {
		if f.GetName() == "expenseflow_request_duration_seconds" {
			series = len(f.GetMetric())
		}
	}
	if series != 1 {
		t.Errorf("expected one histogram series, got %d", series)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	if l := observability.NewLogger("debug"); !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug logger must enable debug")
	}
	if l := observability.NewLogger("warn"); l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("warn logger must not enable info")
	}
	if l := observability.NewLogger("nonsense"); !l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("unknown level must fall back to info")
	}
}

func TestInitTracer_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := observability.InitTracer(context.Background(), "", "expenseflow-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
}
