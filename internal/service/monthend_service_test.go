package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/memory"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/observability"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"go.uber.org/zap"
)

func seedMonth(t *testing.T, store *memory.Store) (groceries, dining domain.Category) {
	t.Helper()
	ctx := context.Background()

	groceries = domain.Category{ID: "cat-groceries", TenantID: tenant, Name: "Groceries", Budgets: map[string]float64{"2024-03": 5000}}
	dining = domain.Category{ID: "cat-dining", TenantID: tenant, Name: "Dining", Budgets: map[string]float64{"2024-01": 1000}}
	unbudgeted := domain.Category{ID: "cat-misc", TenantID: tenant, Name: "Misc"}
	for _, c := range []domain.Category{groceries, dining, unbudgeted} {
		c := c
		if err := store.CreateCategory(ctx, &c); err != nil {
			t.Fatalf("seed category: %v", err)
		}
	}

	txs := []domain.Transaction{
		{ID: "tx-1", TenantID: tenant, Date: "2024-03-02", Amount: 2000, Category: "Groceries"},
		{ID: "tx-2", TenantID: tenant, Date: "2024-03-20", Amount: 1200, Category: "Groceries"},
		{ID: "tx-3", TenantID: tenant, Date: "2024-03-05", Amount: 1000, Category: "Dining"},
		{ID: "tx-4", TenantID: tenant, Date: "2024-03-28", Amount: 450, Category: "Dining"},
		{ID: "tx-5", TenantID: tenant, Date: "2024-04-01", Amount: 999, Category: "Groceries"},
		{ID: "tx-6", TenantID: tenant, Date: "2024-03-10", Amount: 75, Category: "Misc"},
	}
	if err := store.CreateTransactions(ctx, txs); err != nil {
		t.Fatalf("seed transactions: %v", err)
	}
	return groceries, dining
}

func newMonthEnd(store *memory.Store, pub *mockPublisher, metrics *observability.Metrics) *service.MonthEndService {
	return service.NewMonthEndService(store, pub, metrics, zap.NewNop()).WithClock(fixedClock("2024-04-02"))
}

func TestProcessMonthEnd_PostsSurplusAndDeficit(t *testing.T) {
	store := memory.New()
	seedMonth(t, store)
	pub := &mockPublisher{}
	metrics := observability.NewMetrics()
	svc := newMonthEnd(store, pub, metrics)

	report, err := svc.ProcessMonthEnd(context.Background(), tenant, 2024, 3, "alice")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(report.Results) != 2 {
		t.Fatalf("expected 2 budgeted categories, got %d", len(report.Results))
	}
	dining, groceries := report.Results[0], report.Results[1]

	if dining.CategoryName != "Dining" || dining.Type != domain.OverspendDeficit || dining.Amount != -450 {
		t.Errorf("unexpected dining result: %+v", dining)
	}
	if groceries.CategoryName != "Groceries" || groceries.Type != domain.SurplusTransfer || groceries.Amount != 1800 {
		t.Errorf("unexpected groceries result: %+v", groceries)
	}
	if report.TotalSurplus != 1350 {
		t.Errorf("expected total surplus 1350, got %v", report.TotalSurplus)
	}
	if report.AccountsCreated != 2 || report.TransactionsCreated != 2 {
		t.Errorf("expected 2 accounts and 2 postings, got %d/%d", report.AccountsCreated, report.TransactionsCreated)
	}
	if !report.Locked {
		t.Error("expected month to be locked")
	}

	acct, err := store.GetVirtualAccountByCategory(context.Background(), tenant, "cat-dining")
	if err != nil {
		t.Fatalf("expected dining account, got %v", err)
	}
	if acct.Balance != -450 {
		t.Errorf("expected dining balance -450, got %v", acct.Balance)
	}

	if got := len(pub.ofType(domain.EventMonthClosed)); got != 1 {
		t.Errorf("expected 1 month.closed event, got %d", got)
	}
	if got := metrics.CounterValue("month_end_runs", "completed"); got != 1 {
		t.Errorf("expected 1 completed run, got %v", got)
	}
	if got := metrics.CounterValue("postings", string(domain.SurplusTransfer)); got != 1 {
		t.Errorf("expected 1 surplus posting, got %v", got)
	}
}

func TestProcessMonthEnd_SecondRunConflicts(t *testing.T) {
	store := memory.New()
	seedMonth(t, store)
	metrics := observability.NewMetrics()
	svc := newMonthEnd(store, &mockPublisher{}, metrics)

	if _, err := svc.ProcessMonthEnd(context.Background(), tenant, 2024, 3, "alice"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	_, err := svc.ProcessMonthEnd(context.Background(), tenant, 2024, 3, "alice")

	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	txs, _ := store.ListMonthEndPostings(context.Background(), tenant, 2024, 3)
	if len(txs) != 2 {
		t.Errorf("expected postings to stay at 2, got %d", len(txs))
	}
	if got := metrics.CounterValue("month_end_runs", "failed"); got != 1 {
		t.Errorf("expected 1 failed run, got %v", got)
	}
}

func TestProcessMonthEnd_ResumesPartialRun(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	groceries, _ := seedMonth(t, store)
	metrics := observability.NewMetrics()

	// A run that posted Groceries and then died before Dining and the lock.
	acct := &domain.VirtualAccount{ID: "acct-groceries", TenantID: tenant, CategoryID: groceries.ID, CategoryName: groceries.Name}
	if err := store.CreateVirtualAccount(ctx, acct); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if _, err := store.PostAccountTransaction(ctx, &domain.AccountTransaction{
		ID: "posted", TenantID: tenant, AccountID: acct.ID, Type: domain.SurplusTransfer, Amount: 1800, Year: 2024, Month: 3,
	}); err != nil {
		t.Fatalf("seed posting: %v", err)
	}

	svc := newMonthEnd(store, &mockPublisher{}, metrics)
	report, err := svc.ProcessMonthEnd(ctx, tenant, 2024, 3, "bob")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if report.TransactionsCreated != 1 || report.AccountsCreated != 1 {
		t.Errorf("expected 1 new posting and 1 new account, got %d/%d", report.TransactionsCreated, report.AccountsCreated)
	}
	if !report.Results[1].Skipped {
		t.Error("expected groceries to be skipped")
	}

	got, _ := store.GetVirtualAccount(ctx, tenant, acct.ID)
	if got.Balance != 1800 {
		t.Errorf("expected groceries balance to stay 1800, got %v", got.Balance)
	}
	if metrics.CounterValue("month_end_runs", "resumed") != 1 {
		t.Error("expected run to be counted as resumed")
	}
}

func TestPreviewMonthEnd_DoesNotWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedMonth(t, store)
	svc := newMonthEnd(store, &mockPublisher{}, observability.NewMetrics())

	report, err := svc.PreviewMonthEnd(ctx, tenant, 2024, 3)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(report.Results) != 2 || report.Locked {
		t.Errorf("unexpected preview: %+v", report)
	}

	accounts, _ := store.ListVirtualAccounts(ctx, tenant)
	if len(accounts) != 0 {
		t.Errorf("expected no accounts after preview, got %d", len(accounts))
	}
	locked, err := svc.IsMonthLocked(ctx, tenant, 2024, 3)
	if err != nil || locked {
		t.Errorf("expected open month, got locked=%v err=%v", locked, err)
	}
}

func TestProcessMonthEnd_PublishFailureDoesNotFail(t *testing.T) {
	store := memory.New()
	seedMonth(t, store)
	metrics := observability.NewMetrics()
	svc := newMonthEnd(store, &mockPublisher{err: errBroker}, metrics)

	if _, err := svc.ProcessMonthEnd(context.Background(), tenant, 2024, 3, "alice"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := metrics.CounterValue("events_published", string(domain.EventMonthClosed), "error"); got != 1 {
		t.Errorf("expected 1 failed publish, got %v", got)
	}
}

func TestProcessMonthEnd_InvalidMonth(t *testing.T) {
	svc := newMonthEnd(memory.New(), &mockPublisher{}, observability.NewMetrics())

	_, err := svc.ProcessMonthEnd(context.Background(), tenant, 2024, 13, "alice")
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLockedMonthRejectsTransactionWrites(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedMonth(t, store)
	if _, err := newMonthEnd(store, &mockPublisher{}, observability.NewMetrics()).ProcessMonthEnd(ctx, tenant, 2024, 3, "alice"); err != nil {
		t.Fatalf("month-end: %v", err)
	}

	txs := service.NewTransactionService(store, store, zap.NewNop())
	var locked *domain.ErrMonthLocked

	_, err := txs.CreateTransaction(ctx, tenant, &domain.Transaction{Date: "2024-03-15", Amount: 10, Category: "Groceries"})
	if !errors.As(err, &locked) {
		t.Errorf("create: expected ErrMonthLocked, got %v", err)
	}

	_, err = txs.UpdateTransaction(ctx, tenant, "tx-5", &domain.Transaction{Date: "2024-03-31", Amount: 999, Category: "Groceries"})
	if !errors.As(err, &locked) {
		t.Errorf("move into locked month: expected ErrMonthLocked, got %v", err)
	}

	if err := txs.DeleteTransaction(ctx, tenant, "tx-1"); !errors.As(err, &locked) {
		t.Errorf("delete: expected ErrMonthLocked, got %v", err)
	}

	if _, err := txs.CreateTransaction(ctx, tenant, &domain.Transaction{Date: "2024-04-15", Amount: 10, Category: "Groceries"}); err != nil {
		t.Errorf("open month: expected no error, got %v", err)
	}
}
