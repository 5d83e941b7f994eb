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

func TestWithdrawForOverspend(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedMonth(t, store)
	if _, err := newMonthEnd(store, &mockPublisher{}, observability.NewMetrics()).ProcessMonthEnd(ctx, tenant, 2024, 3, "alice"); err != nil {
		t.Fatalf("month-end: %v", err)
	}
	acct, err := store.GetVirtualAccountByCategory(ctx, tenant, "cat-groceries")
	if err != nil {
		t.Fatalf("groceries account: %v", err)
	}

	metrics := observability.NewMetrics()
	svc := service.NewAccountService(store, metrics, zap.NewNop()).WithClock(fixedClock("2024-04-20"))

	res, err := svc.WithdrawForOverspend(ctx, tenant, acct.ID, domain.WithdrawRequest{Amount: 300, Year: 2024, Month: 4, Actor: "alice", Note: "party"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Account.Balance != 1500 {
		t.Errorf("expected balance 1500, got %v", res.Account.Balance)
	}
	if res.Transaction.Type != domain.OverspendWithdrawal || res.Transaction.Amount != -300 {
		t.Errorf("unexpected ledger row: %+v", res.Transaction)
	}
	if metrics.CounterValue("postings", string(domain.OverspendWithdrawal)) != 1 {
		t.Error("expected withdrawal posting to be counted")
	}

	var ib *domain.ErrInsufficientBalance
	if _, err := svc.WithdrawForOverspend(ctx, tenant, acct.ID, domain.WithdrawRequest{Amount: 1500.01, Year: 2024, Month: 4}); !errors.As(err, &ib) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	var ve *domain.ErrValidation
	if _, err := svc.WithdrawForOverspend(ctx, tenant, acct.ID, domain.WithdrawRequest{Amount: -5, Year: 2024, Month: 4}); !errors.As(err, &ve) {
		t.Errorf("expected ErrValidation, got %v", err)
	}

	ledger, err := svc.ListAccountTransactions(ctx, tenant, acct.ID)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(ledger) != 2 {
		t.Errorf("expected 2 ledger rows, got %d", len(ledger))
	}
}

func TestWithdrawForOverspend_DeficitAccount(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedMonth(t, store)
	if _, err := newMonthEnd(store, &mockPublisher{}, observability.NewMetrics()).ProcessMonthEnd(ctx, tenant, 2024, 3, "alice"); err != nil {
		t.Fatalf("month-end: %v", err)
	}
	acct, _ := store.GetVirtualAccountByCategory(ctx, tenant, "cat-dining")

	svc := service.NewAccountService(store, observability.NewMetrics(), zap.NewNop())
	_, err := svc.WithdrawForOverspend(ctx, tenant, acct.ID, domain.WithdrawRequest{Amount: 1, Year: 2024, Month: 4})
	var ib *domain.ErrInsufficientBalance
	if !errors.As(err, &ib) {
		t.Errorf("expected ErrInsufficientBalance on negative balance, got %v", err)
	}

	var nf *domain.ErrNotFound
	if _, err := svc.ListAccountTransactions(ctx, tenant, "missing"); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
