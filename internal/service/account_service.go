package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/observability"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var accountTracer = otel.Tracer("service/account")

// AccountService exposes the virtual savings accounts month-end fills.
type AccountService struct {
	store   port.LedgerStore
	metrics *observability.Metrics
	logger  *zap.Logger
	now     Clock
}

func NewAccountService(store port.LedgerStore, metrics *observability.Metrics, logger *zap.Logger) *AccountService {
	return &AccountService{store: store, metrics: metrics, logger: logger, now: time.Now}
}

func (s *AccountService) WithClock(now Clock) *AccountService {
	s.now = now
	return s
}

func (s *AccountService) ListVirtualAccounts(ctx context.Context, tenantID string) ([]domain.VirtualAccount, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.ListVirtualAccounts")
	defer span.End()

	return s.store.ListVirtualAccounts(ctx, tenantID)
}

func (s *AccountService) GetVirtualAccount(ctx context.Context, tenantID, accountID string) (*domain.VirtualAccount, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.GetVirtualAccount")
	defer span.End()

	return s.store.GetVirtualAccount(ctx, tenantID, accountID)
}

// ListAccountTransactions returns the ledger of one account, newest first.
func (s *AccountService) ListAccountTransactions(ctx context.Context, tenantID, accountID string) ([]domain.AccountTransaction, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.ListAccountTransactions")
	defer span.End()

	if _, err := s.store.GetVirtualAccount(ctx, tenantID, accountID); err != nil {
		return nil, err
	}
	return s.store.ListAccountTransactions(ctx, tenantID, accountID)
}

// WithdrawForOverspend takes money out of a virtual account to cover an
// overspent month. The balance never goes below zero.
func (s *AccountService) WithdrawForOverspend(ctx context.Context, tenantID, accountID string, req domain.WithdrawRequest) (*domain.WithdrawResult, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.WithdrawForOverspend")
	defer span.End()

	amount := domain.Round2(req.Amount)
	if amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if err := domain.ValidateYearMonth(req.Year, req.Month); err != nil {
		return nil, err
	}

	acct, err := s.store.GetVirtualAccount(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if amount > acct.Balance {
		return nil, &domain.ErrInsufficientBalance{Available: acct.Balance, Required: amount}
	}

	desc := fmt.Sprintf("Withdrawal to cover overspend in %s %s", acct.CategoryName, domain.MonthKey(req.Year, req.Month))
	if note := strings.TrimSpace(req.Note); note != "" {
		desc += ": " + note
	}
	tx := domain.AccountTransaction{
		ID:          newID(),
		TenantID:    tenantID,
		AccountID:   accountID,
		Type:        domain.OverspendWithdrawal,
		Amount:      -amount,
		Year:        req.Year,
		Month:       req.Month,
		Description: desc,
		CreatedBy:   req.Actor,
		CreatedAt:   s.now().UTC(),
	}

	updated, err := s.store.PostAccountTransaction(ctx, &tx)
	if err != nil {
		trackExternal(s.metrics, err)
		return nil, err
	}
	s.metrics.IncrPosting(string(tx.Type))

	s.logger.Info("virtual account withdrawal",
		zap.String("tenant_id", tenantID),
		zap.String("account_id", accountID),
		zap.Float64("amount", amount),
		zap.Float64("balance", updated.Balance),
		zap.String("actor", req.Actor),
	)
	return &domain.WithdrawResult{Account: *updated, Transaction: tx}, nil
}
