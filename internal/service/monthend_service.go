package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/observability"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var monthEndTracer = otel.Tracer("service/monthend")

// MonthEndStore is the slice of the store month-end processing touches.
type MonthEndStore interface {
	port.CategoryStore
	port.TransactionStore
	port.LedgerStore
}

// MonthEndService closes a month: it moves every budgeted category's surplus
// or deficit into the category's virtual account and then locks the month.
//
// Each posting is atomic in the store and a month-end posting can exist only
// once per account and month, so a run that failed halfway can be repeated:
// categories already posted are skipped and the rest are completed.
type MonthEndService struct {
	store   MonthEndStore
	events  emitter
	metrics *observability.Metrics
	logger  *zap.Logger
	now     Clock
}

func NewMonthEndService(store MonthEndStore, publisher port.EventPublisher, metrics *observability.Metrics, logger *zap.Logger) *MonthEndService {
	s := &MonthEndService{store: store, metrics: metrics, logger: logger, now: time.Now}
	s.events = emitter{publisher: publisher, metrics: metrics, logger: logger, now: func() time.Time { return s.now() }}
	return s
}

// WithClock replaces the time source.
func (s *MonthEndService) WithClock(now Clock) *MonthEndService {
	s.now = now
	return s
}

// monthInputs is everything a run reads before deciding what to post.
type monthInputs struct {
	categories   []domain.Category
	transactions []domain.Transaction
	posted       map[string]domain.AccountTransaction // account id -> posting
	accounts     map[string]domain.VirtualAccount     // category id -> account
	locked       bool
}

func (s *MonthEndService) load(ctx context.Context, tenantID string, year, month int) (*monthInputs, error) {
	in := &monthInputs{
		posted:   make(map[string]domain.AccountTransaction),
		accounts: make(map[string]domain.VirtualAccount),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cats, err := s.store.ListCategories(gCtx, tenantID)
		if err != nil {
			return fmt.Errorf("categories: %w", err)
		}
		in.categories = cats
		return nil
	})
	g.Go(func() error {
		txs, err := s.store.ListTransactions(gCtx, tenantID, domain.TransactionFilter{Year: year, Month: month})
		if err != nil {
			return fmt.Errorf("transactions: %w", err)
		}
		in.transactions = txs
		return nil
	})
	var postings []domain.AccountTransaction
	g.Go(func() error {
		p, err := s.store.ListMonthEndPostings(gCtx, tenantID, year, month)
		if err != nil {
			return fmt.Errorf("month-end postings: %w", err)
		}
		postings = p
		return nil
	})
	var accounts []domain.VirtualAccount
	g.Go(func() error {
		a, err := s.store.ListVirtualAccounts(gCtx, tenantID)
		if err != nil {
			return fmt.Errorf("virtual accounts: %w", err)
		}
		accounts = a
		return nil
	})
	g.Go(func() error {
		err := checkMonthOpen(gCtx, s.store, tenantID, year, month)
		if _, ok := err.(*domain.ErrMonthLocked); ok {
			in.locked = true
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		trackExternal(s.metrics, err)
		return nil, err
	}

	for _, p := range postings {
		in.posted[p.AccountID] = p
	}
	for _, a := range accounts {
		in.accounts[a.CategoryID] = a
	}
	return in, nil
}

// PreviewMonthEnd computes what ProcessMonthEnd would post without writing.
func (s *MonthEndService) PreviewMonthEnd(ctx context.Context, tenantID string, year, month int) (*domain.MonthEndReport, error) {
	ctx, span := monthEndTracer.Start(ctx, "MonthEndService.PreviewMonthEnd")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID), attribute.String("month", domain.MonthKey(year, month)))

	if err := domain.ValidateYearMonth(year, month); err != nil {
		return nil, err
	}
	in, err := s.load(ctx, tenantID, year, month)
	if err != nil {
		return nil, err
	}

	results := domain.ComputeMonthEnd(year, month, in.categories, in.transactions)
	for i := range results {
		if acct, ok := in.accounts[results[i].CategoryID]; ok {
			results[i].AccountID = acct.ID
			_, results[i].Skipped = in.posted[acct.ID]
		}
	}
	return &domain.MonthEndReport{
		TenantID:     tenantID,
		Year:         year,
		Month:        month,
		Results:      results,
		TotalSurplus: domain.TotalSurplus(results),
		Locked:       in.locked,
	}, nil
}

// ProcessMonthEnd posts the month's results and locks the month. Processing a
// month that is already locked is a conflict.
func (s *MonthEndService) ProcessMonthEnd(ctx context.Context, tenantID string, year, month int, actor string) (report *domain.MonthEndReport, err error) {
	ctx, span := monthEndTracer.Start(ctx, "MonthEndService.ProcessMonthEnd")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID), attribute.String("month", domain.MonthKey(year, month)))

	if err := domain.ValidateYearMonth(year, month); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("month_end", time.Since(start))
		if err != nil {
			s.metrics.IncrMonthEndRun("failed")
		}
	}()

	in, err := s.load(ctx, tenantID, year, month)
	if err != nil {
		return nil, err
	}
	if in.locked {
		return nil, &domain.ErrConflict{Message: fmt.Sprintf("month %s is already processed", domain.MonthKey(year, month))}
	}

	report = &domain.MonthEndReport{
		TenantID:    tenantID,
		Year:        year,
		Month:       month,
		Results:     domain.ComputeMonthEnd(year, month, in.categories, in.transactions),
		ProcessedBy: actor,
	}
	report.TotalSurplus = domain.TotalSurplus(report.Results)

	for i := range report.Results {
		r := &report.Results[i]

		acct, created, err := s.ensureAccount(ctx, tenantID, r.CategoryID, r.CategoryName, in.accounts)
		if err != nil {
			return nil, fmt.Errorf("virtual account for %s: %w", r.CategoryName, err)
		}
		r.AccountID = acct.ID
		if created {
			report.AccountsCreated++
		}

		if _, done := in.posted[acct.ID]; done {
			r.Skipped = true
			continue
		}

		_, err = s.store.PostAccountTransaction(ctx, &domain.AccountTransaction{
			ID:          newID(),
			TenantID:    tenantID,
			AccountID:   acct.ID,
			Type:        r.Type,
			Amount:      r.Amount,
			Year:        year,
			Month:       month,
			Description: r.Description(year, month),
			CreatedBy:   actor,
			CreatedAt:   s.now().UTC(),
		})
		if isConflict(err) {
			// A concurrent or earlier run already posted this account.
			r.Skipped = true
			continue
		}
		if err != nil {
			trackExternal(s.metrics, err)
			s.logger.Error("month-end posting failed",
				zap.String("tenant_id", tenantID),
				zap.String("month", domain.MonthKey(year, month)),
				zap.String("category", r.CategoryName),
				zap.Error(err),
			)
			return nil, fmt.Errorf("post %s for %s: %w", r.Type, r.CategoryName, err)
		}
		report.TransactionsCreated++
		s.metrics.IncrPosting(string(r.Type))
	}

	err = s.store.CreateMonthLock(ctx, &domain.MonthLock{
		TenantID: tenantID,
		Year:     year,
		Month:    month,
		LockedBy: actor,
		LockedAt: s.now().UTC(),
	})
	if isConflict(err) {
		return nil, &domain.ErrConflict{Message: fmt.Sprintf("month %s was locked by a concurrent run", domain.MonthKey(year, month))}
	}
	if err != nil {
		return nil, fmt.Errorf("lock month: %w", err)
	}
	report.Locked = true

	outcome := "completed"
	if len(in.posted) > 0 {
		outcome = "resumed"
	}
	s.metrics.IncrMonthEndRun(outcome)

	s.logger.Info("month-end processed",
		zap.String("tenant_id", tenantID),
		zap.String("month", domain.MonthKey(year, month)),
		zap.String("actor", actor),
		zap.Int("categories", len(report.Results)),
		zap.Int("accounts_created", report.AccountsCreated),
		zap.Int("transactions_created", report.TransactionsCreated),
		zap.Float64("total_surplus", report.TotalSurplus),
		zap.String("outcome", outcome),
	)

	s.events.emit(ctx, domain.EventMonthClosed, tenantID, map[string]any{
		"year":                 year,
		"month":                month,
		"total_surplus":        report.TotalSurplus,
		"transactions_created": report.TransactionsCreated,
		"processed_by":         actor,
	})
	return report, nil
}

// ensureAccount returns the category's virtual account, creating it when absent.
func (s *MonthEndService) ensureAccount(ctx context.Context, tenantID, categoryID, categoryName string, known map[string]domain.VirtualAccount) (*domain.VirtualAccount, bool, error) {
	if acct, ok := known[categoryID]; ok {
		return &acct, false, nil
	}

	acct := &domain.VirtualAccount{
		ID:           newID(),
		TenantID:     tenantID,
		CategoryID:   categoryID,
		CategoryName: categoryName,
		CreatedAt:    s.now().UTC(),
	}
	err := s.store.CreateVirtualAccount(ctx, acct)
	if isConflict(err) {
		existing, err := s.store.GetVirtualAccountByCategory(ctx, tenantID, categoryID)
		if err != nil {
			return nil, false, err
		}
		known[categoryID] = *existing
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	known[categoryID] = *acct
	return acct, true, nil
}

// IsMonthLocked reports whether month-end already closed the month.
func (s *MonthEndService) IsMonthLocked(ctx context.Context, tenantID string, year, month int) (bool, error) {
	ctx, span := monthEndTracer.Start(ctx, "MonthEndService.IsMonthLocked")
	defer span.End()

	err := checkMonthOpen(ctx, s.store, tenantID, year, month)
	if _, ok := err.(*domain.ErrMonthLocked); ok {
		return true, nil
	}
	return false, err
}

func (s *MonthEndService) ListMonthLocks(ctx context.Context, tenantID string) ([]domain.MonthLock, error) {
	ctx, span := monthEndTracer.Start(ctx, "MonthEndService.ListMonthLocks")
	defer span.End()

	return s.store.ListMonthLocks(ctx, tenantID)
}
