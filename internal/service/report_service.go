package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	"github.com/agnivade/levenshtein"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var reportTracer = otel.Tracer("service/report")

// UnspecifiedPayer groups transactions without a paid_by tag.
const UnspecifiedPayer = "unspecified"

// ReportStore is what the dashboards read.
type ReportStore interface {
	port.CategoryStore
	port.TransactionStore
	port.LedgerStore
}

// ReportService builds the read-only dashboards.
type ReportService struct {
	store  ReportStore
	logger *zap.Logger
}

func NewReportService(store ReportStore, logger *zap.Logger) *ReportService {
	return &ReportService{store: store, logger: logger}
}

// MonthlySummary aggregates a month's spending per category and per payer.
// Categories with neither a budget nor spending are left out; spending under
// a name that matches no category is reported under that name with no budget.
func (s *ReportService) MonthlySummary(ctx context.Context, tenantID string, year, month int) (*domain.MonthlySummary, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.MonthlySummary")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID), attribute.String("month", domain.MonthKey(year, month)))

	if err := domain.ValidateYearMonth(year, month); err != nil {
		return nil, err
	}

	var (
		cats   []domain.Category
		txs    []domain.Transaction
		locked bool
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.store.ListCategories(gCtx, tenantID)
		cats = c
		return err
	})
	g.Go(func() error {
		t, err := s.store.ListTransactions(gCtx, tenantID, domain.TransactionFilter{Year: year, Month: month})
		txs = t
		return err
	})
	g.Go(func() error {
		err := checkMonthOpen(gCtx, s.store, tenantID, year, month)
		if _, ok := err.(*domain.ErrMonthLocked); ok {
			locked = true
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("monthly summary: %w", err)
	}

	key := domain.MonthKey(year, month)
	spent := make(map[string][]float64)
	counts := make(map[string]int)
	payers := make(map[string][]float64)
	for i := range txs {
		t := &txs[i]
		spent[t.Category] = append(spent[t.Category], t.Amount)
		counts[t.Category]++
		payer := t.PaidBy
		if payer == "" {
			payer = UnspecifiedPayer
		}
		payers[payer] = append(payers[payer], t.Amount)
	}

	sum := &domain.MonthlySummary{
		TenantID:   tenantID,
		Year:       year,
		Month:      month,
		Categories: make([]domain.CategorySpend, 0, len(cats)),
		ByPayer:    make(map[string]float64, len(payers)),
		Locked:     locked,
	}
	var budgets, totals []float64
	known := make(map[string]bool, len(cats))
	for i := range cats {
		c := &cats[i]
		known[c.Name] = true
		budget, _ := c.BudgetForMonth(key)
		if budget == 0 && counts[c.Name] == 0 {
			continue
		}
		sum.Categories = append(sum.Categories, categorySpend(c.Name, budget, spent[c.Name], counts[c.Name]))
		budgets = append(budgets, budget)
	}
	for name, amounts := range spent {
		if !known[name] {
			sum.Categories = append(sum.Categories, categorySpend(name, 0, amounts, counts[name]))
		}
		totals = append(totals, amounts...)
	}
	sort.Slice(sum.Categories, func(i, j int) bool { return sum.Categories[i].Category < sum.Categories[j].Category })

	for payer, amounts := range payers {
		sum.ByPayer[payer] = domain.SumRound2(amounts...)
	}
	sum.TotalBudget = domain.SumRound2(budgets...)
	sum.TotalSpent = domain.SumRound2(totals...)
	return sum, nil
}

func categorySpend(name string, budget float64, amounts []float64, count int) domain.CategorySpend {
	spent := domain.SumRound2(amounts...)
	cs := domain.CategorySpend{
		Category:  name,
		Budget:    budget,
		Spent:     spent,
		Remaining: domain.SubRound2(budget, spent),
		Count:     count,
	}
	if budget > 0 {
		cs.PercentUsed = domain.Round2(spent / budget * 100)
	}
	return cs
}

// YearlyTrend returns budget and spending totals for each month of the year.
func (s *ReportService) YearlyTrend(ctx context.Context, tenantID string, year int) (*domain.YearlyTrend, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.YearlyTrend")
	defer span.End()

	if err := domain.ValidateYearMonth(year, 1); err != nil {
		return nil, err
	}

	var (
		cats []domain.Category
		txs  []domain.Transaction
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.store.ListCategories(gCtx, tenantID)
		cats = c
		return err
	})
	g.Go(func() error {
		t, err := s.store.ListTransactions(gCtx, tenantID, domain.TransactionFilter{Year: year})
		txs = t
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("yearly trend: %w", err)
	}

	var byMonth [12][]float64
	for i := range txs {
		_, m := txs[i].YearMonth()
		if m >= 1 && m <= 12 {
			byMonth[m-1] = append(byMonth[m-1], txs[i].Amount)
		}
	}

	trend := &domain.YearlyTrend{TenantID: tenantID, Year: year, Months: make([]domain.MonthTotal, 12)}
	monthTotals := make([]float64, 12)
	for m := 1; m <= 12; m++ {
		key := domain.MonthKey(year, m)
		budgets := make([]float64, 0, len(cats))
		for i := range cats {
			b, _ := cats[i].BudgetForMonth(key)
			budgets = append(budgets, b)
		}
		spent := domain.SumRound2(byMonth[m-1]...)
		trend.Months[m-1] = domain.MonthTotal{Month: key, Budget: domain.SumRound2(budgets...), Spent: spent}
		monthTotals[m-1] = spent
	}
	trend.Total = domain.SumRound2(monthTotals...)
	return trend, nil
}

// OrphanedTransactions lists transactions whose category name matches no
// existing category, typically left behind by a rename. Each carries the
// closest category name by edit distance; ties go to the alphabetically
// first name.
func (s *ReportService) OrphanedTransactions(ctx context.Context, tenantID string) ([]domain.OrphanedTransaction, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.OrphanedTransactions")
	defer span.End()

	var (
		cats []domain.Category
		txs  []domain.Transaction
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.store.ListCategories(gCtx, tenantID)
		cats = c
		return err
	})
	g.Go(func() error {
		t, err := s.store.ListTransactions(gCtx, tenantID, domain.TransactionFilter{})
		txs = t
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("orphaned transactions: %w", err)
	}

	names := make([]string, 0, len(cats))
	known := make(map[string]bool, len(cats))
	for i := range cats {
		names = append(names, cats[i].Name)
		known[cats[i].Name] = true
	}
	sort.Strings(names)

	out := make([]domain.OrphanedTransaction, 0)
	suggestions := make(map[string]domain.OrphanedTransaction)
	for i := range txs {
		t := txs[i]
		if known[t.Category] {
			continue
		}
		hint, ok := suggestions[t.Category]
		if !ok {
			hint.SuggestedCategory, hint.Distance = closestName(t.Category, names)
			suggestions[t.Category] = hint
		}
		out = append(out, domain.OrphanedTransaction{
			Transaction:       t,
			SuggestedCategory: hint.SuggestedCategory,
			Distance:          hint.Distance,
		})
	}

	if len(out) > 0 {
		s.logger.Debug("orphaned transactions found",
			zap.String("tenant_id", tenantID),
			zap.Int("count", len(out)),
			zap.Int("names", len(suggestions)),
		)
	}
	return out, nil
}

// closestName compares case-insensitively. names must be sorted.
func closestName(name string, names []string) (string, int) {
	best, bestDist := "", -1
	lower := strings.ToLower(name)
	for _, n := range names {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(n))
		if bestDist < 0 || d < bestDist {
			best, bestDist = n, d
		}
	}
	if bestDist < 0 {
		return "", 0
	}
	return best, bestDist
}
