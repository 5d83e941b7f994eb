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
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var categoryTracer = otel.Tracer("service/category")

const categoryCache = "categories"

// CategoryService manages the category tree and the per-month budget map.
// Category lists are cached per tenant; every write invalidates the entry.
type CategoryService struct {
	store   port.CategoryStore
	cache   port.Cache[[]domain.Category]
	metrics *observability.Metrics
	logger  *zap.Logger
	now     Clock
}

func NewCategoryService(store port.CategoryStore, cache port.Cache[[]domain.Category], metrics *observability.Metrics, logger *zap.Logger) *CategoryService {
	return &CategoryService{store: store, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

func (s *CategoryService) WithClock(now Clock) *CategoryService {
	s.now = now
	return s
}

func (s *CategoryService) ListCategories(ctx context.Context, tenantID string) ([]domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.ListCategories")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	if cached, ok := s.cache.Get(tenantID); ok {
		s.metrics.IncrCacheHit(categoryCache)
		return cached, nil
	}
	s.metrics.IncrCacheMiss(categoryCache)

	cats, err := s.store.ListCategories(ctx, tenantID)
	if err != nil {
		trackExternal(s.metrics, err)
		return nil, fmt.Errorf("list categories: %w", err)
	}
	s.cache.Set(tenantID, cats)
	return cats, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, tenantID, categoryID string) (*domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.GetCategory")
	defer span.End()

	return s.store.GetCategory(ctx, tenantID, categoryID)
}

func (s *CategoryService) CreateCategory(ctx context.Context, tenantID string, in *domain.Category) (*domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.CreateCategory")
	defer span.End()

	now := s.now().UTC()
	cat := &domain.Category{
		ID:            newID(),
		TenantID:      tenantID,
		Name:          strings.TrimSpace(in.Name),
		Icon:          in.Icon,
		Subcategories: normalizeSubcategories(in.Subcategories),
		Budgets:       map[string]float64{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for month, amount := range in.Budgets {
		cat.SetBudget(month, amount)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateCategory(ctx, cat); err != nil {
		return nil, err
	}
	s.cache.Delete(tenantID)

	s.logger.Info("category created",
		zap.String("tenant_id", tenantID),
		zap.String("category_id", cat.ID),
		zap.String("name", cat.Name),
	)
	return cat, nil
}

// UpdateCategory replaces name, icon and the whole subcategory tree. Budgets
// are replaced only when the input carries a budget map.
func (s *CategoryService) UpdateCategory(ctx context.Context, tenantID, categoryID string, in *domain.Category) (*domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.UpdateCategory")
	defer span.End()

	cat, err := s.store.GetCategory(ctx, tenantID, categoryID)
	if err != nil {
		return nil, err
	}

	oldName := cat.Name
	cat.Name = strings.TrimSpace(in.Name)
	cat.Icon = in.Icon
	cat.Subcategories = normalizeSubcategories(in.Subcategories)
	if in.Budgets != nil {
		cat.Budgets = map[string]float64{}
		for month, amount := range in.Budgets {
			cat.SetBudget(month, amount)
		}
	}
	cat.UpdatedAt = s.now().UTC()

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCategory(ctx, cat); err != nil {
		return nil, err
	}
	s.cache.Delete(tenantID)

	if oldName != cat.Name {
		// Transactions reference categories by name; old rows keep the old
		// name and show up in the orphaned-transactions report.
		s.logger.Warn("category renamed",
			zap.String("tenant_id", tenantID),
			zap.String("category_id", categoryID),
			zap.String("from", oldName),
			zap.String("to", cat.Name),
		)
	}
	return cat, nil
}

func (s *CategoryService) DeleteCategory(ctx context.Context, tenantID, categoryID string) error {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.DeleteCategory")
	defer span.End()

	if err := s.store.DeleteCategory(ctx, tenantID, categoryID); err != nil {
		return err
	}
	s.cache.Delete(tenantID)
	s.logger.Info("category deleted", zap.String("tenant_id", tenantID), zap.String("category_id", categoryID))
	return nil
}

// SetBudget stores the budget of one category for one month.
func (s *CategoryService) SetBudget(ctx context.Context, tenantID, categoryID, monthKey string, amount float64) (*domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.SetBudget")
	defer span.End()

	if _, err := domain.ParseMonthKey(monthKey); err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must not be negative"}
	}

	cat, err := s.store.GetCategory(ctx, tenantID, categoryID)
	if err != nil {
		return nil, err
	}
	cat.SetBudget(monthKey, amount)
	cat.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateCategory(ctx, cat); err != nil {
		return nil, err
	}
	s.cache.Delete(tenantID)
	return cat, nil
}

// CarryForwardBudgets writes an explicit budget for monthKey into every
// category that lacks one, copying the most recent earlier value. Each copy
// is logged so the implicit inheritance leaves a trail.
func (s *CategoryService) CarryForwardBudgets(ctx context.Context, tenantID, monthKey, actor string) ([]domain.BudgetCarry, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.CarryForwardBudgets")
	defer span.End()

	if _, err := domain.ParseMonthKey(monthKey); err != nil {
		return nil, err
	}

	cats, err := s.store.ListCategories(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	carried := make([]domain.BudgetCarry, 0)
	for i := range cats {
		cat := &cats[i]
		if _, ok := cat.Budgets[monthKey]; ok {
			continue
		}
		amount, from := cat.BudgetForMonth(monthKey)
		if from == "" {
			continue
		}
		cat.SetBudget(monthKey, amount)
		cat.UpdatedAt = s.now().UTC()
		if err := s.store.UpdateCategory(ctx, cat); err != nil {
			s.cache.Delete(tenantID)
			return carried, fmt.Errorf("carry budget for %s: %w", cat.Name, err)
		}

		c := domain.BudgetCarry{
			CategoryID:   cat.ID,
			CategoryName: cat.Name,
			FromMonth:    from,
			ToMonth:      monthKey,
			Amount:       amount,
		}
		carried = append(carried, c)
		s.logger.Info("budget carried forward",
			zap.String("tenant_id", tenantID),
			zap.String("category_id", c.CategoryID),
			zap.String("category", c.CategoryName),
			zap.String("from_month", c.FromMonth),
			zap.String("to_month", c.ToMonth),
			zap.Float64("amount", c.Amount),
			zap.String("actor", actor),
		)
	}
	s.cache.Delete(tenantID)
	return carried, nil
}

func normalizeSubcategories(in []domain.Subcategory) []domain.Subcategory {
	out := make([]domain.Subcategory, 0, len(in))
	for _, sc := range in {
		micro := make([]string, 0, len(sc.Microcategories))
		for _, m := range sc.Microcategories {
			if m = strings.TrimSpace(m); m != "" {
				micro = append(micro, m)
			}
		}
		out = append(out, domain.Subcategory{Name: strings.TrimSpace(sc.Name), Microcategories: micro})
	}
	return out
}
