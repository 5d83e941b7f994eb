package supabase

import (
	"context"
	"fmt"
	"strings"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
)

// ============================================================
// Categories (subcategories and budgets are jsonb columns)
// ============================================================

func (c *Client) ListCategories(ctx context.Context, tenantID string) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCategories")
	defer span.End()

	return selectRows[domain.Category](ctx, c, "categories", "categories?tenant_id="+eq(tenantID)+"&order=name.asc")
}

func (c *Client) GetCategory(ctx context.Context, tenantID, categoryID string) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCategory")
	defer span.End()

	path := fmt.Sprintf("categories?tenant_id=%s&id=%s", eq(tenantID), eq(categoryID))
	return selectOne[domain.Category](ctx, c, "categories", path, "category", categoryID)
}

func (c *Client) CreateCategory(ctx context.Context, cat *domain.Category) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCategory")
	defer span.End()

	return c.insert(ctx, "categories", "categories", cat, "category name already in use: "+cat.Name)
}

func (c *Client) UpdateCategory(ctx context.Context, cat *domain.Category) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateCategory")
	defer span.End()

	path := fmt.Sprintf("categories?tenant_id=%s&id=%s", eq(cat.TenantID), eq(cat.ID))
	return c.update(ctx, "categories", path, map[string]any{
		"name":          cat.Name,
		"icon":          cat.Icon,
		"subcategories": cat.Subcategories,
		"budgets":       cat.Budgets,
		"updated_at":    cat.UpdatedAt,
	}, "category", cat.ID)
}

func (c *Client) DeleteCategory(ctx context.Context, tenantID, categoryID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteCategory")
	defer span.End()

	n, err := c.remove(ctx, "categories", fmt.Sprintf("categories?tenant_id=%s&id=%s", eq(tenantID), eq(categoryID)))
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "category", ID: categoryID}
	}
	return nil
}

// ============================================================
// Transactions
// ============================================================

func (c *Client) ListTransactions(ctx context.Context, tenantID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactions")
	defer span.End()

	path := "transactions?tenant_id=" + eq(tenantID)
	switch {
	case filter.Year != 0 && filter.Month != 0:
		path += "&date=like." + domain.MonthKey(filter.Year, filter.Month) + "-*"
	case filter.Year != 0:
		path += fmt.Sprintf("&date=like.%04d-*", filter.Year)
	case filter.Month != 0:
		path += fmt.Sprintf("&date=like.*-%02d-*", filter.Month)
	}
	if filter.Category != "" {
		path += "&category=" + eq(filter.Category)
	}
	if filter.PaidBy != "" {
		path += "&paid_by=" + eq(filter.PaidBy)
	}
	path += "&order=date.desc,time.desc,id.asc"

	return selectRows[domain.Transaction](ctx, c, "transactions", path)
}

func (c *Client) GetTransaction(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTransaction")
	defer span.End()

	path := fmt.Sprintf("transactions?tenant_id=%s&id=%s", eq(tenantID), eq(transactionID))
	return selectOne[domain.Transaction](ctx, c, "transactions", path, "transaction", transactionID)
}

// CreateTransactions posts the rows as one PostgREST bulk insert, which runs
// in a single statement.
func (c *Client) CreateTransactions(ctx context.Context, txs []domain.Transaction) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateTransactions")
	defer span.End()

	if len(txs) == 0 {
		return nil
	}
	return c.insert(ctx, "transactions", "transactions", txs, "transaction already exists")
}

func (c *Client) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateTransaction")
	defer span.End()

	path := fmt.Sprintf("transactions?tenant_id=%s&id=%s", eq(t.TenantID), eq(t.ID))
	return c.update(ctx, "transactions", path, map[string]any{
		"date":          t.Date,
		"time":          t.Time,
		"description":   t.Description,
		"amount":        t.Amount,
		"category":      t.Category,
		"subcategory":   t.Subcategory,
		"microcategory": t.Microcategory,
		"paid_by":       t.PaidBy,
		"notes":         t.Notes,
		"updated_at":    t.UpdatedAt,
	}, "transaction", t.ID)
}

func (c *Client) DeleteTransactions(ctx context.Context, tenantID string, ids []string) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteTransactions")
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = `"` + strings.ReplaceAll(id, `"`, "") + `"`
	}
	path := fmt.Sprintf("transactions?tenant_id=%s&id=in.(%s)", eq(tenantID), strings.Join(quoted, ","))
	return c.remove(ctx, "transactions", path)
}
