package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Virtual accounts
// ============================================================

func (c *Client) ListVirtualAccounts(ctx context.Context, tenantID string) ([]domain.VirtualAccount, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListVirtualAccounts")
	defer span.End()

	return selectRows[domain.VirtualAccount](ctx, c, "virtual_accounts", "virtual_accounts?tenant_id="+eq(tenantID)+"&order=category_name.asc")
}

func (c *Client) GetVirtualAccount(ctx context.Context, tenantID, accountID string) (*domain.VirtualAccount, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetVirtualAccount")
	defer span.End()

	path := fmt.Sprintf("virtual_accounts?tenant_id=%s&id=%s", eq(tenantID), eq(accountID))
	return selectOne[domain.VirtualAccount](ctx, c, "virtual_accounts", path, "virtual account", accountID)
}

func (c *Client) GetVirtualAccountByCategory(ctx context.Context, tenantID, categoryID string) (*domain.VirtualAccount, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetVirtualAccountByCategory")
	defer span.End()

	path := fmt.Sprintf("virtual_accounts?tenant_id=%s&category_id=%s", eq(tenantID), eq(categoryID))
	return selectOne[domain.VirtualAccount](ctx, c, "virtual_accounts", path, "virtual account", categoryID)
}

func (c *Client) CreateVirtualAccount(ctx context.Context, a *domain.VirtualAccount) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateVirtualAccount")
	defer span.End()

	return c.insert(ctx, "virtual_accounts", "virtual_accounts", a, "category already has a virtual account: "+a.CategoryID)
}

func (c *Client) ListAccountTransactions(ctx context.Context, tenantID, accountID string) ([]domain.AccountTransaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAccountTransactions")
	defer span.End()

	path := fmt.Sprintf("account_transactions?tenant_id=%s&account_id=%s&order=created_at.desc", eq(tenantID), eq(accountID))
	return selectRows[domain.AccountTransaction](ctx, c, "account_transactions", path)
}

func (c *Client) ListMonthEndPostings(ctx context.Context, tenantID string, year, month int) ([]domain.AccountTransaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListMonthEndPostings")
	defer span.End()

	path := fmt.Sprintf("account_transactions?tenant_id=%s&year=eq.%d&month=eq.%d&month_end=is.true&order=created_at.asc",
		eq(tenantID), year, month)
	return selectRows[domain.AccountTransaction](ctx, c, "account_transactions", path)
}

// postResult is the JSON document returned by the post_account_transaction function.
type postResult struct {
	Status    string                 `json:"status"`
	Available float64                `json:"available"`
	Account   *domain.VirtualAccount `json:"account"`
}

// PostAccountTransaction calls the post_account_transaction SQL function, which
// inserts the ledger row and moves the balance inside one Postgres transaction.
func (c *Client) PostAccountTransaction(ctx context.Context, tx *domain.AccountTransaction) (*domain.VirtualAccount, error) {
	ctx, span := tracer.Start(ctx, "Supabase.PostAccountTransaction")
	defer span.End()

	var account *domain.VirtualAccount
	err := c.run(ctx, "post_account_transaction", func() error {
		body, err := c.doRPC(ctx, "post_account_transaction", map[string]any{
			"p_id":          tx.ID,
			"p_tenant_id":   tx.TenantID,
			"p_account_id":  tx.AccountID,
			"p_type":        tx.Type,
			"p_amount":      tx.Amount,
			"p_year":        tx.Year,
			"p_month":       tx.Month,
			"p_description": tx.Description,
			"p_created_by":  tx.CreatedBy,
			"p_created_at":  tx.CreatedAt,
			"p_month_end":   tx.Type.IsMonthEnd(),
		})
		if err != nil {
			return err
		}

		var res postResult
		if err := json.Unmarshal(body, &res); err != nil {
			return fmt.Errorf("decode post_account_transaction: %w", err)
		}
		switch res.Status {
		case "ok":
			account = res.Account
			return nil
		case "not_found":
			return &domain.ErrNotFound{Resource: "virtual account", ID: tx.AccountID}
		case "conflict":
			return &domain.ErrConflict{Message: fmt.Sprintf("month-end already posted for account %s in %s",
				tx.AccountID, domain.MonthKey(tx.Year, tx.Month))}
		case "insufficient":
			return &domain.ErrInsufficientBalance{Available: res.Available, Required: -tx.Amount}
		default:
			return fmt.Errorf("post_account_transaction: unexpected status %q", res.Status)
		}
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("supabase: ledger row posted",
		zap.String("account_id", tx.AccountID),
		zap.String("type", string(tx.Type)),
		zap.Float64("amount", tx.Amount),
		zap.Float64("balance", account.Balance),
	)
	return account, nil
}

// ============================================================
// Month locks
// ============================================================

func (c *Client) GetMonthLock(ctx context.Context, tenantID string, year, month int) (*domain.MonthLock, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetMonthLock")
	defer span.End()

	path := fmt.Sprintf("month_locks?tenant_id=%s&year=eq.%d&month=eq.%d", eq(tenantID), year, month)
	return selectOne[domain.MonthLock](ctx, c, "month_locks", path, "month lock", domain.MonthKey(year, month))
}

func (c *Client) ListMonthLocks(ctx context.Context, tenantID string) ([]domain.MonthLock, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListMonthLocks")
	defer span.End()

	return selectRows[domain.MonthLock](ctx, c, "month_locks", "month_locks?tenant_id="+eq(tenantID)+"&order=year.asc,month.asc")
}

func (c *Client) CreateMonthLock(ctx context.Context, lock *domain.MonthLock) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateMonthLock")
	defer span.End()

	return c.insert(ctx, "month_locks", "month_locks", lock,
		"month already locked: "+domain.MonthKey(lock.Year, lock.Month))
}
