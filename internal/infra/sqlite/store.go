// Package sqlite implements port.Store on an embedded SQLite database
// (modernc.org/sqlite, no cgo). Nested documents such as subcategory trees,
// budget maps and reminder completion maps are stored as JSON columns.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("sqlite")

var _ port.Store = (*Store)(nil)

// timeLayout keeps a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the SQLite-backed store.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// DSN builds the connection string for a database file.
func DSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open creates the database directory if needed, runs migrations and returns a ready store.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	dsn := DSN(path)

	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time; SQLite serialises writes anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("sqlite store ready", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ============================================================
// Tenants
// ============================================================

func (s *Store) CreateTenant(ctx context.Context, t *domain.Tenant) error {
	ctx, span := tracer.Start(ctx, "SQLite.CreateTenant")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, owner_name, created_at) VALUES (?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		t.ID, t.Name, t.OwnerName, formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrConflict{Message: "tenant already exists: " + t.ID}
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetTenant")
	defer span.End()

	var t domain.Tenant
	var created string
	err := s.db.QueryRowContext(ctx, `SELECT id, name, owner_name, created_at FROM tenants WHERE id = ?`, tenantID).
		Scan(&t.ID, &t.Name, &t.OwnerName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "tenant", ID: tenantID}
	}
	if err != nil {
		return nil, fmt.Errorf("select tenant: %w", err)
	}
	t.CreatedAt = parseTime(created)
	return &t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListTenants")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, owner_name, created_at FROM tenants ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select tenants: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Tenant, 0)
	for rows.Next() {
		var t domain.Tenant
		var created string
		if err := rows.Scan(&t.ID, &t.Name, &t.OwnerName, &created); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		t.CreatedAt = parseTime(created)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ============================================================
// Categories
// ============================================================

const categoryColumns = `id, tenant_id, name, icon, subcategories, budgets, created_at, updated_at`

func scanCategory(sc interface{ Scan(...any) error }) (domain.Category, error) {
	var c domain.Category
	var subs, budgets, created, updated string
	if err := sc.Scan(&c.ID, &c.TenantID, &c.Name, &c.Icon, &subs, &budgets, &created, &updated); err != nil {
		return c, err
	}
	if err := json.Unmarshal([]byte(subs), &c.Subcategories); err != nil {
		return c, fmt.Errorf("decode subcategories: %w", err)
	}
	if err := json.Unmarshal([]byte(budgets), &c.Budgets); err != nil {
		return c, fmt.Errorf("decode budgets: %w", err)
	}
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return c, nil
}

func encodeCategory(c *domain.Category) (subs, budgets string, err error) {
	sc := c.Subcategories
	if sc == nil {
		sc = []domain.Subcategory{}
	}
	b := c.Budgets
	if b == nil {
		b = map[string]float64{}
	}
	sb, err := json.Marshal(sc)
	if err != nil {
		return "", "", fmt.Errorf("encode subcategories: %w", err)
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return "", "", fmt.Errorf("encode budgets: %w", err)
	}
	return string(sb), string(bb), nil
}

func (s *Store) ListCategories(ctx context.Context, tenantID string) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListCategories")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE tenant_id = ? ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, tenantID, categoryID string) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetCategory")
	defer span.End()

	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE tenant_id = ? AND id = ?`, tenantID, categoryID)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "category", ID: categoryID}
	}
	if err != nil {
		return nil, fmt.Errorf("select category: %w", err)
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	ctx, span := tracer.Start(ctx, "SQLite.CreateCategory")
	defer span.End()

	subs, budgets, err := encodeCategory(c)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		c.ID, c.TenantID, c.Name, c.Icon, subs, budgets, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrConflict{Message: "category name already in use: " + c.Name}
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *domain.Category) error {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateCategory")
	defer span.End()

	subs, budgets, err := encodeCategory(c)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, icon = ?, subcategories = ?, budgets = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		c.Name, c.Icon, subs, budgets, formatTime(c.UpdatedAt), c.TenantID, c.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return &domain.ErrConflict{Message: "category name already in use: " + c.Name}
		}
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "category", ID: c.ID}
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, tenantID, categoryID string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteCategory")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE tenant_id = ? AND id = ?`, tenantID, categoryID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "category", ID: categoryID}
	}
	return nil
}

// ============================================================
// Transactions
// ============================================================

const transactionColumns = `id, tenant_id, date, time, description, amount, category, subcategory, microcategory, paid_by, notes, created_at, updated_at`

func scanTransaction(sc interface{ Scan(...any) error }) (domain.Transaction, error) {
	var t domain.Transaction
	var created, updated string
	err := sc.Scan(&t.ID, &t.TenantID, &t.Date, &t.Time, &t.Description, &t.Amount, &t.Category,
		&t.Subcategory, &t.Microcategory, &t.PaidBy, &t.Notes, &created, &updated)
	if err != nil {
		return t, err
	}
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, tenantID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListTransactions")
	defer span.End()

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE tenant_id = ?`
	args := []any{tenantID}
	if filter.Year != 0 {
		query += ` AND substr(date, 1, 4) = ?`
		args = append(args, fmt.Sprintf("%04d", filter.Year))
	}
	if filter.Month != 0 {
		query += ` AND substr(date, 6, 2) = ?`
		args = append(args, fmt.Sprintf("%02d", filter.Month))
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.PaidBy != "" {
		query += ` AND paid_by = ?`
		args = append(args, filter.PaidBy)
	}
	query += ` ORDER BY date DESC, time DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTransaction(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetTransaction")
	defer span.End()

	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE tenant_id = ? AND id = ?`, tenantID, transactionID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	if err != nil {
		return nil, fmt.Errorf("select transaction: %w", err)
	}
	return &t, nil
}

func (s *Store) CreateTransactions(ctx context.Context, txs []domain.Transaction) error {
	ctx, span := tracer.Start(ctx, "SQLite.CreateTransactions")
	defer span.End()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert transaction: %w", err)
		}
		defer stmt.Close()

		for _, t := range txs {
			_, err := stmt.ExecContext(ctx, t.ID, t.TenantID, t.Date, t.Time, t.Description, t.Amount, t.Category,
				t.Subcategory, t.Microcategory, t.PaidBy, t.Notes, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
			if err != nil {
				if strings.Contains(err.Error(), "UNIQUE") {
					return &domain.ErrConflict{Message: "transaction already exists: " + t.ID}
				}
				return fmt.Errorf("insert transaction %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateTransaction")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET date = ?, time = ?, description = ?, amount = ?, category = ?, subcategory = ?,
		 microcategory = ?, paid_by = ?, notes = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		t.Date, t.Time, t.Description, t.Amount, t.Category, t.Subcategory, t.Microcategory, t.PaidBy, t.Notes,
		formatTime(t.UpdatedAt), t.TenantID, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "transaction", ID: t.ID}
	}
	return nil
}

func (s *Store) DeleteTransactions(ctx context.Context, tenantID string, ids []string) (int, error) {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteTransactions")
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids)+1)
	args = append(args, tenantID)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE tenant_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ============================================================
// Virtual accounts, ledger and month locks
// ============================================================

const accountColumns = `id, tenant_id, category_id, category_name, balance, created_at`

func scanAccount(sc interface{ Scan(...any) error }) (domain.VirtualAccount, error) {
	var a domain.VirtualAccount
	var created string
	if err := sc.Scan(&a.ID, &a.TenantID, &a.CategoryID, &a.CategoryName, &a.Balance, &created); err != nil {
		return a, err
	}
	a.CreatedAt = parseTime(created)
	return a, nil
}

func (s *Store) ListVirtualAccounts(ctx context.Context, tenantID string) ([]domain.VirtualAccount, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListVirtualAccounts")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM virtual_accounts WHERE tenant_id = ? ORDER BY category_name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("select virtual accounts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.VirtualAccount, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan virtual account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) getAccount(ctx context.Context, q queryer, where string, args ...any) (*domain.VirtualAccount, error) {
	a, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM virtual_accounts WHERE `+where, args...))
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetVirtualAccount(ctx context.Context, tenantID, accountID string) (*domain.VirtualAccount, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetVirtualAccount")
	defer span.End()

	a, err := s.getAccount(ctx, s.db, `tenant_id = ? AND id = ?`, tenantID, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "virtual account", ID: accountID}
	}
	if err != nil {
		return nil, fmt.Errorf("select virtual account: %w", err)
	}
	return a, nil
}

func (s *Store) GetVirtualAccountByCategory(ctx context.Context, tenantID, categoryID string) (*domain.VirtualAccount, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetVirtualAccountByCategory")
	defer span.End()

	a, err := s.getAccount(ctx, s.db, `tenant_id = ? AND category_id = ?`, tenantID, categoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "virtual account for category", ID: categoryID}
	}
	if err != nil {
		return nil, fmt.Errorf("select virtual account: %w", err)
	}
	return a, nil
}

func (s *Store) CreateVirtualAccount(ctx context.Context, a *domain.VirtualAccount) error {
	ctx, span := tracer.Start(ctx, "SQLite.CreateVirtualAccount")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO virtual_accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		a.ID, a.TenantID, a.CategoryID, a.CategoryName, a.Balance, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert virtual account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrConflict{Message: "category already has a virtual account: " + a.CategoryID}
	}
	return nil
}

const ledgerColumns = `id, tenant_id, account_id, type, amount, year, month, description, created_by, created_at`

func scanLedgerRows(rows *sql.Rows) ([]domain.AccountTransaction, error) {
	defer rows.Close()
	out := make([]domain.AccountTransaction, 0)
	for rows.Next() {
		var tx domain.AccountTransaction
		var typ, created string
		if err := rows.Scan(&tx.ID, &tx.TenantID, &tx.AccountID, &typ, &tx.Amount, &tx.Year, &tx.Month,
			&tx.Description, &tx.CreatedBy, &created); err != nil {
			return nil, fmt.Errorf("scan account transaction: %w", err)
		}
		tx.Type = domain.AccountTransactionType(typ)
		tx.CreatedAt = parseTime(created)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) ListAccountTransactions(ctx context.Context, tenantID, accountID string) ([]domain.AccountTransaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListAccountTransactions")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM account_transactions WHERE tenant_id = ? AND account_id = ? ORDER BY created_at DESC, id`,
		tenantID, accountID)
	if err != nil {
		return nil, fmt.Errorf("select account transactions: %w", err)
	}
	return scanLedgerRows(rows)
}

func (s *Store) ListMonthEndPostings(ctx context.Context, tenantID string, year, month int) ([]domain.AccountTransaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListMonthEndPostings")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM account_transactions WHERE tenant_id = ? AND year = ? AND month = ? AND month_end = 1`,
		tenantID, year, month)
	if err != nil {
		return nil, fmt.Errorf("select month-end postings: %w", err)
	}
	return scanLedgerRows(rows)
}

func (s *Store) PostAccountTransaction(ctx context.Context, at *domain.AccountTransaction) (*domain.VirtualAccount, error) {
	ctx, span := tracer.Start(ctx, "SQLite.PostAccountTransaction")
	defer span.End()

	var updated *domain.VirtualAccount
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		a, err := s.getAccount(ctx, tx, `tenant_id = ? AND id = ?`, at.TenantID, at.AccountID)
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.ErrNotFound{Resource: "virtual account", ID: at.AccountID}
		}
		if err != nil {
			return fmt.Errorf("select virtual account: %w", err)
		}

		if at.Type.IsMonthEnd() {
			var n int
			err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM account_transactions WHERE account_id = ? AND year = ? AND month = ? AND month_end = 1`,
				at.AccountID, at.Year, at.Month).Scan(&n)
			if err != nil {
				return fmt.Errorf("count month-end postings: %w", err)
			}
			if n > 0 {
				return &domain.ErrConflict{Message: "month-end already posted for account " + at.AccountID}
			}
		}

		next := domain.SumRound2(a.Balance, at.Amount)
		if at.Type == domain.OverspendWithdrawal && next < 0 {
			return &domain.ErrInsufficientBalance{Available: a.Balance, Required: -at.Amount}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO account_transactions (`+ledgerColumns+`, month_end) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			at.ID, at.TenantID, at.AccountID, string(at.Type), at.Amount, at.Year, at.Month, at.Description,
			at.CreatedBy, formatTime(at.CreatedAt), boolInt(at.Type.IsMonthEnd())); err != nil {
			return fmt.Errorf("insert account transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE virtual_accounts SET balance = ? WHERE id = ?`, next, a.ID); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
		a.Balance = next
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) GetMonthLock(ctx context.Context, tenantID string, year, month int) (*domain.MonthLock, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetMonthLock")
	defer span.End()

	l := domain.MonthLock{TenantID: tenantID, Year: year, Month: month}
	var locked string
	err := s.db.QueryRowContext(ctx,
		`SELECT locked_by, locked_at FROM month_locks WHERE tenant_id = ? AND year = ? AND month = ?`,
		tenantID, year, month).Scan(&l.LockedBy, &locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "month lock", ID: domain.MonthKey(year, month)}
	}
	if err != nil {
		return nil, fmt.Errorf("select month lock: %w", err)
	}
	l.LockedAt = parseTime(locked)
	return &l, nil
}

func (s *Store) ListMonthLocks(ctx context.Context, tenantID string) ([]domain.MonthLock, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListMonthLocks")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT tenant_id, year, month, locked_by, locked_at FROM month_locks WHERE tenant_id = ? ORDER BY year, month`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("select month locks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.MonthLock, 0)
	for rows.Next() {
		var l domain.MonthLock
		var locked string
		if err := rows.Scan(&l.TenantID, &l.Year, &l.Month, &l.LockedBy, &locked); err != nil {
			return nil, fmt.Errorf("scan month lock: %w", err)
		}
		l.LockedAt = parseTime(locked)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) CreateMonthLock(ctx context.Context, lock *domain.MonthLock) error {
	ctx, span := tracer.Start(ctx, "SQLite.CreateMonthLock")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO month_locks (tenant_id, year, month, locked_by, locked_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		lock.TenantID, lock.Year, lock.Month, lock.LockedBy, formatTime(lock.LockedAt))
	if err != nil {
		return fmt.Errorf("insert month lock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrConflict{Message: "month already locked: " + domain.MonthKey(lock.Year, lock.Month)}
	}
	return nil
}
