// Package storetest holds behaviour checks every port.Store backend must pass.
// Backends call Run from their own _test.go files.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises the store returned by newStore. Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) port.Store) {
	t.Run("Tenants", func(t *testing.T) { testTenants(t, newStore(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("Ledger", func(t *testing.T) { testLedger(t, newStore(t)) })
	t.Run("MonthLocks", func(t *testing.T) { testMonthLocks(t, newStore(t)) })
	t.Run("Borrowings", func(t *testing.T) { testBorrowings(t, newStore(t)) })
	t.Run("Reminders", func(t *testing.T) { testReminders(t, newStore(t)) })
}

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func isNotFound(err error) bool {
	var nf *domain.ErrNotFound
	return errors.As(err, &nf)
}

func isConflict(err error) bool {
	var c *domain.ErrConflict
	return errors.As(err, &c)
}

func testTenants(t *testing.T, s port.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateTenant(ctx, &domain.Tenant{ID: "t1", Name: "Home", OwnerName: "Asha", CreatedAt: now}))
	require.NoError(t, s.CreateTenant(ctx, &domain.Tenant{ID: "t2", Name: "Office", CreatedAt: now.Add(time.Hour)}))

	got, err := s.GetTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Home", got.Name)
	assert.Equal(t, "Asha", got.OwnerName)

	list, err := s.ListTenants(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t1", list[0].ID)

	_, err = s.GetTenant(ctx, "missing")
	assert.True(t, isNotFound(err), "expected not found, got %v", err)
}

func testCategories(t *testing.T, s port.Store) {
	ctx := context.Background()
	c := &domain.Category{
		ID:       "c1",
		TenantID: "t1",
		Name:     "Food",
		Subcategories: []domain.Subcategory{
			{Name: "Groceries", Microcategories: []string{"Vegetables"}},
		},
		Budgets:   map[string]float64{"2024-01": 5000},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateCategory(ctx, c))
	require.NoError(t, s.CreateCategory(ctx, &domain.Category{ID: "c2", TenantID: "t1", Name: "Bills", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, s.CreateCategory(ctx, &domain.Category{ID: "c3", TenantID: "t2", Name: "Food", CreatedAt: now, UpdatedAt: now}))

	got, err := s.GetCategory(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 5000.0, got.Budgets["2024-01"])
	require.Len(t, got.Subcategories, 1)
	assert.Equal(t, []string{"Vegetables"}, got.Subcategories[0].Microcategories)

	// other tenants cannot see it
	_, err = s.GetCategory(ctx, "t2", "c1")
	assert.True(t, isNotFound(err))

	list, err := s.ListCategories(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bills", list[0].Name)

	got.Subcategories = []domain.Subcategory{{Name: "Dining"}}
	got.Budgets["2024-02"] = 5500
	got.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, s.UpdateCategory(ctx, got))

	updated, err := s.GetCategory(ctx, "t1", "c1")
	require.NoError(t, err)
	require.Len(t, updated.Subcategories, 1)
	assert.Equal(t, "Dining", updated.Subcategories[0].Name)
	assert.Equal(t, 5500.0, updated.Budgets["2024-02"])

	renamed := *updated
	renamed.Name = "Bills"
	assert.True(t, isConflict(s.UpdateCategory(ctx, &renamed)), "rename into an existing name")
	otherTenant := &domain.Category{ID: "c3", TenantID: "t2", Name: "Bills", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.UpdateCategory(ctx, otherTenant), "names are unique per tenant only")
	unchanged, err := s.GetCategory(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Food", unchanged.Name)

	require.NoError(t, s.DeleteCategory(ctx, "t1", "c2"))
	assert.True(t, isNotFound(s.DeleteCategory(ctx, "t1", "c2")))
}

func testTransactions(t *testing.T, s port.Store) {
	ctx := context.Background()
	txs := []domain.Transaction{
		{ID: "x1", TenantID: "t1", Date: "2024-01-05", Time: "09:00", Description: "veg", Amount: 120.5, Category: "Food", PaidBy: "asha", CreatedAt: now, UpdatedAt: now},
		{ID: "x2", TenantID: "t1", Date: "2024-01-20", Description: "power", Amount: 900, Category: "Bills", PaidBy: "ravi", CreatedAt: now, UpdatedAt: now},
		{ID: "x3", TenantID: "t1", Date: "2024-02-02", Description: "fruit", Amount: 80, Category: "Food", CreatedAt: now, UpdatedAt: now},
		{ID: "x4", TenantID: "t2", Date: "2024-01-05", Description: "other", Amount: 10, Category: "Food", CreatedAt: now, UpdatedAt: now},
	}
	require.NoError(t, s.CreateTransactions(ctx, txs))

	all, err := s.ListTransactions(ctx, "t1", domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "x3", all[0].ID, "newest first")

	jan, err := s.ListTransactions(ctx, "t1", domain.TransactionFilter{Year: 2024, Month: 1})
	require.NoError(t, err)
	assert.Len(t, jan, 2)

	food, err := s.ListTransactions(ctx, "t1", domain.TransactionFilter{Category: "Food"})
	require.NoError(t, err)
	assert.Len(t, food, 2)

	got, err := s.GetTransaction(ctx, "t1", "x1")
	require.NoError(t, err)
	assert.Equal(t, 120.5, got.Amount)
	got.Amount = 130
	require.NoError(t, s.UpdateTransaction(ctx, got))
	got, err = s.GetTransaction(ctx, "t1", "x1")
	require.NoError(t, err)
	assert.Equal(t, 130.0, got.Amount)

	n, err := s.DeleteTransactions(ctx, "t1", []string{"x1", "x4", "nope"})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "x4 belongs to another tenant")

	_, err = s.GetTransaction(ctx, "t1", "x1")
	assert.True(t, isNotFound(err))
}

func testLedger(t *testing.T, s port.Store) {
	ctx := context.Background()
	acct := &domain.VirtualAccount{ID: "a1", TenantID: "t1", CategoryID: "c1", CategoryName: "Food", CreatedAt: now}
	require.NoError(t, s.CreateVirtualAccount(ctx, acct))
	assert.True(t, isConflict(s.CreateVirtualAccount(ctx, &domain.VirtualAccount{ID: "a2", TenantID: "t1", CategoryID: "c1", CreatedAt: now})))

	byCat, err := s.GetVirtualAccountByCategory(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "a1", byCat.ID)
	_, err = s.GetVirtualAccountByCategory(ctx, "t1", "c9")
	assert.True(t, isNotFound(err))

	updated, err := s.PostAccountTransaction(ctx, &domain.AccountTransaction{
		ID: "l1", TenantID: "t1", AccountID: "a1", Type: domain.SurplusTransfer,
		Amount: 1800, Year: 2024, Month: 1, CreatedBy: "asha", CreatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, 1800.0, updated.Balance)

	// second month-end row for the same month is rejected
	_, err = s.PostAccountTransaction(ctx, &domain.AccountTransaction{
		ID: "l2", TenantID: "t1", AccountID: "a1", Type: domain.ZeroBalance,
		Year: 2024, Month: 1, CreatedAt: now,
	})
	assert.True(t, isConflict(err), "expected conflict, got %v", err)

	updated, err = s.PostAccountTransaction(ctx, &domain.AccountTransaction{
		ID: "l3", TenantID: "t1", AccountID: "a1", Type: domain.OverspendWithdrawal,
		Amount: -800, Year: 2024, Month: 2, CreatedAt: now.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, updated.Balance)

	_, err = s.PostAccountTransaction(ctx, &domain.AccountTransaction{
		ID: "l4", TenantID: "t1", AccountID: "a1", Type: domain.OverspendWithdrawal,
		Amount: -1000.01, Year: 2024, Month: 2, CreatedAt: now.Add(2 * time.Minute),
	})
	var insufficient *domain.ErrInsufficientBalance
	assert.True(t, errors.As(err, &insufficient), "expected insufficient balance, got %v", err)

	got, err := s.GetVirtualAccount(ctx, "t1", "a1")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, got.Balance, "failed posting must not touch the balance")

	rows, err := s.ListAccountTransactions(ctx, "t1", "a1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "l3", rows[0].ID, "newest first")

	posted, err := s.ListMonthEndPostings(ctx, "t1", 2024, 1)
	require.NoError(t, err)
	require.Len(t, posted, 1)
	assert.Equal(t, domain.SurplusTransfer, posted[0].Type)

	accounts, err := s.ListVirtualAccounts(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func testMonthLocks(t *testing.T, s port.Store) {
	ctx := context.Background()
	_, err := s.GetMonthLock(ctx, "t1", 2024, 1)
	assert.True(t, isNotFound(err))

	require.NoError(t, s.CreateMonthLock(ctx, &domain.MonthLock{TenantID: "t1", Year: 2024, Month: 1, LockedBy: "asha", LockedAt: now}))
	assert.True(t, isConflict(s.CreateMonthLock(ctx, &domain.MonthLock{TenantID: "t1", Year: 2024, Month: 1, LockedAt: now})))
	require.NoError(t, s.CreateMonthLock(ctx, &domain.MonthLock{TenantID: "t2", Year: 2024, Month: 1, LockedAt: now}))

	lock, err := s.GetMonthLock(ctx, "t1", 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, "asha", lock.LockedBy)

	locks, err := s.ListMonthLocks(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, locks, 1)
}

func testBorrowings(t *testing.T, s port.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateContact(ctx, &domain.BorrowingContact{ID: "p1", TenantID: "t1", Name: "Kiran", CreditScore: 600, CreatedAt: now, UpdatedAt: now}))

	err := s.CreateBorrowing(ctx, &domain.Borrowing{ID: "b0", TenantID: "t1", ContactID: "ghost", Type: domain.Lent, Amount: 1, Balance: 1, StartDate: "2024-01-01", DueDate: "2024-02-01", CreatedAt: now, UpdatedAt: now})
	assert.True(t, isNotFound(err), "unknown contact must be rejected, got %v", err)

	b := &domain.Borrowing{ID: "b1", TenantID: "t1", ContactID: "p1", Type: domain.Lent, Amount: 1000, Balance: 1000, StartDate: "2024-01-01", DueDate: "2024-02-01", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateBorrowing(ctx, b))
	require.NoError(t, s.CreateBorrowing(ctx, &domain.Borrowing{ID: "b2", TenantID: "t1", ContactID: "p1", Type: domain.Borrowed, Amount: 50, Balance: 0, IsClosed: true, StartDate: "2024-01-01", DueDate: "2024-01-10", CreatedAt: now, UpdatedAt: now}))

	open, err := s.ListBorrowings(ctx, "t1", domain.BorrowingFilter{OpenOnly: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "b1", open[0].ID)

	byContact, err := s.ListBorrowings(ctx, "t1", domain.BorrowingFilter{ContactID: "p1"})
	require.NoError(t, err)
	assert.Len(t, byContact, 2)

	rep, err := s.ApplyRepayment(ctx, "t1", "b1", func(b *domain.Borrowing, c *domain.BorrowingContact) (*domain.Repayment, error) {
		b.Balance = 600
		c.CreditScore = 610
		return &domain.Repayment{ID: "r1", TenantID: "t1", BorrowingID: b.ID, Amount: 400, Date: "2024-01-20", StatusAtPayment: domain.StatusActive, ScoreDelta: 10, CreatedAt: now}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", rep.ID)

	_, err = s.ApplyRepayment(ctx, "t1", "b1", func(b *domain.Borrowing, c *domain.BorrowingContact) (*domain.Repayment, error) {
		b.Balance = 0
		return nil, &domain.ErrValidation{Field: "amount", Message: "nope"}
	})
	require.Error(t, err)

	got, err := s.GetBorrowing(ctx, "t1", "b1")
	require.NoError(t, err)
	assert.Equal(t, 600.0, got.Balance, "aborted repayment must not persist")

	contact, err := s.GetContact(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 610, contact.CreditScore)

	reps, err := s.ListRepayments(ctx, "t1", "b1")
	require.NoError(t, err)
	require.Len(t, reps, 1)
	assert.Equal(t, domain.StatusActive, reps[0].StatusAtPayment)

	got.IsClosed = true
	require.NoError(t, s.UpdateBorrowing(ctx, got))
	got, err = s.GetBorrowing(ctx, "t1", "b1")
	require.NoError(t, err)
	assert.True(t, got.IsClosed)

	contact.Phone = "555"
	require.NoError(t, s.UpdateContact(ctx, contact))
	contacts, err := s.ListContacts(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "555", contacts[0].Phone)
}

func testReminders(t *testing.T, s port.Store) {
	ctx := context.Background()
	wd := time.Monday
	r := &domain.Reminder{
		ID:                 "r1",
		TenantID:           "t1",
		Title:              "Rent",
		Amount:             15000,
		Rule:               domain.RecurrenceRule{Frequency: domain.Monthly, Weekday: &wd, WeekOfMonth: 2},
		StartDate:          "2024-01-01",
		Active:             true,
		CompletedInstances: map[string]string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, s.CreateReminder(ctx, r))

	got, err := s.GetReminder(ctx, "t1", "r1")
	require.NoError(t, err)
	require.NotNil(t, got.Rule.Weekday)
	assert.Equal(t, time.Monday, *got.Rule.Weekday)
	assert.Equal(t, 2, got.Rule.WeekOfMonth)

	got.CompletedInstances["2024-01-08"] = "x1"
	require.NoError(t, s.UpdateReminder(ctx, got))

	list, err := s.ListReminders(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "x1", list[0].CompletedInstances["2024-01-08"])

	require.NoError(t, s.DeleteReminder(ctx, "t1", "r1"))
	_, err = s.GetReminder(ctx, "t1", "r1")
	assert.True(t, isNotFound(err))
}
