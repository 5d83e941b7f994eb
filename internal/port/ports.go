// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations. Every store call is tenant-scoped.
package port

import (
	"context"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// EventPublisher sends domain events to subscribers outside the process.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}

// TenantStore persists tenants.
type TenantStore interface {
	CreateTenant(ctx context.Context, t *domain.Tenant) error
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)
	ListTenants(ctx context.Context) ([]domain.Tenant, error)
}

// CategoryStore persists categories together with their budget maps.
type CategoryStore interface {
	ListCategories(ctx context.Context, tenantID string) ([]domain.Category, error)
	GetCategory(ctx context.Context, tenantID, categoryID string) (*domain.Category, error)
	CreateCategory(ctx context.Context, c *domain.Category) error
	// UpdateCategory overwrites the whole document, subcategory tree included.
	UpdateCategory(ctx context.Context, c *domain.Category) error
	DeleteCategory(ctx context.Context, tenantID, categoryID string) error
}

// TransactionStore persists expense transactions.
type TransactionStore interface {
	ListTransactions(ctx context.Context, tenantID string, filter domain.TransactionFilter) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error)
	// CreateTransactions inserts all rows or none.
	CreateTransactions(ctx context.Context, txs []domain.Transaction) error
	UpdateTransaction(ctx context.Context, t *domain.Transaction) error
	// DeleteTransactions removes the given ids and reports how many existed.
	DeleteTransactions(ctx context.Context, tenantID string, ids []string) (int, error)
}

// LedgerStore persists virtual accounts, their ledger rows and month locks.
type LedgerStore interface {
	ListVirtualAccounts(ctx context.Context, tenantID string) ([]domain.VirtualAccount, error)
	GetVirtualAccount(ctx context.Context, tenantID, accountID string) (*domain.VirtualAccount, error)
	// GetVirtualAccountByCategory returns ErrNotFound when the category has no account yet.
	GetVirtualAccountByCategory(ctx context.Context, tenantID, categoryID string) (*domain.VirtualAccount, error)
	CreateVirtualAccount(ctx context.Context, a *domain.VirtualAccount) error
	ListAccountTransactions(ctx context.Context, tenantID, accountID string) ([]domain.AccountTransaction, error)
	// ListMonthEndPostings returns the month-end rows already written for a month.
	ListMonthEndPostings(ctx context.Context, tenantID string, year, month int) ([]domain.AccountTransaction, error)

	// PostAccountTransaction writes the ledger row and adds its amount to the
	// account balance as one atomic unit, returning the updated account.
	// A second month-end posting for the same account and month yields
	// ErrConflict; a withdrawal that would leave a negative balance yields
	// ErrInsufficientBalance.
	PostAccountTransaction(ctx context.Context, tx *domain.AccountTransaction) (*domain.VirtualAccount, error)

	// GetMonthLock returns ErrNotFound when the month is open.
	GetMonthLock(ctx context.Context, tenantID string, year, month int) (*domain.MonthLock, error)
	ListMonthLocks(ctx context.Context, tenantID string) ([]domain.MonthLock, error)
	// CreateMonthLock returns ErrConflict when the month is already locked.
	CreateMonthLock(ctx context.Context, lock *domain.MonthLock) error
}

// RepaymentFunc mutates the loaded borrowing and contact and returns the
// repayment row to insert. Returning an error aborts the write.
type RepaymentFunc func(b *domain.Borrowing, c *domain.BorrowingContact) (*domain.Repayment, error)

// BorrowingStore persists contacts, borrowings and repayments.
type BorrowingStore interface {
	CreateContact(ctx context.Context, c *domain.BorrowingContact) error
	GetContact(ctx context.Context, tenantID, contactID string) (*domain.BorrowingContact, error)
	ListContacts(ctx context.Context, tenantID string) ([]domain.BorrowingContact, error)
	UpdateContact(ctx context.Context, c *domain.BorrowingContact) error
	DeleteContact(ctx context.Context, tenantID, contactID string) error

	CreateBorrowing(ctx context.Context, b *domain.Borrowing) error
	GetBorrowing(ctx context.Context, tenantID, borrowingID string) (*domain.Borrowing, error)
	ListBorrowings(ctx context.Context, tenantID string, filter domain.BorrowingFilter) ([]domain.Borrowing, error)
	UpdateBorrowing(ctx context.Context, b *domain.Borrowing) error

	// ApplyRepayment loads the borrowing and its contact, runs fn, then saves
	// the borrowing, the contact and the returned repayment together.
	ApplyRepayment(ctx context.Context, tenantID, borrowingID string, fn RepaymentFunc) (*domain.Repayment, error)
	ListRepayments(ctx context.Context, tenantID, borrowingID string) ([]domain.Repayment, error)
}

// ReminderStore persists reminders with their completion maps.
type ReminderStore interface {
	CreateReminder(ctx context.Context, r *domain.Reminder) error
	GetReminder(ctx context.Context, tenantID, reminderID string) (*domain.Reminder, error)
	ListReminders(ctx context.Context, tenantID string) ([]domain.Reminder, error)
	UpdateReminder(ctx context.Context, r *domain.Reminder) error
	DeleteReminder(ctx context.Context, tenantID, reminderID string) error
}

// Store is the full persistence surface a backend implements.
type Store interface {
	TenantStore
	CategoryStore
	TransactionStore
	LedgerStore
	BorrowingStore
	ReminderStore

	Ping(ctx context.Context) error
	Close() error
}
