// Package memory provides an in-process implementation of port.Store.
// Used by tests and for local development with DATA_BACKEND=memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"
)

var _ port.Store = (*Store)(nil)

// Store keeps every collection in maps guarded by one RWMutex. Values are
// copied on the way in and out so callers never share backing maps.
type Store struct {
	mu sync.RWMutex

	tenants      map[string]domain.Tenant
	categories   map[string]domain.Category
	transactions map[string]domain.Transaction
	accounts     map[string]domain.VirtualAccount
	ledger       []domain.AccountTransaction
	locks        map[string]domain.MonthLock
	contacts     map[string]domain.BorrowingContact
	borrowings   map[string]domain.Borrowing
	repayments   []domain.Repayment
	reminders    map[string]domain.Reminder
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tenants:      make(map[string]domain.Tenant),
		categories:   make(map[string]domain.Category),
		transactions: make(map[string]domain.Transaction),
		accounts:     make(map[string]domain.VirtualAccount),
		locks:        make(map[string]domain.MonthLock),
		contacts:     make(map[string]domain.BorrowingContact),
		borrowings:   make(map[string]domain.Borrowing),
		reminders:    make(map[string]domain.Reminder),
	}
}

func (s *Store) Ping(_ context.Context) error { return nil }
func (s *Store) Close() error                 { return nil }

// ============================================================
// Tenants
// ============================================================

func (s *Store) CreateTenant(_ context.Context, t *domain.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID]; ok {
		return &domain.ErrConflict{Message: "tenant already exists: " + t.ID}
	}
	s.tenants[t.ID] = *t
	return nil
}

func (s *Store) GetTenant(_ context.Context, tenantID string) (*domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "tenant", ID: tenantID}
	}
	return &t, nil
}

func (s *Store) ListTenants(_ context.Context) ([]domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ============================================================
// Categories
// ============================================================

func (s *Store) ListCategories(_ context.Context, tenantID string) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Category, 0)
	for _, c := range s.categories {
		if c.TenantID == tenantID {
			out = append(out, copyCategory(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, tenantID, categoryID string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[categoryID]
	if !ok || c.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Resource: "category", ID: categoryID}
	}
	c = copyCategory(c)
	return &c, nil
}

func (s *Store) CreateCategory(_ context.Context, c *domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.TenantID == c.TenantID && existing.Name == c.Name {
			return &domain.ErrConflict{Message: "category name already in use: " + c.Name}
		}
	}
	s.categories[c.ID] = copyCategory(*c)
	return nil
}

func (s *Store) UpdateCategory(_ context.Context, c *domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.categories[c.ID]
	if !ok || existing.TenantID != c.TenantID {
		return &domain.ErrNotFound{Resource: "category", ID: c.ID}
	}
	for id, other := range s.categories {
		if id != c.ID && other.TenantID == c.TenantID && other.Name == c.Name {
			return &domain.ErrConflict{Message: "category name already in use: " + c.Name}
		}
	}
	s.categories[c.ID] = copyCategory(*c)
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, tenantID, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[categoryID]
	if !ok || c.TenantID != tenantID {
		return &domain.ErrNotFound{Resource: "category", ID: categoryID}
	}
	delete(s.categories, categoryID)
	return nil
}

// ============================================================
// Transactions
// ============================================================

func (s *Store) ListTransactions(_ context.Context, tenantID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Transaction, 0)
	for _, t := range s.transactions {
		if t.TenantID == tenantID && filter.Matches(&t) {
			out = append(out, t)
		}
	}
	sortTransactions(out)
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, tenantID, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[transactionID]
	if !ok || t.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	return &t, nil
}

func (s *Store) CreateTransactions(_ context.Context, txs []domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range txs {
		if _, ok := s.transactions[t.ID]; ok {
			return &domain.ErrConflict{Message: "transaction already exists: " + t.ID}
		}
	}
	for _, t := range txs {
		s.transactions[t.ID] = t
	}
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.transactions[t.ID]
	if !ok || existing.TenantID != t.TenantID {
		return &domain.ErrNotFound{Resource: "transaction", ID: t.ID}
	}
	s.transactions[t.ID] = *t
	return nil
}

func (s *Store) DeleteTransactions(_ context.Context, tenantID string, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if t, ok := s.transactions[id]; ok && t.TenantID == tenantID {
			delete(s.transactions, id)
			n++
		}
	}
	return n, nil
}

// ============================================================
// Virtual accounts, ledger and month locks
// ============================================================

func (s *Store) ListVirtualAccounts(_ context.Context, tenantID string) ([]domain.VirtualAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.VirtualAccount, 0)
	for _, a := range s.accounts {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryName < out[j].CategoryName })
	return out, nil
}

func (s *Store) GetVirtualAccount(_ context.Context, tenantID, accountID string) (*domain.VirtualAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok || a.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Resource: "virtual account", ID: accountID}
	}
	return &a, nil
}

func (s *Store) GetVirtualAccountByCategory(_ context.Context, tenantID, categoryID string) (*domain.VirtualAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.TenantID == tenantID && a.CategoryID == categoryID {
			return &a, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "virtual account for category", ID: categoryID}
}

func (s *Store) CreateVirtualAccount(_ context.Context, a *domain.VirtualAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.TenantID == a.TenantID && existing.CategoryID == a.CategoryID {
			return &domain.ErrConflict{Message: "category already has a virtual account: " + a.CategoryID}
		}
	}
	s.accounts[a.ID] = *a
	return nil
}

func (s *Store) ListAccountTransactions(_ context.Context, tenantID, accountID string) ([]domain.AccountTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AccountTransaction, 0)
	for _, tx := range s.ledger {
		if tx.TenantID == tenantID && tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListMonthEndPostings(_ context.Context, tenantID string, year, month int) ([]domain.AccountTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AccountTransaction, 0)
	for _, tx := range s.ledger {
		if tx.TenantID == tenantID && tx.Year == year && tx.Month == month && tx.Type.IsMonthEnd() {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) PostAccountTransaction(_ context.Context, tx *domain.AccountTransaction) (*domain.VirtualAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[tx.AccountID]
	if !ok || a.TenantID != tx.TenantID {
		return nil, &domain.ErrNotFound{Resource: "virtual account", ID: tx.AccountID}
	}
	if tx.Type.IsMonthEnd() {
		for _, existing := range s.ledger {
			if existing.AccountID == tx.AccountID && existing.Year == tx.Year && existing.Month == tx.Month && existing.Type.IsMonthEnd() {
				return nil, &domain.ErrConflict{Message: "month-end already posted for account " + tx.AccountID}
			}
		}
	}
	next := domain.SumRound2(a.Balance, tx.Amount)
	if tx.Type == domain.OverspendWithdrawal && next < 0 {
		return nil, &domain.ErrInsufficientBalance{Available: a.Balance, Required: -tx.Amount}
	}

	a.Balance = next
	s.accounts[a.ID] = a
	s.ledger = append(s.ledger, *tx)
	return &a, nil
}

func lockKey(tenantID string, year, month int) string {
	return tenantID + "/" + domain.MonthKey(year, month)
}

func (s *Store) GetMonthLock(_ context.Context, tenantID string, year, month int) (*domain.MonthLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.locks[lockKey(tenantID, year, month)]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "month lock", ID: domain.MonthKey(year, month)}
	}
	return &l, nil
}

func (s *Store) ListMonthLocks(_ context.Context, tenantID string) ([]domain.MonthLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MonthLock, 0)
	for _, l := range s.locks {
		if l.TenantID == tenantID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return domain.MonthKey(out[i].Year, out[i].Month) < domain.MonthKey(out[j].Year, out[j].Month)
	})
	return out, nil
}

func (s *Store) CreateMonthLock(_ context.Context, lock *domain.MonthLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := lockKey(lock.TenantID, lock.Year, lock.Month)
	if _, ok := s.locks[key]; ok {
		return &domain.ErrConflict{Message: "month already locked: " + domain.MonthKey(lock.Year, lock.Month)}
	}
	s.locks[key] = *lock
	return nil
}

// ============================================================
// Borrowings
// ============================================================

func (s *Store) CreateContact(_ context.Context, c *domain.BorrowingContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[c.ID] = *c
	return nil
}

func (s *Store) GetContact(_ context.Context, tenantID, contactID string) (*domain.BorrowingContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[contactID]
	if !ok || c.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Resource: "contact", ID: contactID}
	}
	return &c, nil
}

func (s *Store) ListContacts(_ context.Context, tenantID string) ([]domain.BorrowingContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.BorrowingContact, 0)
	for _, c := range s.contacts {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateContact(_ context.Context, c *domain.BorrowingContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.contacts[c.ID]
	if !ok || existing.TenantID != c.TenantID {
		return &domain.ErrNotFound{Resource: "contact", ID: c.ID}
	}
	s.contacts[c.ID] = *c
	return nil
}

func (s *Store) DeleteContact(_ context.Context, tenantID, contactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[contactID]
	if !ok || c.TenantID != tenantID {
		return &domain.ErrNotFound{Resource: "contact", ID: contactID}
	}
	delete(s.contacts, contactID)
	return nil
}

func (s *Store) CreateBorrowing(_ context.Context, b *domain.Borrowing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contacts[b.ContactID]; !ok || c.TenantID != b.TenantID {
		return &domain.ErrNotFound{Resource: "contact", ID: b.ContactID}
	}
	s.borrowings[b.ID] = *b
	return nil
}

func (s *Store) GetBorrowing(_ context.Context, tenantID, borrowingID string) (*domain.Borrowing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.borrowings[borrowingID]
	if !ok || b.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Resource: "borrowing", ID: borrowingID}
	}
	return &b, nil
}

func (s *Store) ListBorrowings(_ context.Context, tenantID string, filter domain.BorrowingFilter) ([]domain.Borrowing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Borrowing, 0)
	for _, b := range s.borrowings {
		if b.TenantID != tenantID {
			continue
		}
		if filter.ContactID != "" && b.ContactID != filter.ContactID {
			continue
		}
		if filter.OpenOnly && b.IsClosed {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueDate != out[j].DueDate {
			return out[i].DueDate < out[j].DueDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateBorrowing(_ context.Context, b *domain.Borrowing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.borrowings[b.ID]
	if !ok || existing.TenantID != b.TenantID {
		return &domain.ErrNotFound{Resource: "borrowing", ID: b.ID}
	}
	s.borrowings[b.ID] = *b
	return nil
}

func (s *Store) ApplyRepayment(_ context.Context, tenantID, borrowingID string, fn port.RepaymentFunc) (*domain.Repayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.borrowings[borrowingID]
	if !ok || b.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Resource: "borrowing", ID: borrowingID}
	}
	c, ok := s.contacts[b.ContactID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "contact", ID: b.ContactID}
	}

	rep, err := fn(&b, &c)
	if err != nil {
		return nil, err
	}
	s.borrowings[b.ID] = b
	s.contacts[c.ID] = c
	s.repayments = append(s.repayments, *rep)
	return rep, nil
}

func (s *Store) ListRepayments(_ context.Context, tenantID, borrowingID string) ([]domain.Repayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Repayment, 0)
	for _, r := range s.repayments {
		if r.TenantID == tenantID && r.BorrowingID == borrowingID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ============================================================
// Reminders
// ============================================================

func (s *Store) CreateReminder(_ context.Context, r *domain.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders[r.ID] = copyReminder(*r)
	return nil
}

func (s *Store) GetReminder(_ context.Context, tenantID, reminderID string) (*domain.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reminders[reminderID]
	if !ok || r.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Resource: "reminder", ID: reminderID}
	}
	r = copyReminder(r)
	return &r, nil
}

func (s *Store) ListReminders(_ context.Context, tenantID string) ([]domain.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Reminder, 0)
	for _, r := range s.reminders {
		if r.TenantID == tenantID {
			out = append(out, copyReminder(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *Store) UpdateReminder(_ context.Context, r *domain.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.reminders[r.ID]
	if !ok || existing.TenantID != r.TenantID {
		return &domain.ErrNotFound{Resource: "reminder", ID: r.ID}
	}
	s.reminders[r.ID] = copyReminder(*r)
	return nil
}

func (s *Store) DeleteReminder(_ context.Context, tenantID, reminderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[reminderID]
	if !ok || r.TenantID != tenantID {
		return &domain.ErrNotFound{Resource: "reminder", ID: reminderID}
	}
	delete(s.reminders, reminderID)
	return nil
}

// ============================================================
// Copy helpers
// ============================================================

func copyCategory(c domain.Category) domain.Category {
	if c.Budgets != nil {
		budgets := make(map[string]float64, len(c.Budgets))
		for k, v := range c.Budgets {
			budgets[k] = v
		}
		c.Budgets = budgets
	}
	if c.Subcategories != nil {
		subs := make([]domain.Subcategory, len(c.Subcategories))
		for i, sc := range c.Subcategories {
			subs[i] = domain.Subcategory{Name: sc.Name, Microcategories: append([]string(nil), sc.Microcategories...)}
		}
		c.Subcategories = subs
	}
	return c
}

func copyReminder(r domain.Reminder) domain.Reminder {
	if r.CompletedInstances != nil {
		done := make(map[string]string, len(r.CompletedInstances))
		for k, v := range r.CompletedInstances {
			done[k] = v
		}
		r.CompletedInstances = done
	}
	if r.Rule.Weekday != nil {
		wd := *r.Rule.Weekday
		r.Rule.Weekday = &wd
	}
	return r
}

// sortTransactions orders newest first, by date then time.
func sortTransactions(txs []domain.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Date != txs[j].Date {
			return txs[i].Date > txs[j].Date
		}
		if txs[i].Time != txs[j].Time {
			return txs[i].Time > txs[j].Time
		}
		return txs[i].ID < txs[j].ID
	})
}
