package domain

import "time"

// ============================================================
// Virtual Accounts
// ============================================================

// AccountTransactionType classifies a virtual account ledger row.
type AccountTransactionType string

const (
	SurplusTransfer     AccountTransactionType = "surplus_transfer"
	OverspendWithdrawal AccountTransactionType = "overspend_withdrawal"
	OverspendDeficit    AccountTransactionType = "overspend_deficit"
	ZeroBalance         AccountTransactionType = "zero_balance"
)

// IsMonthEnd reports whether the type is one month-end processing posts.
func (t AccountTransactionType) IsMonthEnd() bool {
	switch t {
	case SurplusTransfer, OverspendDeficit, ZeroBalance:
		return true
	}
	return false
}

// VirtualAccount is the savings ledger attached to one category.
type VirtualAccount struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Balance      float64   `json:"balance"`
	CreatedAt    time.Time `json:"created_at"`
}

// AccountTransaction is one ledger row. Posting it increments the owning
// account's balance by Amount in the same write.
type AccountTransaction struct {
	ID          string                 `json:"id"`
	TenantID    string                 `json:"tenant_id"`
	AccountID   string                 `json:"account_id"`
	Type        AccountTransactionType `json:"type"`
	Amount      float64                `json:"amount"`
	Year        int                    `json:"year"`
	Month       int                    `json:"month"`
	Description string                 `json:"description"`
	CreatedBy   string                 `json:"created_by"`
	CreatedAt   time.Time              `json:"created_at"`
}

// MonthLock marks a month as closed by month-end processing.
type MonthLock struct {
	TenantID string    `json:"tenant_id"`
	Year     int       `json:"year"`
	Month    int       `json:"month"`
	LockedBy string    `json:"locked_by"`
	LockedAt time.Time `json:"locked_at"`
}

// WithdrawRequest moves money out of a virtual account to cover overspend.
type WithdrawRequest struct {
	Amount float64 `json:"amount"`
	Year   int     `json:"year"`
	Month  int     `json:"month"`
	Actor  string  `json:"actor"`
	Note   string  `json:"note,omitempty"`
}

// WithdrawResult is returned after a withdrawal.
type WithdrawResult struct {
	Account     VirtualAccount     `json:"account"`
	Transaction AccountTransaction `json:"transaction"`
}
