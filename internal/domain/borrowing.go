package domain

import (
	"strings"
	"time"
)

// ============================================================
// Borrowings
// ============================================================

const (
	MinCreditScore     = 300
	MaxCreditScore     = 900
	DefaultCreditScore = 600
)

// BorrowingType says which side of the loan the tenant is on.
type BorrowingType string

const (
	Lent     BorrowingType = "lent"
	Borrowed BorrowingType = "borrowed"
)

// BorrowingStatus is derived from the due date on every read.
type BorrowingStatus string

const (
	StatusActive      BorrowingStatus = "Active"
	StatusOverdue     BorrowingStatus = "Overdue"
	StatusSubStandard BorrowingStatus = "Sub-Standard"
	StatusNPA         BorrowingStatus = "NPA"
	StatusWrittenOff  BorrowingStatus = "Written Off"
	StatusSettled     BorrowingStatus = "Settled"
)

// BorrowingContact is a person money is lent to or borrowed from.
type BorrowingContact struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	CreditScore  int       `json:"credit_score"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Borrowing is a single loan. Status is not stored.
type Borrowing struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenant_id"`
	ContactID string        `json:"contact_id"`
	Type      BorrowingType `json:"type"`
	Amount    float64       `json:"amount"`
	Balance   float64       `json:"balance"`
	StartDate string        `json:"start_date"`
	DueDate   string        `json:"due_date"`
	Notes     string        `json:"notes,omitempty"`
	IsClosed  bool          `json:"is_closed"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// BorrowingView is a borrowing with its derived fields, as returned by the API.
type BorrowingView struct {
	Borrowing
	Status   BorrowingStatus `json:"status"`
	DaysLate int             `json:"days_late"`
}

// Repayment is one payment against a borrowing.
type Repayment struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	BorrowingID     string          `json:"borrowing_id"`
	Amount          float64         `json:"amount"`
	Date            string          `json:"date"`
	StatusAtPayment BorrowingStatus `json:"status_at_payment"`
	ScoreDelta      int             `json:"score_delta"`
	CreatedAt       time.Time       `json:"created_at"`
}

// RepaymentResult is returned after recording a repayment.
type RepaymentResult struct {
	Repayment Repayment        `json:"repayment"`
	Borrowing BorrowingView    `json:"borrowing"`
	Contact   BorrowingContact `json:"contact"`
}

// BorrowingFilter narrows a borrowing listing.
type BorrowingFilter struct {
	ContactID string
	OpenOnly  bool
}

// BorrowingSummary aggregates outstanding balances for a tenant.
type BorrowingSummary struct {
	OutstandingLent     float64                 `json:"outstanding_lent"`
	OutstandingBorrowed float64                 `json:"outstanding_borrowed"`
	OpenCount           int                     `json:"open_count"`
	ByStatus            map[BorrowingStatus]int `json:"by_status"`
}

// Validate checks a new borrowing.
func (b *Borrowing) Validate() error {
	if b.ContactID == "" {
		return &ErrValidation{Field: "contact_id", Message: "required"}
	}
	if b.Type != Lent && b.Type != Borrowed {
		return &ErrValidation{Field: "type", Message: "must be 'lent' or 'borrowed'"}
	}
	if b.Amount <= 0 {
		return &ErrValidation{Field: "amount", Message: "must be positive"}
	}
	start, err := time.Parse(DateLayout, b.StartDate)
	if err != nil {
		return &ErrValidation{Field: "start_date", Message: "invalid format, use YYYY-MM-DD"}
	}
	due, err := time.Parse(DateLayout, b.DueDate)
	if err != nil {
		return &ErrValidation{Field: "due_date", Message: "invalid format, use YYYY-MM-DD"}
	}
	if due.Before(start) {
		return &ErrValidation{Field: "due_date", Message: "must not be before start_date"}
	}
	return nil
}

// Validate checks a contact.
func (c *BorrowingContact) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ErrValidation{Field: "name", Message: "required"}
	}
	return nil
}

// DaysLate returns whole calendar days between the due date and today.
// Negative when the due date is still ahead.
func DaysLate(dueDate string, today time.Time) int {
	due, err := time.Parse(DateLayout, dueDate)
	if err != nil {
		return 0
	}
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(due).Hours() / 24)
}

// StatusForDaysLate maps lateness to a status for an open borrowing.
func StatusForDaysLate(daysLate int) BorrowingStatus {
	switch {
	case daysLate > 180:
		return StatusWrittenOff
	case daysLate > 90:
		return StatusNPA
	case daysLate > 30:
		return StatusSubStandard
	case daysLate > 0:
		return StatusOverdue
	default:
		return StatusActive
	}
}

// Status derives the borrowing status as of today.
func (b *Borrowing) Status(today time.Time) BorrowingStatus {
	if b.IsClosed {
		return StatusSettled
	}
	return StatusForDaysLate(DaysLate(b.DueDate, today))
}

// View attaches derived fields as of today.
func (b *Borrowing) View(today time.Time) BorrowingView {
	days := DaysLate(b.DueDate, today)
	if days < 0 || b.IsClosed {
		days = 0
	}
	return BorrowingView{Borrowing: *b, Status: b.Status(today), DaysLate: days}
}

// ScoreDelta is the credit score adjustment for a repayment made while the
// borrowing was in status.
func ScoreDelta(status BorrowingStatus) int {
	switch status {
	case StatusActive:
		return 10
	case StatusOverdue:
		return -10
	case StatusSubStandard:
		return -30
	case StatusNPA:
		return -100
	case StatusWrittenOff:
		return -200
	default:
		return 5
	}
}

// ClampScore bounds a credit score to [MinCreditScore, MaxCreditScore].
func ClampScore(score int) int {
	if score < MinCreditScore {
		return MinCreditScore
	}
	if score > MaxCreditScore {
		return MaxCreditScore
	}
	return score
}

// ApplyRepayment reduces the balance and closes the borrowing when it reaches
// zero. It returns the status the borrowing had when the payment arrived.
func (b *Borrowing) ApplyRepayment(amount float64, paidOn time.Time) (BorrowingStatus, error) {
	if amount <= 0 {
		return "", &ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if b.IsClosed {
		return "", &ErrConflict{Message: "borrowing " + b.ID + " is already settled"}
	}
	if Round2(amount) > Round2(b.Balance) {
		return "", &ErrInsufficientBalance{Available: b.Balance, Required: amount}
	}
	status := b.Status(paidOn)
	b.Balance = SubRound2(b.Balance, amount)
	if b.Balance <= 0 {
		b.Balance = 0
		b.IsClosed = true
	}
	return status, nil
}
