// Package domain defines the core business entities of expense-flow.
// These models are independent of the storage backend and represent the
// canonical data structures used throughout the API.
package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the wire/storage format of calendar dates.
const DateLayout = "2006-01-02"

// MonthKeyLayout is the format of budget map keys ("YYYY-MM").
const MonthKeyLayout = "2006-01"

// ============================================================
// Tenants
// ============================================================

// Tenant is a household or person owning an isolated set of data.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerName string    `json:"owner_name"`
	CreatedAt time.Time `json:"created_at"`
}

// ============================================================
// Categories
// ============================================================

// Category groups transactions and carries a per-month budget.
type Category struct {
	ID            string             `json:"id"`
	TenantID      string             `json:"tenant_id"`
	Name          string             `json:"name"`
	Icon          string             `json:"icon,omitempty"`
	Subcategories []Subcategory      `json:"subcategories"`
	Budgets       map[string]float64 `json:"budgets"` // "YYYY-MM" -> amount
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Subcategory is the second level of the category tree.
type Subcategory struct {
	Name            string   `json:"name"`
	Microcategories []string `json:"microcategories,omitempty"`
}

// Validate checks the category tree for empty or duplicate names.
func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ErrValidation{Field: "name", Message: "required"}
	}
	seen := make(map[string]bool, len(c.Subcategories))
	for i, sc := range c.Subcategories {
		name := strings.TrimSpace(sc.Name)
		if name == "" {
			return &ErrValidation{Field: fmt.Sprintf("subcategories[%d].name", i), Message: "required"}
		}
		if seen[strings.ToLower(name)] {
			return &ErrValidation{Field: fmt.Sprintf("subcategories[%d].name", i), Message: "duplicate subcategory " + name}
		}
		seen[strings.ToLower(name)] = true
	}
	for month, amount := range c.Budgets {
		if _, err := ParseMonthKey(month); err != nil {
			return err
		}
		if amount < 0 {
			return &ErrValidation{Field: "budgets." + month, Message: "must not be negative"}
		}
	}
	return nil
}

// ============================================================
// Transactions
// ============================================================

// Transaction is a single expense entry. Category names are denormalised
// strings, so the category name is the join key for aggregation.
type Transaction struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	Date          string    `json:"date"` // YYYY-MM-DD
	Time          string    `json:"time,omitempty"`
	Description   string    `json:"description"`
	Amount        float64   `json:"amount"`
	Category      string    `json:"category"`
	Subcategory   string    `json:"subcategory,omitempty"`
	Microcategory string    `json:"microcategory,omitempty"`
	PaidBy        string    `json:"paid_by,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks required fields of a transaction.
func (t *Transaction) Validate() error {
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return &ErrValidation{Field: "date", Message: "invalid format, use YYYY-MM-DD"}
	}
	if t.Time != "" {
		if _, err := time.Parse("15:04", t.Time); err != nil {
			return &ErrValidation{Field: "time", Message: "invalid format, use HH:MM"}
		}
	}
	if t.Amount <= 0 {
		return &ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if strings.TrimSpace(t.Category) == "" {
		return &ErrValidation{Field: "category", Message: "required"}
	}
	if utf8.RuneCountInString(t.Description) > 200 {
		return &ErrValidation{Field: "description", Message: "too long (max 200 characters)"}
	}
	return nil
}

// YearMonth returns the year and month the transaction is dated in.
func (t *Transaction) YearMonth() (int, int) {
	d, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return 0, 0
	}
	return d.Year(), int(d.Month())
}

// InMonth reports whether the transaction falls in the given year and month.
func (t *Transaction) InMonth(year, month int) bool {
	y, m := t.YearMonth()
	return y == year && m == month
}

// TransactionFilter narrows a transaction listing. Zero values mean "any".
type TransactionFilter struct {
	Year     int
	Month    int
	Category string
	PaidBy   string
}

// Matches reports whether t satisfies the filter.
func (f TransactionFilter) Matches(t *Transaction) bool {
	y, m := t.YearMonth()
	if f.Year != 0 && y != f.Year {
		return false
	}
	if f.Month != 0 && m != f.Month {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.PaidBy != "" && t.PaidBy != f.PaidBy {
		return false
	}
	return true
}

// ============================================================
// Month keys
// ============================================================

// MonthKey formats a year/month as a budget map key.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ParseMonthKey validates a "YYYY-MM" key.
func ParseMonthKey(key string) (time.Time, error) {
	t, err := time.Parse(MonthKeyLayout, key)
	if err != nil {
		return time.Time{}, &ErrValidation{Field: "month", Message: "invalid month key " + key + ", use YYYY-MM"}
	}
	return t, nil
}

// ValidateYearMonth checks the numeric year/month pair used in routes.
func ValidateYearMonth(year, month int) error {
	if year < 1970 || year > 9999 {
		return &ErrValidation{Field: "year", Message: "out of range"}
	}
	if month < 1 || month > 12 {
		return &ErrValidation{Field: "month", Message: "must be between 1 and 12"}
	}
	return nil
}
