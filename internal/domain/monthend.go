package domain

import (
	"fmt"
	"sort"
)

// MonthEndResult is the outcome for one budgeted category.
type MonthEndResult struct {
	CategoryID   string                 `json:"category_id"`
	CategoryName string                 `json:"category_name"`
	Budget       float64                `json:"budget"`
	Spent        float64                `json:"spent"`
	Surplus      float64                `json:"surplus"`
	Type         AccountTransactionType `json:"type"`
	Amount       float64                `json:"amount"`
	AccountID    string                 `json:"account_id,omitempty"`
	Skipped      bool                   `json:"skipped,omitempty"` // already posted by an earlier run
}

// MonthEndReport summarises a month-end run.
type MonthEndReport struct {
	TenantID            string           `json:"tenant_id"`
	Year                int              `json:"year"`
	Month               int              `json:"month"`
	Results             []MonthEndResult `json:"results"`
	TotalSurplus        float64          `json:"total_surplus"`
	AccountsCreated     int              `json:"accounts_created"`
	TransactionsCreated int              `json:"transactions_created"`
	Locked              bool             `json:"locked"`
	ProcessedBy         string           `json:"processed_by,omitempty"`
}

// ComputeMonthEnd evaluates the month-end rule without side effects: for each
// category with a positive budget for the month, surplus = round2(budget - spent)
// where spent sums the month's transactions matching the category by name.
// Results are ordered by category name.
func ComputeMonthEnd(year, month int, categories []Category, transactions []Transaction) []MonthEndResult {
	key := MonthKey(year, month)

	spentByName := make(map[string][]float64)
	for i := range transactions {
		t := &transactions[i]
		if !t.InMonth(year, month) {
			continue
		}
		spentByName[t.Category] = append(spentByName[t.Category], t.Amount)
	}

	results := make([]MonthEndResult, 0, len(categories))
	for i := range categories {
		c := &categories[i]
		budget, _ := c.BudgetForMonth(key)
		if budget <= 0 {
			continue
		}
		spent := SumRound2(spentByName[c.Name]...)
		surplus := SubRound2(budget, spent)

		r := MonthEndResult{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			Budget:       budget,
			Spent:        spent,
			Surplus:      surplus,
		}
		switch {
		case surplus > 0:
			r.Type, r.Amount = SurplusTransfer, surplus
		case surplus < 0:
			r.Type, r.Amount = OverspendDeficit, surplus
		default:
			r.Type, r.Amount = ZeroBalance, 0
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].CategoryName < results[j].CategoryName })
	return results
}

// TotalSurplus adds the surplus of every result.
func TotalSurplus(results []MonthEndResult) float64 {
	amounts := make([]float64, len(results))
	for i, r := range results {
		amounts[i] = r.Surplus
	}
	return SumRound2(amounts...)
}

// Description renders the ledger description for a month-end posting.
func (r MonthEndResult) Description(year, month int) string {
	switch r.Type {
	case SurplusTransfer:
		return fmt.Sprintf("Surplus for %s %s: budget %.2f, spent %.2f", r.CategoryName, MonthKey(year, month), r.Budget, r.Spent)
	case OverspendDeficit:
		return fmt.Sprintf("Overspend for %s %s: budget %.2f, spent %.2f", r.CategoryName, MonthKey(year, month), r.Budget, r.Spent)
	default:
		return fmt.Sprintf("Budget fully used for %s %s", r.CategoryName, MonthKey(year, month))
	}
}
