package domain_test

import (
	"testing"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
)

func TestComputeMonthEnd(t *testing.T) {
	categories := []domain.Category{
		{ID: "c-g", Name: "Groceries", Budgets: map[string]float64{"2024-03": 5000}},
		{ID: "c-d", Name: "Dining", Budgets: map[string]float64{"2024-03": 1000}},
		{ID: "c-f", Name: "Fuel", Budgets: map[string]float64{"2024-02": 100}},
		{ID: "c-m", Name: "Misc"},
	}
	transactions := []domain.Transaction{
		{Date: "2024-03-02", Amount: 2000, Category: "Groceries"},
		{Date: "2024-03-20", Amount: 1200, Category: "Groceries"},
		{Date: "2024-03-05", Amount: 1450, Category: "Dining"},
		{Date: "2024-03-06", Amount: 60.1, Category: "Fuel"},
		{Date: "2024-03-07", Amount: 39.9, Category: "Fuel"},
		{Date: "2024-03-08", Amount: 75, Category: "Misc"},
		{Date: "2024-04-01", Amount: 999, Category: "Groceries"},
	}

	results := domain.ComputeMonthEnd(2024, 3, categories, transactions)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %+v", results)
	}

	want := map[string]struct {
		typ    domain.AccountTransactionType
		amount float64
	}{
		"Dining":    {domain.OverspendDeficit, -450},
		"Fuel":      {domain.ZeroBalance, 0},
		"Groceries": {domain.SurplusTransfer, 1800},
	}
	for i, r := range results {
		w, ok := want[r.CategoryName]
		if !ok {
			t.Fatalf("unexpected category %s", r.CategoryName)
		}
		if r.Type != w.typ || r.Amount != w.amount {
			t.Errorf("%s: got %s %v, want %s %v", r.CategoryName, r.Type, r.Amount, w.typ, w.amount)
		}
		if i > 0 && results[i-1].CategoryName > r.CategoryName {
			t.Errorf("results not sorted by name")
		}
	}

	if got := domain.TotalSurplus(results); got != 1350 {
		t.Errorf("expected total 1350, got %v", got)
	}
}
