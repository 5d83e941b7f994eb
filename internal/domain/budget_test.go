package domain_test

import (
	"errors"
	"testing"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
)

func TestBudgetForMonth(t *testing.T) {
	c := domain.Category{Budgets: map[string]float64{"2024-01": 1000, "2024-03": 5000}}

	tests := []struct {
		month    string
		want     float64
		wantFrom string
	}{
		{"2024-01", 1000, "2024-01"},
		{"2024-02", 1000, "2024-01"},
		{"2024-03", 5000, "2024-03"},
		{"2025-06", 5000, "2024-03"},
		{"2023-12", 0, ""},
	}
	for _, tt := range tests {
		got, from := c.BudgetForMonth(tt.month)
		if got != tt.want || from != tt.wantFrom {
			t.Errorf("BudgetForMonth(%s) = %v from %q, want %v from %q", tt.month, got, from, tt.want, tt.wantFrom)
		}
	}
}

func TestSetBudgetRoundsAndSorts(t *testing.T) {
	var c domain.Category
	c.SetBudget("2024-05", 10.005)
	c.SetBudget("2023-11", 1)

	if c.Budgets["2024-05"] != 10.01 {
		t.Errorf("expected 10.01, got %v", c.Budgets["2024-05"])
	}
	months := c.BudgetMonths()
	if len(months) != 2 || months[0] != "2023-11" {
		t.Errorf("expected sorted months, got %v", months)
	}
}

func TestCategoryValidate(t *testing.T) {
	c := domain.Category{
		Name:          "Food",
		Subcategories: []domain.Subcategory{{Name: "Dining"}, {Name: "dining"}},
	}
	var ve *domain.ErrValidation
	if err := c.Validate(); !errors.As(err, &ve) || ve.Field != "subcategories[1].name" {
		t.Errorf("expected duplicate subcategory error, got %v", err)
	}

	c.Subcategories = nil
	c.Budgets = map[string]float64{"2024-13": 10}
	if err := c.Validate(); !errors.As(err, &ve) {
		t.Errorf("expected bad month key error, got %v", err)
	}
}
