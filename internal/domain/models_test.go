package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
)

func TestTransactionValidate(t *testing.T) {
	base := func() domain.Transaction {
		return domain.Transaction{Date: "2024-03-10", Time: "09:30", Amount: 120, Category: "Food"}
	}

	tests := []struct {
		name      string
		mutate    func(*domain.Transaction)
		wantField string
	}{
		{"valid", func(*domain.Transaction) {}, ""},
		{"bad date", func(tx *domain.Transaction) { tx.Date = "10/03/2024" }, "date"},
		{"bad time", func(tx *domain.Transaction) { tx.Time = "9am" }, "time"},
		{"zero amount", func(tx *domain.Transaction) { tx.Amount = 0 }, "amount"},
		{"blank category", func(tx *domain.Transaction) { tx.Category = "  " }, "category"},
		{"200 ascii chars", func(tx *domain.Transaction) { tx.Description = strings.Repeat("a", 200) }, ""},
		{"201 ascii chars", func(tx *domain.Transaction) { tx.Description = strings.Repeat("a", 201) }, "description"},
		{"200 multibyte chars", func(tx *domain.Transaction) { tx.Description = strings.Repeat("₹", 200) }, ""},
		{"201 multibyte chars", func(tx *domain.Transaction) { tx.Description = strings.Repeat("₹", 201) }, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := base()
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var validation *domain.ErrValidation
			if !errors.As(err, &validation) || validation.Field != tt.wantField {
				t.Fatalf("expected validation error on %s, got %v", tt.wantField, err)
			}
		})
	}
}
