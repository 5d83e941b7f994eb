package domain_test

import (
	"testing"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.1 + 0.2, 0.3},
		{2.675, 2.68},
		{-1.005, -1.01},
		{1800, 1800},
	}
	for _, tt := range tests {
		if got := domain.Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSumAndSub(t *testing.T) {
	if got := domain.SumRound2(0.1, 0.2, 0.3); got != 0.6 {
		t.Errorf("expected 0.6, got %v", got)
	}
	if got := domain.SubRound2(1000, 1450); got != -450 {
		t.Errorf("expected -450, got %v", got)
	}
	if got := domain.SumRound2(); got != 0 {
		t.Errorf("expected 0 for no amounts, got %v", got)
	}
}

func TestParseAmount(t *testing.T) {
	got, err := domain.ParseAmount("₹1,250.50")
	if err != nil || got != 1250.5 {
		t.Errorf("expected 1250.5, got %v (%v)", got, err)
	}
	if _, err := domain.ParseAmount("abc"); err == nil {
		t.Error("expected error for no digits")
	}
	if _, err := domain.ParseAmount("1.2.3"); err == nil {
		t.Error("expected error for malformed amount")
	}
}
