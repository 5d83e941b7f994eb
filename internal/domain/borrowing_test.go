package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestStatusForDaysLate(t *testing.T) {
	tests := []struct {
		days int
		want domain.BorrowingStatus
	}{
		{-5, domain.StatusActive},
		{0, domain.StatusActive},
		{1, domain.StatusOverdue},
		{30, domain.StatusOverdue},
		{31, domain.StatusSubStandard},
		{90, domain.StatusSubStandard},
		{91, domain.StatusNPA},
		{180, domain.StatusNPA},
		{181, domain.StatusWrittenOff},
	}
	for _, tt := range tests {
		if got := domain.StatusForDaysLate(tt.days); got != tt.want {
			t.Errorf("StatusForDaysLate(%d) = %s, want %s", tt.days, got, tt.want)
		}
	}
}

func TestBorrowingStatus_ClosedIsSettled(t *testing.T) {
	b := domain.Borrowing{DueDate: "2020-01-01", IsClosed: true}
	if got := b.Status(day("2024-01-01")); got != domain.StatusSettled {
		t.Errorf("expected Settled, got %s", got)
	}
	if v := b.View(day("2024-01-01")); v.DaysLate != 0 {
		t.Errorf("expected no lateness on a settled view, got %d", v.DaysLate)
	}
}

func TestDaysLate(t *testing.T) {
	if got := domain.DaysLate("2024-03-01", time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC)); got != 9 {
		t.Errorf("expected 9, got %d", got)
	}
	if got := domain.DaysLate("2024-03-10", day("2024-03-01")); got != -9 {
		t.Errorf("expected -9, got %d", got)
	}
}

func TestClampScore(t *testing.T) {
	for in, want := range map[int]int{250: 300, 300: 300, 610: 610, 900: 900, 950: 900} {
		if got := domain.ClampScore(in); got != want {
			t.Errorf("ClampScore(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestApplyRepayment(t *testing.T) {
	b := domain.Borrowing{ID: "b-1", Amount: 100, Balance: 100, DueDate: "2024-03-01"}

	status, err := b.ApplyRepayment(40.5, day("2024-03-05"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status != domain.StatusOverdue || b.Balance != 59.5 || b.IsClosed {
		t.Errorf("unexpected state: status=%s %+v", status, b)
	}

	var insufficient *domain.ErrInsufficientBalance
	if _, err := b.ApplyRepayment(60, day("2024-03-05")); !errors.As(err, &insufficient) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}

	if _, err := b.ApplyRepayment(59.5, day("2024-03-05")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !b.IsClosed || b.Balance != 0 {
		t.Errorf("expected settled borrowing, got %+v", b)
	}

	var conflict *domain.ErrConflict
	if _, err := b.ApplyRepayment(1, day("2024-03-05")); !errors.As(err, &conflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestBorrowingValidate(t *testing.T) {
	base := domain.Borrowing{ContactID: "c-1", Type: domain.Lent, Amount: 10, StartDate: "2024-03-01", DueDate: "2024-04-01"}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	tests := []struct {
		name  string
		edit  func(b *domain.Borrowing)
		field string
	}{
		{"no contact", func(b *domain.Borrowing) { b.ContactID = "" }, "contact_id"},
		{"bad type", func(b *domain.Borrowing) { b.Type = "gift" }, "type"},
		{"zero amount", func(b *domain.Borrowing) { b.Amount = 0 }, "amount"},
		{"due before start", func(b *domain.Borrowing) { b.DueDate = "2024-02-01" }, "due_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := base
			tt.edit(&b)
			var ve *domain.ErrValidation
			if err := b.Validate(); !errors.As(err, &ve) || ve.Field != tt.field {
				t.Errorf("expected validation on %s, got %v", tt.field, err)
			}
		})
	}
}
