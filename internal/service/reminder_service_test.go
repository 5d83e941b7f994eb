package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/memory"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"go.uber.org/zap"
)

func newReminderService(store *memory.Store, today string) *service.ReminderService {
	return service.NewReminderService(store, store, zap.NewNop()).WithClock(fixedClock(today))
}

func mustCreateReminder(t *testing.T, svc *service.ReminderService, r domain.Reminder) *domain.Reminder {
	t.Helper()
	created, err := svc.CreateReminder(context.Background(), tenant, &r)
	if err != nil {
		t.Fatalf("create reminder %q: %v", r.Title, err)
	}
	return created
}

func TestMonthInstances_ExpandsAndSorts(t *testing.T) {
	svc := newReminderService(memory.New(), "2024-02-10")
	friday := time.Friday

	mustCreateReminder(t, svc, domain.Reminder{
		Title: "Rent", Amount: 15000, StartDate: "2024-01-31",
		Rule: domain.RecurrenceRule{Frequency: domain.Monthly, DayOfMonth: 31},
	})
	mustCreateReminder(t, svc, domain.Reminder{
		Title: "Team lunch", StartDate: "2024-01-01",
		Rule: domain.RecurrenceRule{Frequency: domain.Monthly, Weekday: &friday, WeekOfMonth: domain.LastWeek},
	})
	mustCreateReminder(t, svc, domain.Reminder{
		Title: "Insurance", StartDate: "2024-01-05",
		Rule: domain.RecurrenceRule{Frequency: domain.Quarterly, DayOfMonth: 5},
	})
	mustCreateReminder(t, svc, domain.Reminder{
		Title: "Car service", StartDate: "2024-02-03",
		Rule: domain.RecurrenceRule{Frequency: domain.OneTime},
	})

	got, err := svc.MonthInstances(context.Background(), tenant, 2024, 2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []struct {
		title, due string
		overdue    bool
	}{
		{"Car service", "2024-02-03", true},
		{"Team lunch", "2024-02-23", false},
		{"Rent", "2024-02-29", false},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d instances, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Title != w.title || got[i].DueDate != w.due || got[i].Overdue != w.overdue {
			t.Errorf("instance %d: expected %s on %s (overdue=%v), got %+v", i, w.title, w.due, w.overdue, got[i])
		}
	}
}

func TestCompleteInstance(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newReminderService(store, "2024-02-10")
	r := mustCreateReminder(t, svc, domain.Reminder{
		Title: "Rent", StartDate: "2024-01-01",
		Rule: domain.RecurrenceRule{Frequency: domain.Monthly, DayOfMonth: 1},
	})
	if err := store.CreateTransactions(ctx, []domain.Transaction{
		{ID: "tx-rent", TenantID: tenant, Date: "2024-02-01", Amount: 15000, Category: "Housing"},
	}); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	inst, err := svc.CompleteInstance(ctx, tenant, r.ID, "2024-02-01", "tx-rent")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !inst.Completed || inst.TransactionID != "tx-rent" || inst.Overdue {
		t.Errorf("unexpected instance: %+v", inst)
	}

	var ve *domain.ErrValidation
	if _, err := svc.CompleteInstance(ctx, tenant, r.ID, "2024-02-02", ""); !errors.As(err, &ve) {
		t.Errorf("non-instance date: expected ErrValidation, got %v", err)
	}
	if _, err := svc.CompleteInstance(ctx, tenant, r.ID, "2024-03-01", "tx-missing"); !errors.As(err, &ve) {
		t.Errorf("unknown transaction: expected ErrValidation, got %v", err)
	}

	march, _ := svc.MonthInstances(ctx, tenant, 2024, 3)
	if len(march) != 1 || march[0].Completed {
		t.Errorf("expected march to be open, got %+v", march)
	}

	inst, err = svc.UncompleteInstance(ctx, tenant, r.ID, "2024-02-01")
	if err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	if inst.Completed || !inst.Overdue {
		t.Errorf("expected open overdue instance, got %+v", inst)
	}

	var nf *domain.ErrNotFound
	if _, err := svc.UncompleteInstance(ctx, tenant, r.ID, "2024-02-01"); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound on second uncomplete, got %v", err)
	}
}

func TestUpdateReminder_KeepsCompletions(t *testing.T) {
	ctx := context.Background()
	svc := newReminderService(memory.New(), "2024-02-10")
	r := mustCreateReminder(t, svc, domain.Reminder{
		Title: "Gym", StartDate: "2024-01-10",
		Rule: domain.RecurrenceRule{Frequency: domain.Monthly, DayOfMonth: 10},
	})
	if _, err := svc.CompleteInstance(ctx, tenant, r.ID, "2024-01-10", ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	updated, err := svc.UpdateReminder(ctx, tenant, r.ID, &domain.ReminderUpdate{
		Title: "Gym membership", Amount: 1200, StartDate: "2024-01-10",
		Rule: domain.RecurrenceRule{Frequency: domain.Monthly, DayOfMonth: 10},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := updated.CompletedInstances["2024-01-10"]; !ok {
		t.Error("expected completion to survive the update")
	}
	if !updated.Active {
		t.Error("expected an update without active to keep the reminder active")
	}

	_, err = svc.UpdateReminder(ctx, tenant, r.ID, &domain.ReminderUpdate{
		Title: "Gym", StartDate: "2024-01-10",
		Rule: domain.RecurrenceRule{Frequency: domain.Monthly, DayOfMonth: 32},
	})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Errorf("expected ErrValidation for day 32, got %v", err)
	}
}

func TestUpcomingInstances(t *testing.T) {
	ctx := context.Background()
	svc := newReminderService(memory.New(), "2024-01-28")
	mustCreateReminder(t, svc, domain.Reminder{
		Title: "Electricity", StartDate: "2023-12-02",
		Rule: domain.RecurrenceRule{Frequency: domain.Monthly, DayOfMonth: 2},
	})
	mustCreateReminder(t, svc, domain.Reminder{
		Title: "Paused", StartDate: "2023-12-02",
		Rule: domain.RecurrenceRule{Frequency: domain.Monthly, DayOfMonth: 30},
	})
	paused, _ := svc.ListReminders(ctx, tenant)
	for _, r := range paused {
		if r.Title == "Paused" {
			inactive := false
			update := domain.ReminderUpdate{Title: r.Title, Rule: r.Rule, StartDate: r.StartDate, Active: &inactive}
			if _, err := svc.UpdateReminder(ctx, tenant, r.ID, &update); err != nil {
				t.Fatalf("pause: %v", err)
			}
		}
	}

	got, err := svc.UpcomingInstances(ctx, tenant, 7)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 1 || got[0].DueDate != "2024-02-02" {
		t.Errorf("expected electricity on 2024-02-02, got %+v", got)
	}

	var ve *domain.ErrValidation
	if _, err := svc.UpcomingInstances(ctx, tenant, -1); !errors.As(err, &ve) {
		t.Errorf("expected ErrValidation for negative days, got %v", err)
	}
}
