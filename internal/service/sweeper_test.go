package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/memory"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/observability"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/resilience"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"go.uber.org/zap"
)

func TestSweep(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for _, id := range []string{tenant, "tenant-2"} {
		if err := store.CreateTenant(ctx, &domain.Tenant{ID: id, Name: id}); err != nil {
			t.Fatalf("tenant: %v", err)
		}
	}

	reminders := newReminderService(store, "2024-03-01")
	mustCreateReminder(t, reminders, domain.Reminder{
		Title: "Rent", StartDate: "2024-01-05",
		Rule: domain.RecurrenceRule{Frequency: domain.Monthly, DayOfMonth: 5},
	})
	water := mustCreateReminder(t, reminders, domain.Reminder{
		Title: "Water", StartDate: "2024-01-03",
		Rule: domain.RecurrenceRule{Frequency: domain.Monthly, DayOfMonth: 3},
	})
	if _, err := reminders.CompleteInstance(ctx, tenant, water.ID, "2024-03-03", ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	mustCreateReminder(t, reminders, domain.Reminder{
		Title: "Far away", StartDate: "2024-01-25",
		Rule: domain.RecurrenceRule{Frequency: domain.Monthly, DayOfMonth: 25},
	})

	borrowings := newBorrowingService(store, &mockPublisher{}, observability.NewMetrics(), "2024-03-01")
	createLoan(t, borrowings, 500, "2024-02-01")

	pub := &mockPublisher{}
	metrics := observability.NewMetrics()
	sweeper := service.NewSweeper(store, pub, resilience.NewBulkhead(2), 7, metrics, zap.NewNop())

	res, err := sweeper.Sweep(ctx, time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Tenants != 2 || res.RemindersDue != 1 || res.OverdueBorrowing != 1 || res.Failed != 0 {
		t.Errorf("unexpected result: %+v", res)
	}

	due := pub.ofType(domain.EventReminderDue)
	if len(due) != 1 || due[0].TenantID != tenant {
		t.Fatalf("expected one reminder.due event, got %+v", due)
	}
	if inst, ok := due[0].Payload.(domain.ReminderInstance); !ok || inst.Title != "Rent" || inst.DueDate != "2024-03-05" {
		t.Errorf("unexpected payload: %+v", due[0].Payload)
	}
	if got := len(pub.ofType(domain.EventBorrowingOverdue)); got != 1 {
		t.Errorf("expected one borrowing.overdue event, got %d", got)
	}
	if metrics.Snapshot().RemindersDue != 1 {
		t.Errorf("expected reminders due counter 1, got %v", metrics.Snapshot().RemindersDue)
	}
}
