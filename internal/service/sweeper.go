package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/observability"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/resilience"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var sweepTracer = otel.Tracer("service/sweeper")

// SweepStore is what one sweep reads.
type SweepStore interface {
	port.TenantStore
	port.ReminderStore
	port.BorrowingStore
}

// SweepResult counts what one sweep found across all tenants.
type SweepResult struct {
	Tenants          int `json:"tenants"`
	RemindersDue     int `json:"reminders_due"`
	OverdueBorrowing int `json:"overdue_borrowings"`
	Failed           int `json:"failed_tenants"`
}

// Sweeper scans every tenant for reminders coming due and borrowings past
// their due date and announces them as events.
type Sweeper struct {
	store     SweepStore
	events    emitter
	bulkhead  *resilience.Bulkhead
	lookahead int
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func NewSweeper(store SweepStore, publisher port.EventPublisher, bulkhead *resilience.Bulkhead, lookaheadDays int, metrics *observability.Metrics, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:     store,
		events:    emitter{publisher: publisher, metrics: metrics, logger: logger, now: time.Now},
		bulkhead:  bulkhead,
		lookahead: lookaheadDays,
		metrics:   metrics,
		logger:    logger,
	}
}

// Sweep processes all tenants as of now. A failing tenant is logged and
// counted; it does not stop the others.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	ctx, span := sweepTracer.Start(ctx, "Sweeper.Sweep")
	defer span.End()

	tenants, err := s.store.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	results := make([]SweepResult, len(tenants))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.bulkhead.Size())
	for i := range tenants {
		i, tenantID := i, tenants[i].ID
		g.Go(func() error {
			if err := s.bulkhead.Acquire(gCtx); err != nil {
				return err
			}
			defer s.bulkhead.Release()

			r, err := s.sweepTenant(gCtx, tenantID, day)
			if err != nil {
				s.logger.Error("sweep failed for tenant", zap.String("tenant_id", tenantID), zap.Error(err))
				results[i].Failed = 1
				return nil
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := &SweepResult{Tenants: len(tenants)}
	for _, r := range results {
		total.RemindersDue += r.RemindersDue
		total.OverdueBorrowing += r.OverdueBorrowing
		total.Failed += r.Failed
	}
	s.metrics.AddRemindersDue(total.RemindersDue)
	return total, nil
}

func (s *Sweeper) sweepTenant(ctx context.Context, tenantID string, day time.Time) (SweepResult, error) {
	var r SweepResult

	reminders, err := s.store.ListReminders(ctx, tenantID)
	if err != nil {
		return r, fmt.Errorf("reminders: %w", err)
	}
	for _, inst := range Upcoming(reminders, day, s.lookahead) {
		if inst.Completed {
			continue
		}
		r.RemindersDue++
		s.logger.Info("reminder due",
			zap.String("tenant_id", tenantID),
			zap.String("reminder_id", inst.ReminderID),
			zap.String("title", inst.Title),
			zap.String("due_date", inst.DueDate),
			zap.Bool("overdue", inst.Overdue),
		)
		s.events.emit(ctx, domain.EventReminderDue, tenantID, inst)
	}

	open, err := s.store.ListBorrowings(ctx, tenantID, domain.BorrowingFilter{OpenOnly: true})
	if err != nil {
		return r, fmt.Errorf("borrowings: %w", err)
	}
	for i := range open {
		v := open[i].View(day)
		if v.Status == domain.StatusActive {
			continue
		}
		r.OverdueBorrowing++
		s.events.emit(ctx, domain.EventBorrowingOverdue, tenantID, map[string]any{
			"borrowing_id": v.ID,
			"contact_id":   v.ContactID,
			"type":         v.Type,
			"balance":      v.Balance,
			"status":       v.Status,
			"days_late":    v.DaysLate,
		})
	}
	return r, nil
}
