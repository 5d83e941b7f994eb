package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var reminderTracer = otel.Tracer("service/reminder")

// MaxUpcomingDays bounds the window UpcomingInstances accepts.
const MaxUpcomingDays = 366

// ReminderService manages recurring reminders and their per-instance
// completion state.
type ReminderService struct {
	store  port.ReminderStore
	txs    port.TransactionStore
	logger *zap.Logger
	now    Clock
}

// NewReminderService wires the service. txs may be nil; when set, completing
// an instance with a transaction id checks that the transaction exists.
func NewReminderService(store port.ReminderStore, txs port.TransactionStore, logger *zap.Logger) *ReminderService {
	return &ReminderService{store: store, txs: txs, logger: logger, now: time.Now}
}

func (s *ReminderService) WithClock(now Clock) *ReminderService {
	s.now = now
	return s
}

func (s *ReminderService) CreateReminder(ctx context.Context, tenantID string, in *domain.Reminder) (*domain.Reminder, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.CreateReminder")
	defer span.End()

	now := s.now().UTC()
	r := &domain.Reminder{
		ID:                 newID(),
		TenantID:           tenantID,
		Title:              strings.TrimSpace(in.Title),
		Amount:             domain.Round2(in.Amount),
		Category:           strings.TrimSpace(in.Category),
		Rule:               in.Rule,
		StartDate:          strings.TrimSpace(in.StartDate),
		EndDate:            strings.TrimSpace(in.EndDate),
		Active:             true,
		CompletedInstances: map[string]string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if r.StartDate == "" {
		r.StartDate = today(s.now).Format(domain.DateLayout)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateReminder(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info("reminder created",
		zap.String("tenant_id", tenantID),
		zap.String("reminder_id", r.ID),
		zap.String("frequency", string(r.Rule.Frequency)),
	)
	return r, nil
}

func (s *ReminderService) GetReminder(ctx context.Context, tenantID, reminderID string) (*domain.Reminder, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.GetReminder")
	defer span.End()

	return s.store.GetReminder(ctx, tenantID, reminderID)
}

func (s *ReminderService) ListReminders(ctx context.Context, tenantID string) ([]domain.Reminder, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.ListReminders")
	defer span.End()

	return s.store.ListReminders(ctx, tenantID)
}

// UpdateReminder replaces the editable fields and keeps the completion map.
// Active changes only when the update sets it.
func (s *ReminderService) UpdateReminder(ctx context.Context, tenantID, reminderID string, in *domain.ReminderUpdate) (*domain.Reminder, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.UpdateReminder")
	defer span.End()

	r, err := s.store.GetReminder(ctx, tenantID, reminderID)
	if err != nil {
		return nil, err
	}
	r.Title = strings.TrimSpace(in.Title)
	r.Amount = domain.Round2(in.Amount)
	r.Category = strings.TrimSpace(in.Category)
	r.Rule = in.Rule
	r.StartDate = strings.TrimSpace(in.StartDate)
	r.EndDate = strings.TrimSpace(in.EndDate)
	if in.Active != nil {
		r.Active = *in.Active
	}
	r.UpdatedAt = s.now().UTC()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateReminder(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReminderService) DeleteReminder(ctx context.Context, tenantID, reminderID string) error {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.DeleteReminder")
	defer span.End()

	return s.store.DeleteReminder(ctx, tenantID, reminderID)
}

// MonthInstances expands every active reminder into its due date for the
// month, ordered by due date then title.
func (s *ReminderService) MonthInstances(ctx context.Context, tenantID string, year, month int) ([]domain.ReminderInstance, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.MonthInstances")
	defer span.End()
	span.SetAttributes(attribute.String("month", domain.MonthKey(year, month)))

	if err := domain.ValidateYearMonth(year, month); err != nil {
		return nil, err
	}
	reminders, err := s.store.ListReminders(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	t := today(s.now)
	out := make([]domain.ReminderInstance, 0, len(reminders))
	for i := range reminders {
		r := &reminders[i]
		if !r.Active {
			continue
		}
		for _, due := range r.InstancesForMonth(year, month) {
			out = append(out, r.Instance(due, t))
		}
	}
	sortInstances(out)
	return out, nil
}

// UpcomingInstances returns instances due from today through today+days,
// completed ones included.
func (s *ReminderService) UpcomingInstances(ctx context.Context, tenantID string, days int) ([]domain.ReminderInstance, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.UpcomingInstances")
	defer span.End()

	if days < 0 || days > MaxUpcomingDays {
		return nil, &domain.ErrValidation{Field: "days", Message: "must be between 0 and 366"}
	}
	reminders, err := s.store.ListReminders(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return Upcoming(reminders, today(s.now), days), nil
}

// Upcoming expands reminders into the instances whose due date lies in
// [from, from+days].
func Upcoming(reminders []domain.Reminder, from time.Time, days int) []domain.ReminderInstance {
	until := from.AddDate(0, 0, days)
	out := make([]domain.ReminderInstance, 0)
	for i := range reminders {
		r := &reminders[i]
		if !r.Active {
			continue
		}
		for m := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(until); m = m.AddDate(0, 1, 0) {
			for _, due := range r.InstancesForMonth(m.Year(), int(m.Month())) {
				if due.Before(from) || due.After(until) {
					continue
				}
				out = append(out, r.Instance(due, from))
			}
		}
	}
	sortInstances(out)
	return out
}

// CompleteInstance marks one due date as done, optionally linking the
// transaction that paid it. The date must be a real instance of the reminder.
func (s *ReminderService) CompleteInstance(ctx context.Context, tenantID, reminderID, dueDate, transactionID string) (*domain.ReminderInstance, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.CompleteInstance")
	defer span.End()

	r, due, err := s.loadInstance(ctx, tenantID, reminderID, dueDate)
	if err != nil {
		return nil, err
	}
	if transactionID != "" && s.txs != nil {
		if _, err := s.txs.GetTransaction(ctx, tenantID, transactionID); err != nil {
			if isNotFound(err) {
				return nil, &domain.ErrValidation{Field: "transaction_id", Message: "unknown transaction " + transactionID}
			}
			return nil, err
		}
	}

	if r.CompletedInstances == nil {
		r.CompletedInstances = map[string]string{}
	}
	r.CompletedInstances[dueDate] = transactionID
	r.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateReminder(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("reminder instance completed",
		zap.String("tenant_id", tenantID),
		zap.String("reminder_id", reminderID),
		zap.String("due_date", dueDate),
		zap.String("transaction_id", transactionID),
	)
	inst := r.Instance(due, today(s.now))
	return &inst, nil
}

// UncompleteInstance clears the completion of one due date.
func (s *ReminderService) UncompleteInstance(ctx context.Context, tenantID, reminderID, dueDate string) (*domain.ReminderInstance, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.UncompleteInstance")
	defer span.End()

	r, due, err := s.loadInstance(ctx, tenantID, reminderID, dueDate)
	if err != nil {
		return nil, err
	}
	if _, ok := r.CompletedInstances[dueDate]; !ok {
		return nil, &domain.ErrNotFound{Resource: "completed instance", ID: reminderID + "@" + dueDate}
	}
	delete(r.CompletedInstances, dueDate)
	r.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateReminder(ctx, r); err != nil {
		return nil, err
	}
	inst := r.Instance(due, today(s.now))
	return &inst, nil
}

func (s *ReminderService) loadInstance(ctx context.Context, tenantID, reminderID, dueDate string) (*domain.Reminder, time.Time, error) {
	due, err := time.Parse(domain.DateLayout, dueDate)
	if err != nil {
		return nil, time.Time{}, &domain.ErrValidation{Field: "due_date", Message: "invalid format, use YYYY-MM-DD"}
	}
	r, err := s.store.GetReminder(ctx, tenantID, reminderID)
	if err != nil {
		return nil, time.Time{}, err
	}
	for _, d := range r.InstancesForMonth(due.Year(), int(due.Month())) {
		if d.Equal(due) {
			return r, due, nil
		}
	}
	return nil, time.Time{}, &domain.ErrValidation{Field: "due_date", Message: dueDate + " is not a due date of this reminder"}
}

func sortInstances(in []domain.ReminderInstance) {
	sort.Slice(in, func(i, j int) bool {
		if in[i].DueDate != in[j].DueDate {
			return in[i].DueDate < in[j].DueDate
		}
		return in[i].Title < in[j].Title
	})
}
