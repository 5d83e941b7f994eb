package supabase

import (
	"context"
	"fmt"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
)

// ============================================================
// Reminders (rule and completed_instances are jsonb columns)
// ============================================================

func (c *Client) CreateReminder(ctx context.Context, r *domain.Reminder) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateReminder")
	defer span.End()

	return c.insert(ctx, "reminders", "reminders", r, "reminder already exists: "+r.ID)
}

func (c *Client) GetReminder(ctx context.Context, tenantID, reminderID string) (*domain.Reminder, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetReminder")
	defer span.End()

	path := fmt.Sprintf("reminders?tenant_id=%s&id=%s", eq(tenantID), eq(reminderID))
	r, err := selectOne[domain.Reminder](ctx, c, "reminders", path, "reminder", reminderID)
	if err != nil {
		return nil, err
	}
	if r.CompletedInstances == nil {
		r.CompletedInstances = map[string]string{}
	}
	return r, nil
}

func (c *Client) ListReminders(ctx context.Context, tenantID string) ([]domain.Reminder, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListReminders")
	defer span.End()

	rows, err := selectRows[domain.Reminder](ctx, c, "reminders", "reminders?tenant_id="+eq(tenantID)+"&order=title.asc,id.asc")
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].CompletedInstances == nil {
			rows[i].CompletedInstances = map[string]string{}
		}
	}
	return rows, nil
}

func (c *Client) UpdateReminder(ctx context.Context, r *domain.Reminder) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateReminder")
	defer span.End()

	path := fmt.Sprintf("reminders?tenant_id=%s&id=%s", eq(r.TenantID), eq(r.ID))
	return c.update(ctx, "reminders", path, map[string]any{
		"title":               r.Title,
		"amount":              r.Amount,
		"category":            r.Category,
		"rule":                r.Rule,
		"start_date":          r.StartDate,
		"end_date":            r.EndDate,
		"active":              r.Active,
		"completed_instances": r.CompletedInstances,
		"updated_at":          r.UpdatedAt,
	}, "reminder", r.ID)
}

func (c *Client) DeleteReminder(ctx context.Context, tenantID, reminderID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteReminder")
	defer span.End()

	n, err := c.remove(ctx, "reminders", fmt.Sprintf("reminders?tenant_id=%s&id=%s", eq(tenantID), eq(reminderID)))
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "reminder", ID: reminderID}
	}
	return nil
}
