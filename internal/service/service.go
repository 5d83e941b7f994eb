// Package service provides the business logic layer (use cases).
// Each service owns one aggregate and receives its ports explicitly; every
// call is scoped to a tenant id supplied by the caller.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/observability"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

// today truncates now to a UTC calendar date.
func today(now Clock) time.Time {
	t := now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func newID() string { return uuid.NewString() }

func isNotFound(err error) bool {
	var nf *domain.ErrNotFound
	return errors.As(err, &nf)
}

func isConflict(err error) bool {
	var c *domain.ErrConflict
	return errors.As(err, &c)
}

// trackExternal counts failures of backing services.
func trackExternal(metrics *observability.Metrics, err error) {
	var ext *domain.ErrExternalService
	if errors.As(err, &ext) {
		metrics.IncrExternalError(ext.Service)
	}
}

// emitter publishes domain events on a best-effort basis: a broker failure
// is logged and counted but never fails the operation that raised the event.
type emitter struct {
	publisher port.EventPublisher
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       Clock
}

func (e emitter) emit(ctx context.Context, eventType domain.EventType, tenantID string, payload any) {
	if e.publisher == nil {
		return
	}
	ev := domain.Event{
		ID:         newID(),
		Type:       eventType,
		TenantID:   tenantID,
		OccurredAt: e.now().UTC(),
		Payload:    payload,
	}
	err := e.publisher.Publish(ctx, ev)
	e.metrics.IncrEventPublished(string(eventType), err == nil)
	if err != nil {
		e.logger.Warn("event publish failed",
			zap.String("tenant_id", tenantID),
			zap.String("type", string(eventType)),
			zap.Error(err),
		)
	}
}

// checkMonthOpen returns ErrMonthLocked when month-end already closed the month.
func checkMonthOpen(ctx context.Context, locks port.LedgerStore, tenantID string, year, month int) error {
	_, err := locks.GetMonthLock(ctx, tenantID, year, month)
	switch {
	case err == nil:
		return &domain.ErrMonthLocked{Year: year, Month: month}
	case isNotFound(err):
		return nil
	default:
		return err
	}
}
