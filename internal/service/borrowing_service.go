package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/observability"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var borrowingTracer = otel.Tracer("service/borrowing")

// BorrowingService tracks money lent to and borrowed from contacts. A
// borrowing's status is derived from its due date on every read; repayments
// move the contact's credit score according to that status.
type BorrowingService struct {
	store   port.BorrowingStore
	events  emitter
	metrics *observability.Metrics
	logger  *zap.Logger
	now     Clock
}

func NewBorrowingService(store port.BorrowingStore, publisher port.EventPublisher, metrics *observability.Metrics, logger *zap.Logger) *BorrowingService {
	s := &BorrowingService{store: store, metrics: metrics, logger: logger, now: time.Now}
	s.events = emitter{publisher: publisher, metrics: metrics, logger: logger, now: func() time.Time { return s.now() }}
	return s
}

// WithClock replaces the time source.
func (s *BorrowingService) WithClock(now Clock) *BorrowingService {
	s.now = now
	return s
}

// ============================================================
// Contacts
// ============================================================

func (s *BorrowingService) CreateContact(ctx context.Context, tenantID string, in *domain.BorrowingContact) (*domain.BorrowingContact, error) {
	ctx, span := borrowingTracer.Start(ctx, "BorrowingService.CreateContact")
	defer span.End()

	now := s.now().UTC()
	c := &domain.BorrowingContact{
		ID:           newID(),
		TenantID:     tenantID,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Email:        strings.TrimSpace(in.Email),
		Relationship: strings.TrimSpace(in.Relationship),
		CreditScore:  domain.DefaultCreditScore,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateContact(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *BorrowingService) GetContact(ctx context.Context, tenantID, contactID string) (*domain.BorrowingContact, error) {
	ctx, span := borrowingTracer.Start(ctx, "BorrowingService.GetContact")
	defer span.End()

	return s.store.GetContact(ctx, tenantID, contactID)
}

func (s *BorrowingService) ListContacts(ctx context.Context, tenantID string) ([]domain.BorrowingContact, error) {
	ctx, span := borrowingTracer.Start(ctx, "BorrowingService.ListContacts")
	defer span.End()

	return s.store.ListContacts(ctx, tenantID)
}

// UpdateContact edits the contact details. The credit score is only ever
// moved by repayments.
func (s *BorrowingService) UpdateContact(ctx context.Context, tenantID, contactID string, in *domain.BorrowingContact) (*domain.BorrowingContact, error) {
	ctx, span := borrowingTracer.Start(ctx, "BorrowingService.UpdateContact")
	defer span.End()

	c, err := s.store.GetContact(ctx, tenantID, contactID)
	if err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Email = strings.TrimSpace(in.Email)
	c.Relationship = strings.TrimSpace(in.Relationship)
	c.UpdatedAt = s.now().UTC()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateContact(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteContact refuses while the contact still has open borrowings.
func (s *BorrowingService) DeleteContact(ctx context.Context, tenantID, contactID string) error {
	ctx, span := borrowingTracer.Start(ctx, "BorrowingService.DeleteContact")
	defer span.End()

	if _, err := s.store.GetContact(ctx, tenantID, contactID); err != nil {
		return err
	}
	open, err := s.store.ListBorrowings(ctx, tenantID, domain.BorrowingFilter{ContactID: contactID, OpenOnly: true})
	if err != nil {
		return err
	}
	if len(open) > 0 {
		return &domain.ErrConflict{Message: fmt.Sprintf("contact %s has %d open borrowing(s)", contactID, len(open))}
	}
	return s.store.DeleteContact(ctx, tenantID, contactID)
}

// ============================================================
// Borrowings
// ============================================================

func (s *BorrowingService) CreateBorrowing(ctx context.Context, tenantID string, in *domain.Borrowing) (*domain.BorrowingView, error) {
	ctx, span := borrowingTracer.Start(ctx, "BorrowingService.CreateBorrowing")
	defer span.End()

	now := s.now().UTC()
	b := &domain.Borrowing{
		ID:        newID(),
		TenantID:  tenantID,
		ContactID: in.ContactID,
		Type:      in.Type,
		Amount:    domain.Round2(in.Amount),
		Balance:   domain.Round2(in.Amount),
		StartDate: in.StartDate,
		DueDate:   in.DueDate,
		Notes:     strings.TrimSpace(in.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if b.StartDate == "" {
		b.StartDate = today(s.now).Format(domain.DateLayout)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateBorrowing(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("borrowing created",
		zap.String("tenant_id", tenantID),
		zap.String("borrowing_id", b.ID),
		zap.String("type", string(b.Type)),
		zap.Float64("amount", b.Amount),
	)
	v := b.View(today(s.now))
	return &v, nil
}

func (s *BorrowingService) GetBorrowing(ctx context.Context, tenantID, borrowingID string) (*domain.BorrowingView, error) {
	ctx, span := borrowingTracer.Start(ctx, "BorrowingService.GetBorrowing")
	defer span.End()

	b, err := s.store.GetBorrowing(ctx, tenantID, borrowingID)
	if err != nil {
		return nil, err
	}
	v := b.View(today(s.now))
	return &v, nil
}

func (s *BorrowingService) ListBorrowings(ctx context.Context, tenantID string, filter domain.BorrowingFilter) ([]domain.BorrowingView, error) {
	ctx, span := borrowingTracer.Start(ctx, "BorrowingService.ListBorrowings")
	defer span.End()

	rows, err := s.store.ListBorrowings(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	t := today(s.now)
	views := make([]domain.BorrowingView, len(rows))
	for i := range rows {
		views[i] = rows[i].View(t)
	}
	return views, nil
}

// CloseBorrowing settles a borrowing by hand, e.g. when the rest is forgiven.
func (s *BorrowingService) CloseBorrowing(ctx context.Context, tenantID, borrowingID string) (*domain.BorrowingView, error) {
	ctx, span := borrowingTracer.Start(ctx, "BorrowingService.CloseBorrowing")
	defer span.End()

	b, err := s.store.GetBorrowing(ctx, tenantID, borrowingID)
	if err != nil {
		return nil, err
	}
	if b.IsClosed {
		return nil, &domain.ErrConflict{Message: "borrowing " + borrowingID + " is already settled"}
	}
	b.IsClosed = true
	b.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateBorrowing(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("borrowing closed",
		zap.String("tenant_id", tenantID),
		zap.String("borrowing_id", borrowingID),
		zap.Float64("balance_forgiven", b.Balance),
	)
	v := b.View(today(s.now))
	return &v, nil
}

// RecordRepayment applies a payment, closes the borrowing when its balance
// reaches zero and moves the contact's credit score by the delta for the
// status the borrowing had on the payment date. The score stays in [300, 900].
// An empty date means today.
func (s *BorrowingService) RecordRepayment(ctx context.Context, tenantID, borrowingID string, amount float64, date string) (*domain.RepaymentResult, error) {
	ctx, span := borrowingTracer.Start(ctx, "BorrowingService.RecordRepayment")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID), attribute.String("borrowing.id", borrowingID))

	paidOn := today(s.now)
	if date != "" {
		d, err := time.Parse(domain.DateLayout, date)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "date", Message: "invalid format, use YYYY-MM-DD"}
		}
		paidOn = d
	}

	var (
		borrowing domain.Borrowing
		contact   domain.BorrowingContact
	)
	rep, err := s.store.ApplyRepayment(ctx, tenantID, borrowingID, func(b *domain.Borrowing, c *domain.BorrowingContact) (*domain.Repayment, error) {
		status, err := b.ApplyRepayment(amount, paidOn)
		if err != nil {
			return nil, err
		}
		now := s.now().UTC()
		delta := domain.ScoreDelta(status)
		c.CreditScore = domain.ClampScore(c.CreditScore + delta)
		c.UpdatedAt = now
		b.UpdatedAt = now

		borrowing, contact = *b, *c
		return &domain.Repayment{
			ID:              newID(),
			TenantID:        tenantID,
			BorrowingID:     b.ID,
			Amount:          domain.Round2(amount),
			Date:            paidOn.Format(domain.DateLayout),
			StatusAtPayment: status,
			ScoreDelta:      delta,
			CreatedAt:       now,
		}, nil
	})
	if err != nil {
		trackExternal(s.metrics, err)
		return nil, err
	}

	s.metrics.IncrRepayment(string(rep.StatusAtPayment))
	s.logger.Info("repayment recorded",
		zap.String("tenant_id", tenantID),
		zap.String("borrowing_id", borrowingID),
		zap.Float64("amount", rep.Amount),
		zap.String("status_at_payment", string(rep.StatusAtPayment)),
		zap.Int("score_delta", rep.ScoreDelta),
		zap.Int("credit_score", contact.CreditScore),
		zap.Bool("settled", borrowing.IsClosed),
	)
	s.events.emit(ctx, domain.EventBorrowingRepaid, tenantID, map[string]any{
		"borrowing_id":      borrowingID,
		"contact_id":        contact.ID,
		"amount":            rep.Amount,
		"balance":           borrowing.Balance,
		"settled":           borrowing.IsClosed,
		"status_at_payment": rep.StatusAtPayment,
		"credit_score":      contact.CreditScore,
	})

	return &domain.RepaymentResult{
		Repayment: *rep,
		Borrowing: borrowing.View(today(s.now)),
		Contact:   contact,
	}, nil
}

func (s *BorrowingService) ListRepayments(ctx context.Context, tenantID, borrowingID string) ([]domain.Repayment, error) {
	ctx, span := borrowingTracer.Start(ctx, "BorrowingService.ListRepayments")
	defer span.End()

	if _, err := s.store.GetBorrowing(ctx, tenantID, borrowingID); err != nil {
		return nil, err
	}
	return s.store.ListRepayments(ctx, tenantID, borrowingID)
}

// Summary totals outstanding balances and counts borrowings per status.
func (s *BorrowingService) Summary(ctx context.Context, tenantID string) (*domain.BorrowingSummary, error) {
	ctx, span := borrowingTracer.Start(ctx, "BorrowingService.Summary")
	defer span.End()

	rows, err := s.store.ListBorrowings(ctx, tenantID, domain.BorrowingFilter{})
	if err != nil {
		return nil, err
	}

	t := today(s.now)
	sum := &domain.BorrowingSummary{ByStatus: make(map[domain.BorrowingStatus]int)}
	var lent, borrowed []float64
	for i := range rows {
		b := &rows[i]
		sum.ByStatus[b.Status(t)]++
		if b.IsClosed {
			continue
		}
		sum.OpenCount++
		switch b.Type {
		case domain.Lent:
			lent = append(lent, b.Balance)
		case domain.Borrowed:
			borrowed = append(borrowed, b.Balance)
		}
	}
	sum.OutstandingLent = domain.SumRound2(lent...)
	sum.OutstandingBorrowed = domain.SumRound2(borrowed...)
	return sum, nil
}

// Overdue lists open borrowings whose status is no longer Active.
func (s *BorrowingService) Overdue(ctx context.Context, tenantID string) ([]domain.BorrowingView, error) {
	ctx, span := borrowingTracer.Start(ctx, "BorrowingService.Overdue")
	defer span.End()

	open, err := s.ListBorrowings(ctx, tenantID, domain.BorrowingFilter{OpenOnly: true})
	if err != nil {
		return nil, err
	}
	out := make([]domain.BorrowingView, 0)
	for _, v := range open {
		if v.Status != domain.StatusActive {
			out = append(out, v)
		}
	}
	return out, nil
}
