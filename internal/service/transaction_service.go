package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var txTracer = otel.Tracer("service/transaction")

// TransactionService manages expense entries. Writes dated inside a month
// closed by month-end processing are rejected.
type TransactionService struct {
	store  port.TransactionStore
	locks  port.LedgerStore
	logger *zap.Logger
	now    Clock
}

func NewTransactionService(store port.TransactionStore, locks port.LedgerStore, logger *zap.Logger) *TransactionService {
	return &TransactionService{store: store, locks: locks, logger: logger, now: time.Now}
}

func (s *TransactionService) WithClock(now Clock) *TransactionService {
	s.now = now
	return s
}

func (s *TransactionService) ListTransactions(ctx context.Context, tenantID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	if filter.Month != 0 && (filter.Month < 1 || filter.Month > 12) {
		return nil, &domain.ErrValidation{Field: "month", Message: "must be between 1 and 12"}
	}
	return s.store.ListTransactions(ctx, tenantID, filter)
}

func (s *TransactionService) GetTransaction(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.GetTransaction")
	defer span.End()

	return s.store.GetTransaction(ctx, tenantID, transactionID)
}

func (s *TransactionService) CreateTransaction(ctx context.Context, tenantID string, in *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.CreateTransaction")
	defer span.End()

	tx := s.prepare(tenantID, in)
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	y, m := tx.YearMonth()
	if err := checkMonthOpen(ctx, s.locks, tenantID, y, m); err != nil {
		return nil, err
	}
	if err := s.store.CreateTransactions(ctx, []domain.Transaction{tx}); err != nil {
		return nil, err
	}

	s.logger.Debug("transaction created",
		zap.String("tenant_id", tenantID),
		zap.String("transaction_id", tx.ID),
		zap.String("category", tx.Category),
		zap.Float64("amount", tx.Amount),
	)
	return &tx, nil
}

// BulkCreateTransactions validates every row first and writes all of them or none.
func (s *TransactionService) BulkCreateTransactions(ctx context.Context, tenantID string, in []domain.Transaction) (*domain.BulkResult, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.BulkCreateTransactions")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(in)))

	if len(in) == 0 {
		return nil, &domain.ErrValidation{Field: "transactions", Message: "at least one transaction is required"}
	}

	txs := make([]domain.Transaction, len(in))
	months := make(map[[2]int]bool)
	for i := range in {
		txs[i] = s.prepare(tenantID, &in[i])
		if err := txs[i].Validate(); err != nil {
			if ve, ok := err.(*domain.ErrValidation); ok {
				return nil, &domain.ErrValidation{Field: fmt.Sprintf("transactions[%d].%s", i, ve.Field), Message: ve.Message}
			}
			return nil, err
		}
		y, m := txs[i].YearMonth()
		months[[2]int{y, m}] = true
	}
	for ym := range months {
		if err := checkMonthOpen(ctx, s.locks, tenantID, ym[0], ym[1]); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateTransactions(ctx, txs); err != nil {
		return nil, err
	}

	ids := make([]string, len(txs))
	for i := range txs {
		ids[i] = txs[i].ID
	}
	s.logger.Info("transactions imported", zap.String("tenant_id", tenantID), zap.Int("count", len(txs)))
	return &domain.BulkResult{Created: len(txs), IDs: ids}, nil
}

func (s *TransactionService) UpdateTransaction(ctx context.Context, tenantID, transactionID string, in *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.UpdateTransaction")
	defer span.End()

	existing, err := s.store.GetTransaction(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Date = strings.TrimSpace(in.Date)
	updated.Time = strings.TrimSpace(in.Time)
	updated.Description = strings.TrimSpace(in.Description)
	updated.Amount = domain.Round2(in.Amount)
	updated.Category = strings.TrimSpace(in.Category)
	updated.Subcategory = strings.TrimSpace(in.Subcategory)
	updated.Microcategory = strings.TrimSpace(in.Microcategory)
	updated.PaidBy = strings.TrimSpace(in.PaidBy)
	updated.Notes = in.Notes
	updated.UpdatedAt = s.now().UTC()

	if err := updated.Validate(); err != nil {
		return nil, err
	}

	// Both the month the row leaves and the month it lands in must be open.
	oy, om := existing.YearMonth()
	if err := checkMonthOpen(ctx, s.locks, tenantID, oy, om); err != nil {
		return nil, err
	}
	if ny, nm := updated.YearMonth(); ny != oy || nm != om {
		if err := checkMonthOpen(ctx, s.locks, tenantID, ny, nm); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateTransaction(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, tenantID, transactionID string) error {
	ctx, span := txTracer.Start(ctx, "TransactionService.DeleteTransaction")
	defer span.End()

	existing, err := s.store.GetTransaction(ctx, tenantID, transactionID)
	if err != nil {
		return err
	}
	y, m := existing.YearMonth()
	if err := checkMonthOpen(ctx, s.locks, tenantID, y, m); err != nil {
		return err
	}
	n, err := s.store.DeleteTransactions(ctx, tenantID, []string{transactionID})
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	return nil
}

// BulkDeleteTransactions removes the given ids. Unknown ids are ignored; any
// id dated in a locked month aborts the whole request.
func (s *TransactionService) BulkDeleteTransactions(ctx context.Context, tenantID string, ids []string) (*domain.BulkResult, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.BulkDeleteTransactions")
	defer span.End()

	if len(ids) == 0 {
		return nil, &domain.ErrValidation{Field: "ids", Message: "at least one id is required"}
	}

	checked := make(map[[2]int]bool)
	for _, id := range ids {
		tx, err := s.store.GetTransaction(ctx, tenantID, id)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		y, m := tx.YearMonth()
		if checked[[2]int{y, m}] {
			continue
		}
		if err := checkMonthOpen(ctx, s.locks, tenantID, y, m); err != nil {
			return nil, err
		}
		checked[[2]int{y, m}] = true
	}

	n, err := s.store.DeleteTransactions(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	s.logger.Info("transactions deleted",
		zap.String("tenant_id", tenantID),
		zap.Int("requested", len(ids)),
		zap.Int("deleted", n),
	)
	return &domain.BulkResult{Deleted: n}, nil
}

// prepare copies the caller's input into a new row with server-side fields set.
func (s *TransactionService) prepare(tenantID string, in *domain.Transaction) domain.Transaction {
	now := s.now().UTC()
	return domain.Transaction{
		ID:            newID(),
		TenantID:      tenantID,
		Date:          strings.TrimSpace(in.Date),
		Time:          strings.TrimSpace(in.Time),
		Description:   strings.TrimSpace(in.Description),
		Amount:        domain.Round2(in.Amount),
		Category:      strings.TrimSpace(in.Category),
		Subcategory:   strings.TrimSpace(in.Subcategory),
		Microcategory: strings.TrimSpace(in.Microcategory),
		PaidBy:        strings.TrimSpace(in.PaidBy),
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
