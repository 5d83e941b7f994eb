package handler

import (
	"net/http"
	"strings"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Transaction Handlers
// ============================================================

func transactionFilter(r *http.Request) (domain.TransactionFilter, error) {
	q := r.URL.Query()
	filter := domain.TransactionFilter{
		Category: strings.TrimSpace(q.Get("category")),
		PaidBy:   strings.TrimSpace(q.Get("paid_by")),
	}
	var err error
	if filter.Year, err = queryInt(r, "year", 0); err != nil {
		return filter, err
	}
	if filter.Month, err = queryInt(r, "month", 0); err != nil {
		return filter, err
	}
	if filter.Month != 0 {
		if err := domain.ValidateYearMonth(filter.Year, filter.Month); err != nil {
			return filter, err
		}
	}
	return filter, nil
}

func listTransactionsHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /transactions")
		defer span.End()

		filter, err := transactionFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		txs, err := svc.ListTransactions(ctx, chi.URLParam(r, "tenantId"), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, txs)
	}
}

func getTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /transactions/{transactionId}")
		defer span.End()

		tx, err := svc.GetTransaction(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "transactionId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func createTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /transactions")
		defer span.End()

		var req domain.Transaction
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		tx, err := svc.CreateTransaction(ctx, chi.URLParam(r, "tenantId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

type bulkCreateRequest struct {
	Transactions []domain.Transaction `json:"transactions"`
}

func bulkCreateTransactionsHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /transactions/bulk")
		defer span.End()

		var req bulkCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		res, err := svc.BulkCreateTransactions(ctx, chi.URLParam(r, "tenantId"), req.Transactions)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

func bulkDeleteTransactionsHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /transactions/bulk-delete")
		defer span.End()

		var req bulkDeleteRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		res, err := svc.BulkDeleteTransactions(ctx, chi.URLParam(r, "tenantId"), req.IDs)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func updateTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /transactions/{transactionId}")
		defer span.End()

		var req domain.Transaction
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		tx, err := svc.UpdateTransaction(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "transactionId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func deleteTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /transactions/{transactionId}")
		defer span.End()

		if err := svc.DeleteTransaction(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "transactionId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
