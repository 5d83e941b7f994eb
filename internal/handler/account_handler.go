package handler

import (
	"net/http"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Virtual Account Handlers
// ============================================================

func listVirtualAccountsHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /virtual-accounts")
		defer span.End()

		accounts, err := svc.ListVirtualAccounts(ctx, chi.URLParam(r, "tenantId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, accounts)
	}
}

func getVirtualAccountHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /virtual-accounts/{accountId}")
		defer span.End()

		account, err := svc.GetVirtualAccount(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "accountId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

func listAccountTransactionsHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /virtual-accounts/{accountId}/transactions")
		defer span.End()

		rows, err := svc.ListAccountTransactions(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "accountId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, rows)
	}
}

func withdrawHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /virtual-accounts/{accountId}/withdraw")
		defer span.End()

		var req domain.WithdrawRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		// An authenticated subject always wins over a self-declared actor.
		if sub := SubjectFromContext(ctx); sub != "" || req.Actor == "" {
			req.Actor = actor(r)
		}

		res, err := svc.WithdrawForOverspend(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "accountId"), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
