package handler

import (
	"net/http"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func monthlySummaryHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /reports/monthly/{year}/{month}")
		defer span.End()

		year, month, err := yearMonth(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		summary, err := svc.MonthlySummary(ctx, chi.URLParam(r, "tenantId"), year, month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func yearlyTrendHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /reports/yearly/{year}")
		defer span.End()

		year, err := pathInt(r, "year")
		if err == nil {
			err = domain.ValidateYearMonth(year, 1)
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		trend, err := svc.YearlyTrend(ctx, chi.URLParam(r, "tenantId"), year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, trend)
	}
}

func orphanedTransactionsHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /reports/orphans")
		defer span.End()

		orphans, err := svc.OrphanedTransactions(ctx, chi.URLParam(r, "tenantId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, orphans)
	}
}
