package handler

import (
	"net/http"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Month-End Handlers
// ============================================================

func previewMonthEndHandler(svc *service.MonthEndService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /month-end/{year}/{month}/preview")
		defer span.End()

		year, month, err := yearMonth(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		report, err := svc.PreviewMonthEnd(ctx, chi.URLParam(r, "tenantId"), year, month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func processMonthEndHandler(svc *service.MonthEndService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /month-end/{year}/{month}")
		defer span.End()

		year, month, err := yearMonth(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		tenantID := chi.URLParam(r, "tenantId")
		report, err := svc.ProcessMonthEnd(ctx, tenantID, year, month, actor(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		logger.Info("month-end processed via API",
			zap.String("tenant_id", tenantID),
			zap.Int("year", year),
			zap.Int("month", month),
		)
		writeJSON(w, http.StatusOK, report)
	}
}

func listMonthLocksHandler(svc *service.MonthEndService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /month-locks")
		defer span.End()

		locks, err := svc.ListMonthLocks(ctx, chi.URLParam(r, "tenantId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, locks)
	}
}
