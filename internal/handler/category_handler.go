package handler

import (
	"net/http"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Category & Budget Handlers
// ============================================================

func listCategoriesHandler(svc *service.CategoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /categories")
		defer span.End()

		categories, err := svc.ListCategories(ctx, chi.URLParam(r, "tenantId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, categories)
	}
}

func getCategoryHandler(svc *service.CategoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /categories/{categoryId}")
		defer span.End()

		category, err := svc.GetCategory(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "categoryId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, category)
	}
}

func createCategoryHandler(svc *service.CategoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /categories")
		defer span.End()

		var req domain.Category
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		category, err := svc.CreateCategory(ctx, chi.URLParam(r, "tenantId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, category)
	}
}

func updateCategoryHandler(svc *service.CategoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /categories/{categoryId}")
		defer span.End()

		var req domain.Category
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		category, err := svc.UpdateCategory(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "categoryId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, category)
	}
}

func deleteCategoryHandler(svc *service.CategoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /categories/{categoryId}")
		defer span.End()

		if err := svc.DeleteCategory(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "categoryId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type setBudgetRequest struct {
	Amount float64 `json:"amount"`
}

func setBudgetHandler(svc *service.CategoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /categories/{categoryId}/budgets/{month}")
		defer span.End()

		var req setBudgetRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		category, err := svc.SetBudget(ctx,
			chi.URLParam(r, "tenantId"),
			chi.URLParam(r, "categoryId"),
			chi.URLParam(r, "month"),
			req.Amount,
		)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, category)
	}
}

func carryForwardHandler(svc *service.CategoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /budgets/{month}/carry-forward")
		defer span.End()

		carried, err := svc.CarryForwardBudgets(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "month"), actor(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, carried)
	}
}
