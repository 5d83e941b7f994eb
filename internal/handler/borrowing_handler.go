package handler

import (
	"net/http"
	"strconv"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Contact Handlers
// ============================================================

func listContactsHandler(svc *service.BorrowingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /contacts")
		defer span.End()

		contacts, err := svc.ListContacts(ctx, chi.URLParam(r, "tenantId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, contacts)
	}
}

func getContactHandler(svc *service.BorrowingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /contacts/{contactId}")
		defer span.End()

		contact, err := svc.GetContact(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "contactId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, contact)
	}
}

func createContactHandler(svc *service.BorrowingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /contacts")
		defer span.End()

		var req domain.BorrowingContact
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		contact, err := svc.CreateContact(ctx, chi.URLParam(r, "tenantId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, contact)
	}
}

func updateContactHandler(svc *service.BorrowingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /contacts/{contactId}")
		defer span.End()

		var req domain.BorrowingContact
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		contact, err := svc.UpdateContact(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "contactId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, contact)
	}
}

func deleteContactHandler(svc *service.BorrowingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /contacts/{contactId}")
		defer span.End()

		if err := svc.DeleteContact(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "contactId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Borrowing Handlers
// ============================================================

func listBorrowingsHandler(svc *service.BorrowingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /borrowings")
		defer span.End()

		filter := domain.BorrowingFilter{ContactID: r.URL.Query().Get("contact_id")}
		if raw := r.URL.Query().Get("open"); raw != "" {
			open, err := strconv.ParseBool(raw)
			if err != nil {
				handleServiceError(w, &domain.ErrValidation{Field: "open", Message: "must be true or false"}, logger)
				return
			}
			filter.OpenOnly = open
		}

		views, err := svc.ListBorrowings(ctx, chi.URLParam(r, "tenantId"), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, views)
	}
}

func getBorrowingHandler(svc *service.BorrowingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /borrowings/{borrowingId}")
		defer span.End()

		view, err := svc.GetBorrowing(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "borrowingId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func createBorrowingHandler(svc *service.BorrowingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /borrowings")
		defer span.End()

		var req domain.Borrowing
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		view, err := svc.CreateBorrowing(ctx, chi.URLParam(r, "tenantId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

func closeBorrowingHandler(svc *service.BorrowingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /borrowings/{borrowingId}/close")
		defer span.End()

		view, err := svc.CloseBorrowing(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "borrowingId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type repaymentRequest struct {
	Amount float64 `json:"amount"`
	Date   string  `json:"date,omitempty"`
}

func recordRepaymentHandler(svc *service.BorrowingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /borrowings/{borrowingId}/repayments")
		defer span.End()

		var req repaymentRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		res, err := svc.RecordRepayment(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "borrowingId"), req.Amount, req.Date)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func listRepaymentsHandler(svc *service.BorrowingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /borrowings/{borrowingId}/repayments")
		defer span.End()

		rows, err := svc.ListRepayments(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "borrowingId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, rows)
	}
}

func borrowingSummaryHandler(svc *service.BorrowingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /borrowings/summary")
		defer span.End()

		summary, err := svc.Summary(ctx, chi.URLParam(r, "tenantId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func overdueBorrowingsHandler(svc *service.BorrowingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /borrowings/overdue")
		defer span.End()

		views, err := svc.Overdue(ctx, chi.URLParam(r, "tenantId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, views)
	}
}
