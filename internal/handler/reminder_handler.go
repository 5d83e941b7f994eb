package handler

import (
	"net/http"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Reminder Handlers
// ============================================================

// defaultUpcomingDays is used when ?days is omitted.
const defaultUpcomingDays = 7

func listRemindersHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /reminders")
		defer span.End()

		reminders, err := svc.ListReminders(ctx, chi.URLParam(r, "tenantId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, reminders)
	}
}

func getReminderHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /reminders/{reminderId}")
		defer span.End()

		reminder, err := svc.GetReminder(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "reminderId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, reminder)
	}
}

func createReminderHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /reminders")
		defer span.End()

		var req domain.Reminder
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		reminder, err := svc.CreateReminder(ctx, chi.URLParam(r, "tenantId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, reminder)
	}
}

func updateReminderHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /reminders/{reminderId}")
		defer span.End()

		var req domain.ReminderUpdate
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		reminder, err := svc.UpdateReminder(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "reminderId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, reminder)
	}
}

func deleteReminderHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /reminders/{reminderId}")
		defer span.End()

		if err := svc.DeleteReminder(ctx, chi.URLParam(r, "tenantId"), chi.URLParam(r, "reminderId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func monthInstancesHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /reminders/instances/{year}/{month}")
		defer span.End()

		year, month, err := yearMonth(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		instances, err := svc.MonthInstances(ctx, chi.URLParam(r, "tenantId"), year, month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, instances)
	}
}

func upcomingInstancesHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /reminders/upcoming")
		defer span.End()

		days, err := queryInt(r, "days", defaultUpcomingDays)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		instances, err := svc.UpcomingInstances(ctx, chi.URLParam(r, "tenantId"), days)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, instances)
	}
}

type completeInstanceRequest struct {
	TransactionID string `json:"transaction_id,omitempty"`
}

func completeInstanceHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /reminders/{reminderId}/instances/{dueDate}/complete")
		defer span.End()

		var req completeInstanceRequest
		if err := decodeOptionalJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		inst, err := svc.CompleteInstance(ctx,
			chi.URLParam(r, "tenantId"),
			chi.URLParam(r, "reminderId"),
			chi.URLParam(r, "dueDate"),
			req.TransactionID,
		)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inst)
	}
}

func uncompleteInstanceHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /reminders/{reminderId}/instances/{dueDate}/complete")
		defer span.End()

		inst, err := svc.UncompleteInstance(ctx,
			chi.URLParam(r, "tenantId"),
			chi.URLParam(r, "reminderId"),
			chi.URLParam(r, "dueDate"),
		)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inst)
	}
}
