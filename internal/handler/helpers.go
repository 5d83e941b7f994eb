package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

// maxBodyBytes bounds request bodies; bulk imports are the largest payloads.
const maxBodyBytes = 4 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, domain.ListResponse[T]{Data: items, Total: len(items)})
}

// decodeJSON reads the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &domain.ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &domain.ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// pathInt reads an integer route parameter.
func pathInt(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ErrValidation{Field: name, Message: fmt.Sprintf("%q is not a number", raw)}
	}
	return v, nil
}

// yearMonth reads and validates the {year}/{month} route parameters.
func yearMonth(r *http.Request) (int, int, error) {
	year, err := pathInt(r, "year")
	if err != nil {
		return 0, 0, err
	}
	month, err := pathInt(r, "month")
	if err != nil {
		return 0, 0, err
	}
	if err := domain.ValidateYearMonth(year, month); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ErrValidation{Field: name, Message: fmt.Sprintf("%q is not a number", raw)}
	}
	return v, nil
}

// actor names who performed a write, for ledger rows and logs.
func actor(r *http.Request) string {
	if sub := SubjectFromContext(r.Context()); sub != "" {
		return sub
	}
	if v := strings.TrimSpace(r.Header.Get("X-Actor")); v != "" {
		return v
	}
	return "api"
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var conflict *domain.ErrConflict
	var monthLocked *domain.ErrMonthLocked
	var insufficient *domain.ErrInsufficientBalance
	var forbidden *domain.ErrForbidden
	var unauthorized *domain.ErrUnauthorized
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: validation.Field})
	case errors.As(err, &monthLocked):
		logger.Info("write into locked month",
			zap.Int("year", monthLocked.Year),
			zap.Int("month", monthLocked.Month),
		)
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &insufficient):
		logger.Warn("insufficient balance",
			zap.Float64("available", insufficient.Available),
			zap.Float64("required", insufficient.Required),
		)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &external):
		logger.Error("backing service failure", zap.String("service", external.Service), zap.Error(err))
		status := http.StatusBadGateway
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, "upstream service unavailable")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
