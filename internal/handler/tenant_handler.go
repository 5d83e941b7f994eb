package handler

import (
	"net/http"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type createTenantRequest struct {
	Name      string `json:"name"`
	OwnerName string `json:"owner_name"`
}

func createTenantHandler(svc *service.TenantService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /tenants")
		defer span.End()

		var req createTenantRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		tenant, err := svc.CreateTenant(ctx, req.Name, req.OwnerName)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tenant)
	}
}

func listTenantsHandler(svc *service.TenantService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /tenants")
		defer span.End()

		tenants, err := svc.ListTenants(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if own := TenantFromContext(ctx); own != "" {
			var visible []domain.Tenant
			for _, t := range tenants {
				if t.ID == own {
					visible = append(visible, t)
				}
			}
			tenants = visible
		}
		writeList(w, tenants)
	}
}

func getTenantHandler(svc *service.TenantService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /tenants/{tenantId}")
		defer span.End()

		tenant, err := svc.GetTenant(ctx, chi.URLParam(r, "tenantId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tenant)
	}
}
