package service

import (
	"context"
	"strings"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tenantTracer = otel.Tracer("service/tenant")

// TenantService manages tenants.
type TenantService struct {
	store  port.TenantStore
	logger *zap.Logger
	now    Clock
}

func NewTenantService(store port.TenantStore, logger *zap.Logger) *TenantService {
	return &TenantService{store: store, logger: logger, now: time.Now}
}

func (s *TenantService) WithClock(now Clock) *TenantService {
	s.now = now
	return s
}

func (s *TenantService) CreateTenant(ctx context.Context, name, owner string) (*domain.Tenant, error) {
	ctx, span := tenantTracer.Start(ctx, "TenantService.CreateTenant")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	t := &domain.Tenant{
		ID:        newID(),
		Name:      name,
		OwnerName: strings.TrimSpace(owner),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateTenant(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("tenant created", zap.String("tenant_id", t.ID), zap.String("name", t.Name))
	return t, nil
}

func (s *TenantService) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	ctx, span := tenantTracer.Start(ctx, "TenantService.GetTenant")
	defer span.End()

	return s.store.GetTenant(ctx, tenantID)
}

func (s *TenantService) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	ctx, span := tenantTracer.Start(ctx, "TenantService.ListTenants")
	defer span.End()

	return s.store.ListTenants(ctx)
}
