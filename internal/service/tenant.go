package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/conexx/hub/internal/domain"
	"github.com/conexx/hub/pkg/logger"
)

// TenantService manages tenants and the orders their fees are computed from.
type TenantService struct {
	tenants TenantStore
	users   UserStore
	orders  OrderStore
	log     *slog.Logger
}

// NewTenantService creates a new TenantService.
func NewTenantService(tenants TenantStore, users UserStore, orders OrderStore, log *slog.Logger) *TenantService {
	return &TenantService{tenants: tenants, users: users, orders: orders, log: log}
}

// Create registers a tenant for an existing owner.
func (s *TenantService) Create(ctx context.Context, req *domain.CreateTenantRequest) (*domain.Tenant, error) {
	owner, err := s.users.FindByID(ctx, req.OwnerUserID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find owner", err)
	}
	if owner == nil {
		return nil, domain.ErrNotFound("owner not found")
	}

	now := time.Now()
	t := &domain.Tenant{
		ID:                 domain.NewID(),
		OwnerUserID:        owner.ID,
		Name:               req.Name,
		Document:           req.Document,
		Email:              req.Email,
		CompanyPercentage:  req.CompanyPercentage,
		SubscriptionStatus: domain.TenantSubscriptionNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.tenants.Create(ctx, t); err != nil {
		return nil, domain.ErrInternal("failed to create tenant", err)
	}

	s.log.InfoContext(ctx, "tenant created", "tenant_id", t.ID, "owner_id", owner.ID)
	return t, nil
}

// List returns every tenant.
func (s *TenantService) List(ctx context.Context) ([]*domain.Tenant, error) {
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return nil, domain.ErrInternal("failed to list tenants", err)
	}
	return tenants, nil
}

// ListMine returns the tenants owned by the actor.
func (s *TenantService) ListMine(ctx context.Context, actor Actor) ([]*domain.Tenant, error) {
	tenants, err := s.tenants.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, domain.ErrInternal("failed to list tenants", err)
	}
	return tenants, nil
}

// Get returns a tenant the actor may see.
func (s *TenantService) Get(ctx context.Context, actor Actor, id string) (*domain.Tenant, error) {
	t, err := loadTenant(ctx, s.tenants, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeTenant(actor, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update applies a partial update. A new percentage only affects fees computed afterwards.
func (s *TenantService) Update(ctx context.Context, id string, req *domain.UpdateTenantRequest) (*domain.Tenant, error) {
	t, err := loadTenant(ctx, s.tenants, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Email != nil {
		t.Email = *req.Email
	}
	if req.CompanyPercentage != nil {
		t.CompanyPercentage = *req.CompanyPercentage
	}

	if err := s.tenants.Update(ctx, t); err != nil {
		return nil, domain.ErrInternal("failed to update tenant", err)
	}
	return t, nil
}

// ImportOrders upserts storefront orders and refreshes the cached gross revenue.
func (s *TenantService) ImportOrders(ctx context.Context, tenantID string, orders []domain.Order) (int, error) {
	t, err := loadTenant(ctx, s.tenants, tenantID)
	if err != nil {
		return 0, err
	}

	n, err := s.orders.UpsertBatch(ctx, t.ID, orders)
	if err != nil {
		return 0, domain.ErrInternal("failed to import orders", err)
	}

	total, err := s.tenants.RefreshGrossRevenue(ctx, t.ID)
	if err != nil {
		// The orders are stored; the cache catches up on the next import.
		s.log.WarnContext(ctx, "failed to refresh gross revenue", "tenant_id", t.ID, logger.Error(err))
	} else {
		s.log.InfoContext(ctx, "orders imported", "tenant_id", t.ID, "count", n, "gross_revenue", total)
	}
	return n, nil
}

func loadTenant(ctx context.Context, tenants TenantStore, id string) (*domain.Tenant, error) {
	t, err := tenants.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to find tenant", err)
	}
	if t == nil {
		return nil, domain.ErrNotFound("tenant not found")
	}
	return t, nil
}
