package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conexx/hub/internal/domain"
	"github.com/conexx/hub/pkg/logger"
	"github.com/conexx/hub/pkg/payment"
)

// SubscriptionService sells platform plans through provider subscriptions.
type SubscriptionService struct {
	subscriptions SubscriptionStore
	tenants       TenantStore
	gateway       payment.Gateway
	loc           *time.Location
	now           func() time.Time
	log           *slog.Logger
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(subscriptions SubscriptionStore, tenants TenantStore, gateway payment.Gateway, loc *time.Location, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		subscriptions: subscriptions,
		tenants:       tenants,
		gateway:       gateway,
		loc:           loc,
		now:           time.Now,
		log:           log,
	}
}

// GetCurrent returns the latest subscription requested for a tenant, or nil.
func (s *SubscriptionService) GetCurrent(ctx context.Context, actor Actor, tenantID string) (*domain.Subscription, error) {
	t, err := loadTenant(ctx, s.tenants, tenantID)
	if err != nil {
		return nil, err
	}
	if err := authorizeTenant(actor, t); err != nil {
		return nil, err
	}

	sub, err := s.subscriptions.FindLatestByTenant(ctx, t.ID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find subscription", err)
	}
	return sub, nil
}

// Checkout creates a provider subscription for a plan and reserves it on the
// tenant as pending until the provider confirms it.
func (s *SubscriptionService) Checkout(ctx context.Context, actor Actor, req *domain.CreateSubscriptionRequest) (*domain.PaymentLinkResponse, error) {
	plan, ok := domain.FindPlan(req.PlanID)
	if !ok {
		return nil, domain.ErrValidation("unknown plan")
	}
	price := plan.PriceFor(req.Cycle)
	if price <= 0 {
		return nil, domain.ErrValidation("plan has no price for this cycle")
	}

	t, err := loadTenant(ctx, s.tenants, req.TenantID)
	if err != nil {
		return nil, err
	}
	if err := authorizeTenant(actor, t); err != nil {
		return nil, err
	}
	if t.PendingPlanID != nil {
		return nil, domain.ErrConflict("a plan change is already awaiting payment")
	}

	customerID, err := ensureCustomer(ctx, s.tenants, s.gateway, t)
	if err != nil {
		return nil, err
	}

	billingType := req.BillingType
	if billingType == "" {
		billingType = "UNDEFINED"
	}
	today := s.now().In(s.loc)

	ps, err := s.gateway.CreateSubscription(ctx, payment.SubscriptionRequest{
		Customer:          customerID,
		BillingType:       billingType,
		Value:             payment.FromCents(price),
		NextDueDate:       today.Format(payment.DateLayout),
		Cycle:             req.Cycle,
		Description:       fmt.Sprintf("Conexx Hub - plano %s", plan.Name),
		ExternalReference: t.OwnerUserID,
	})
	if err != nil {
		return nil, domain.ErrProvider("failed to create subscription", err)
	}

	now := s.now()
	next, _ := payment.ParseDate(ps.NextDueDate, s.loc)
	sub := &domain.Subscription{
		ID:                  domain.NewID(),
		UserID:              t.OwnerUserID,
		TenantID:            t.ID,
		PlanID:              plan.ID,
		AsaasSubscriptionID: ps.ID,
		Status:              domain.SubscriptionPending,
		Value:               price,
		Cycle:               req.Cycle,
		NextDueDate:         next,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return nil, domain.ErrInternal("failed to store subscription", err)
	}

	paymentURL := ""
	charges, err := s.gateway.ListSubscriptionPayments(ctx, ps.ID)
	if err != nil {
		s.log.WarnContext(ctx, "failed to fetch first subscription invoice", "asaas_subscription_id", ps.ID, logger.Error(err))
	} else if len(charges) > 0 {
		paymentURL = charges[0].InvoiceURL
	}

	if err := s.tenants.SetPendingPlan(ctx, t.ID, plan.ID, req.Cycle, paymentURL); err != nil {
		return nil, domain.ErrInternal("failed to reserve plan", err)
	}

	s.log.InfoContext(ctx, "subscription requested",
		"tenant_id", t.ID,
		"plan_id", plan.ID,
		"cycle", req.Cycle,
		"asaas_subscription_id", ps.ID,
	)
	return &domain.PaymentLinkResponse{PaymentURL: paymentURL, SubscriptionID: sub.ID}, nil
}
