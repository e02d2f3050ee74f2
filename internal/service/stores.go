package service

import (
	"context"
	"time"

	"github.com/conexx/hub/internal/domain"
)

// Storage dependencies, satisfied by the repository package.

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	ListAll(ctx context.Context) ([]*domain.User, error)
	Delete(ctx context.Context, id string) error
}

type TenantStore interface {
	Create(ctx context.Context, t *domain.Tenant) error
	FindByID(ctx context.Context, id string) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]*domain.Tenant, error)
	Update(ctx context.Context, t *domain.Tenant) error
	SetCustomerID(ctx context.Context, tenantID, customerID string) (string, error)
	SetPendingPlan(ctx context.Context, tenantID, planID, cycle, paymentURL string) error
	ApplySubscription(ctx context.Context, tenantID string, upd domain.TenantSubscriptionUpdate) error
	SetSubscriptionStatus(ctx context.Context, tenantID, status string) error
	RefreshGrossRevenue(ctx context.Context, tenantID string) (int64, error)
}

type FeeStore interface {
	FindByID(ctx context.Context, id string) (*domain.WeeklyFee, error)
	FindByTenantWeek(ctx context.Context, tenantID string, weekStart time.Time) (*domain.WeeklyFee, error)
	FindByAsaasPaymentID(ctx context.Context, paymentID string) (*domain.WeeklyFee, error)
	UpsertPending(ctx context.Context, f *domain.WeeklyFee) (*domain.WeeklyFee, error)
	CommitBatch(ctx context.Context, fees []*domain.WeeklyFee) (int, error)
	Transition(ctx context.Context, id, from, to string, c domain.FeeChanges) (bool, error)
	List(ctx context.Context, filter domain.FeeFilter) ([]*domain.WeeklyFee, error)
}

type OrderStore interface {
	UpsertBatch(ctx context.Context, tenantID string, orders []domain.Order) (int, error)
	SumApproved(ctx context.Context, tenantID string, from, to time.Time) (int64, error)
}

type EventStore interface {
	Claim(ctx context.Context, ev *domain.WebhookEvent) (bool, error)
	MarkProcessed(ctx context.Context, id string) error
	MarkError(ctx context.Context, id, message string) error
	List(ctx context.Context, status string, limit int) ([]*domain.WebhookEvent, error)
}

// PaymentStore keeps paid_at once set and never moves a paid payment back to pending.
type PaymentStore interface {
	Upsert(ctx context.Context, p *domain.Payment) error
}

type SubscriptionStore interface {
	Create(ctx context.Context, s *domain.Subscription) error
	FindByAsaasID(ctx context.Context, asaasID string) (*domain.Subscription, error)
	FindLatestByTenant(ctx context.Context, tenantID string) (*domain.Subscription, error)
	UpdateFromProvider(ctx context.Context, id, status string, value int64, cycle string, nextDue *time.Time) error
}

type IntegrationStore interface {
	SaveState(ctx context.Context, s *domain.OAuthState) error
	ConsumeState(ctx context.Context, state string) (*domain.OAuthState, error)
	UpsertToken(ctx context.Context, t *domain.IntegrationToken) error
	FindToken(ctx context.Context, tenantID, provider string) (*domain.IntegrationToken, error)
	DeleteExpiredStates(ctx context.Context, olderThanSeconds int) (int64, error)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the actor operates the platform.
func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// authorizeTenant checks that the actor may act on the tenant.
func authorizeTenant(actor Actor, t *domain.Tenant) error {
	if actor.IsAdmin() || t.OwnerUserID == actor.UserID {
		return nil
	}
	return domain.ErrForbidden("tenant belongs to another account")
}
