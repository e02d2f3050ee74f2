package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/conexx/hub/internal/domain"
	"github.com/conexx/hub/pkg/logger"
	"github.com/conexx/hub/pkg/payment"
)

// eventStatus maps provider event types to local statuses.
var eventStatus = map[string]string{
	"PAYMENT_CONFIRMED":        domain.PaymentPaid,
	"PAYMENT_RECEIVED":         domain.PaymentPaid,
	"PAYMENT_OVERDUE":          domain.PaymentOverdue,
	"PAYMENT_DELETED":          domain.PaymentFailed,
	"PAYMENT_REFUNDED":         domain.PaymentRefunded,
	"SUBSCRIPTION_CREATED":     domain.SubscriptionActive,
	"SUBSCRIPTION_UPDATED":     domain.SubscriptionActive,
	"SUBSCRIPTION_DELETED":     domain.SubscriptionCanceled,
	"SUBSCRIPTION_INACTIVATED": domain.SubscriptionCanceled,
}

// MapEventStatus returns the local status of an event type. Unknown types are pending.
func MapEventStatus(event string) string {
	if s, ok := eventStatus[event]; ok {
		return s
	}
	return domain.PaymentPending
}

// feeStatusFor maps a payment status onto the fee status it implies, if any.
var feeStatusFor = map[string]string{
	domain.PaymentPaid:    domain.FeePaid,
	domain.PaymentOverdue: domain.FeeOverdue,
}

// FeeStatusApplier moves a fee to a provider-reported status.
type FeeStatusApplier interface {
	ApplyProviderStatus(ctx context.Context, fee *domain.WeeklyFee, to string, at time.Time) error
}

// Reconciler applies provider events to payments, subscriptions, tenants and fees.
type Reconciler struct {
	payments      PaymentStore
	subscriptions SubscriptionStore
	tenants       TenantStore
	users         UserStore
	fees          FeeStore
	feeStatus     FeeStatusApplier
	loc           *time.Location
	now           func() time.Time
	log           *slog.Logger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(payments PaymentStore, subscriptions SubscriptionStore, tenants TenantStore, users UserStore, fees FeeStore, feeStatus FeeStatusApplier, loc *time.Location, log *slog.Logger) *Reconciler {
	return &Reconciler{
		payments:      payments,
		subscriptions: subscriptions,
		tenants:       tenants,
		users:         users,
		fees:          fees,
		feeStatus:     feeStatus,
		loc:           loc,
		now:           time.Now,
		log:           log,
	}
}

// HandleEvent implements EventHandler.
func (r *Reconciler) HandleEvent(ctx context.Context, ev *payment.Event) error {
	switch {
	case ev.IsPayment():
		return r.handlePayment(ctx, ev)
	case ev.IsSubscription():
		return r.handleSubscription(ctx, ev)
	default:
		r.log.InfoContext(ctx, "unhandled webhook event type", "event", ev.Event)
		return nil
	}
}

func (r *Reconciler) handlePayment(ctx context.Context, ev *payment.Event) error {
	charge, err := ev.DecodePayment()
	if err != nil {
		return domain.ErrValidation(err.Error())
	}
	if charge.ID == "" {
		return domain.ErrValidation("payment id is required")
	}

	status := MapEventStatus(ev.Event)
	now := r.now()

	p := &domain.Payment{
		ID:                domain.NewID(),
		AsaasPaymentID:    charge.ID,
		Status:            status,
		Value:             payment.ToCents(charge.Value),
		BillingType:       charge.BillingType,
		ExternalReference: charge.ExternalReference,
		InvoiceURL:        charge.InvoiceURL,
	}
	if charge.Subscription != "" {
		p.AsaasSubscriptionID = &charge.Subscription
	}
	if due, err := payment.ParseDate(charge.DueDate, r.loc); err == nil {
		p.DueDate = due
	}
	if status == domain.PaymentPaid {
		p.PaidAt = &now
	}

	if charge.ExternalReference != "" {
		user, err := r.users.FindByID(ctx, charge.ExternalReference)
		if err != nil {
			return domain.ErrInternal("failed to resolve payment owner", err)
		}
		if user == nil {
			return domain.ErrNotFound("user not found for externalReference " + charge.ExternalReference)
		}
		p.UserID = &user.ID
	}

	fee, err := r.fees.FindByAsaasPaymentID(ctx, charge.ID)
	if err != nil {
		return domain.ErrInternal("failed to find weekly fee", err)
	}
	if fee != nil {
		p.TenantID = &fee.TenantID
	}

	if err := r.payments.Upsert(ctx, p); err != nil {
		return domain.ErrInternal("failed to store payment", err)
	}

	if fee != nil {
		if to, ok := feeStatusFor[status]; ok {
			if err := r.feeStatus.ApplyProviderStatus(ctx, fee, to, now); err != nil {
				return err
			}
		}
	}

	if charge.Subscription != "" && status == domain.PaymentOverdue {
		sub, err := r.findSubscription(ctx, charge.Subscription)
		if err != nil {
			return err
		}
		if err := r.tenants.SetSubscriptionStatus(ctx, sub.TenantID, domain.TenantSubscriptionPastDue); err != nil {
			return domain.ErrInternal("failed to update tenant", err)
		}
		r.log.InfoContext(ctx, "tenant subscription past due", "tenant_id", sub.TenantID, "asaas_subscription_id", sub.AsaasSubscriptionID)
	}

	r.log.InfoContext(ctx, "payment reconciled", "asaas_payment_id", charge.ID, "status", status)
	return nil
}

func (r *Reconciler) handleSubscription(ctx context.Context, ev *payment.Event) error {
	ps, err := ev.DecodeSubscription()
	if err != nil {
		return domain.ErrValidation(err.Error())
	}
	if ps.ID == "" {
		return domain.ErrValidation("subscription id is required")
	}

	sub, err := r.findSubscription(ctx, ps.ID)
	if err != nil {
		return err
	}

	status := MapEventStatus(ev.Event)
	// Only mapped events resolve a subscription; others refresh its fields.
	_, resolved := eventStatus[ev.Event]

	value := sub.Value
	if ps.Value > 0 {
		value = payment.ToCents(ps.Value)
	}
	cycle := sub.Cycle
	if ps.Cycle != "" {
		cycle = ps.Cycle
	}
	next, err := payment.ParseDate(ps.NextDueDate, r.loc)
	if err != nil {
		r.log.WarnContext(ctx, "ignoring unparseable next due date", "asaas_subscription_id", ps.ID, logger.Error(err))
		next = nil
	}

	newStatus := ""
	if resolved {
		newStatus = status
	}
	if err := r.subscriptions.UpdateFromProvider(ctx, sub.ID, newStatus, value, cycle, next); err != nil {
		return domain.ErrInternal("failed to update subscription", err)
	}
	if !resolved {
		r.log.InfoContext(ctx, "subscription refreshed", "asaas_subscription_id", ps.ID, "event", ev.Event)
		return nil
	}

	t, err := loadTenant(ctx, r.tenants, sub.TenantID)
	if err != nil {
		return err
	}

	upd := domain.TenantSubscriptionUpdate{SubscriptionStatus: domain.TenantSubscriptionCanceled}
	if status == domain.SubscriptionActive {
		upd = domain.TenantSubscriptionUpdate{
			PlanID:             sub.PlanID,
			BillingCycle:       cycle,
			NextBilling:        next,
			SubscriptionStatus: domain.TenantSubscriptionActive,
		}
	}
	if err := r.tenants.ApplySubscription(ctx, t.ID, upd); err != nil {
		return domain.ErrInternal("failed to update tenant", err)
	}

	r.log.InfoContext(ctx, "subscription reconciled",
		"asaas_subscription_id", ps.ID,
		"tenant_id", t.ID,
		"status", status,
	)
	return nil
}

func (r *Reconciler) findSubscription(ctx context.Context, asaasID string) (*domain.Subscription, error) {
	sub, err := r.subscriptions.FindByAsaasID(ctx, asaasID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find subscription", err)
	}
	if sub == nil {
		return nil, domain.ErrNotFound("subscription not found: " + asaasID)
	}
	return sub, nil
}
