package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/conexx/hub/internal/domain"
	"github.com/conexx/hub/pkg/logger"
	"github.com/conexx/hub/pkg/payment"
)

// PasswordVerifier re-authenticates a user before a privileged action.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, userID, password string) error
}

// FeeLifecycle drives weekly fees through the provider and the status machine.
type FeeLifecycle struct {
	fees      FeeStore
	tenants   TenantStore
	gateway   payment.Gateway
	passwords PasswordVerifier
	loc       *time.Location
	dueDays   int
	now       func() time.Time
	log       *slog.Logger
}

// NewFeeLifecycle creates a new FeeLifecycle. Charges fall due dueDays after
// they are requested, counted in loc.
func NewFeeLifecycle(fees FeeStore, tenants TenantStore, gateway payment.Gateway, passwords PasswordVerifier, loc *time.Location, dueDays int, log *slog.Logger) *FeeLifecycle {
	return &FeeLifecycle{
		fees:      fees,
		tenants:   tenants,
		gateway:   gateway,
		passwords: passwords,
		loc:       loc,
		dueDays:   dueDays,
		now:       time.Now,
		log:       log,
	}
}

// List returns fees visible to the actor. Owners only see their own tenants.
func (l *FeeLifecycle) List(ctx context.Context, actor Actor, tenantID, status string) ([]*domain.WeeklyFee, error) {
	filter := domain.FeeFilter{Status: status}

	switch {
	case tenantID != "":
		t, err := loadTenant(ctx, l.tenants, tenantID)
		if err != nil {
			return nil, err
		}
		if err := authorizeTenant(actor, t); err != nil {
			return nil, err
		}
		filter.TenantIDs = []string{t.ID}
	case !actor.IsAdmin():
		owned, err := l.tenants.ListByOwner(ctx, actor.UserID)
		if err != nil {
			return nil, domain.ErrInternal("failed to list tenants", err)
		}
		if len(owned) == 0 {
			return []*domain.WeeklyFee{}, nil
		}
		for _, t := range owned {
			filter.TenantIDs = append(filter.TenantIDs, t.ID)
		}
	}

	fees, err := l.fees.List(ctx, filter)
	if err != nil {
		return nil, domain.ErrInternal("failed to list weekly fees", err)
	}
	if fees == nil {
		fees = []*domain.WeeklyFee{}
	}
	return fees, nil
}

// RequestCharge creates the provider charge of a pending fee. A fee already
// charged returns its stored invoice URL without calling the provider again.
func (l *FeeLifecycle) RequestCharge(ctx context.Context, actor Actor, req *domain.ChargeFeeRequest) (*domain.ChargeFeeResponse, error) {
	fee, t, err := l.loadAuthorized(ctx, actor, req.FeeID)
	if err != nil {
		return nil, err
	}

	switch fee.Status {
	case domain.FeeCreated:
		return &domain.ChargeFeeResponse{PaymentURL: deref(fee.AsaasInvoiceURL)}, nil
	case domain.FeePending:
	default:
		return nil, domain.ErrConflict(fmt.Sprintf("fee is %s and cannot be charged", fee.Status))
	}

	if fee.AmountDue <= 0 {
		return nil, domain.ErrValidation("fee has no amount due")
	}

	customerID, err := ensureCustomer(ctx, l.tenants, l.gateway, t)
	if err != nil {
		return nil, err
	}

	today := l.now().In(l.loc)
	due := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, l.loc).AddDate(0, 0, l.dueDays)

	charge, err := l.gateway.CreatePayment(ctx, payment.ChargeRequest{
		Customer:          customerID,
		BillingType:       req.Method,
		Value:             payment.FromCents(fee.AmountDue),
		DueDate:           due.Format(payment.DateLayout),
		Description:       feeDescription(fee, l.loc),
		ExternalReference: t.OwnerUserID,
	})
	if err != nil {
		return nil, domain.ErrProvider("failed to create charge", err)
	}

	method := req.Method
	ok, err := l.fees.Transition(ctx, fee.ID, domain.FeePending, domain.FeeCreated, domain.FeeChanges{
		AsaasPaymentID:  &charge.ID,
		AsaasInvoiceURL: &charge.InvoiceURL,
		BillingType:     &method,
		DueDate:         &due,
	})
	if err != nil {
		l.discardCharge(ctx, charge.ID)
		return nil, domain.ErrInternal("failed to record charge", err)
	}
	if !ok {
		// Another request moved the fee first; its charge wins.
		l.discardCharge(ctx, charge.ID)
		current, err := l.fees.FindByID(ctx, fee.ID)
		if err != nil {
			return nil, domain.ErrInternal("failed to reload weekly fee", err)
		}
		if current != nil && current.Status == domain.FeeCreated {
			return &domain.ChargeFeeResponse{PaymentURL: deref(current.AsaasInvoiceURL)}, nil
		}
		return nil, domain.ErrConflict("fee changed while charging, retry")
	}

	l.log.InfoContext(ctx, "weekly fee charged",
		"fee_id", fee.ID,
		"tenant_id", t.ID,
		"asaas_payment_id", charge.ID,
		"method", method,
	)
	return &domain.ChargeFeeResponse{PaymentURL: charge.InvoiceURL}, nil
}

// MarkPaid settles a fee outside the provider. The acting admin must confirm
// with their own password.
func (l *FeeLifecycle) MarkPaid(ctx context.Context, actor Actor, req *domain.MarkPaidRequest) (*domain.WeeklyFee, error) {
	if strings.TrimSpace(req.AdminPassword) == "" {
		return nil, domain.ErrValidation("adminPassword is required")
	}
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden("admin access required")
	}
	if err := l.passwords.VerifyPassword(ctx, actor.UserID, req.AdminPassword); err != nil {
		return nil, err
	}

	fee, err := l.loadFee(ctx, req.FeeID)
	if err != nil {
		return nil, err
	}
	if fee.Status == domain.FeePaid {
		return fee, nil
	}
	if !domain.CanTransitionFee(fee.Status, domain.FeePaid) {
		return nil, domain.ErrConflict(fmt.Sprintf("fee is %s and cannot be marked paid", fee.Status))
	}

	now := l.now()
	ok, err := l.fees.Transition(ctx, fee.ID, fee.Status, domain.FeePaid, domain.FeeChanges{PaymentDate: &now})
	if err != nil {
		return nil, domain.ErrInternal("failed to mark fee paid", err)
	}
	if !ok {
		return nil, domain.ErrConflict("fee changed concurrently, retry")
	}

	l.log.InfoContext(ctx, "weekly fee marked paid manually", "fee_id", fee.ID, "admin_id", actor.UserID, "from", fee.Status)
	return l.loadFee(ctx, fee.ID)
}

// Cancel voids a fee and deletes its provider charge, if any. Canceling a
// canceled fee is a no-op; a paid fee cannot be canceled.
func (l *FeeLifecycle) Cancel(ctx context.Context, actor Actor, feeID string) (*domain.WeeklyFee, error) {
	fee, _, err := l.loadAuthorized(ctx, actor, feeID)
	if err != nil {
		return nil, err
	}

	switch fee.Status {
	case domain.FeeCanceled:
		return fee, nil
	case domain.FeePaid:
		return nil, domain.ErrConflict("fee is paid and cannot be canceled")
	}

	if fee.AsaasPaymentID != nil && *fee.AsaasPaymentID != "" {
		if err := l.gateway.DeletePayment(ctx, *fee.AsaasPaymentID); err != nil {
			return nil, domain.ErrProvider("failed to delete charge", err)
		}
	}

	ok, err := l.fees.Transition(ctx, fee.ID, fee.Status, domain.FeeCanceled, domain.FeeChanges{})
	if err != nil {
		return nil, domain.ErrInternal("failed to cancel fee", err)
	}
	if !ok {
		return nil, domain.ErrConflict("fee changed concurrently, retry")
	}

	l.log.InfoContext(ctx, "weekly fee canceled", "fee_id", fee.ID, "actor_id", actor.UserID)
	return l.loadFee(ctx, fee.ID)
}

// ApplyProviderStatus moves a fee to the status reported by the provider.
// Transitions the status machine rejects are logged and skipped.
func (l *FeeLifecycle) ApplyProviderStatus(ctx context.Context, fee *domain.WeeklyFee, to string, at time.Time) error {
	if fee.Status == to {
		return nil
	}
	if !domain.CanTransitionFee(fee.Status, to) {
		l.log.WarnContext(ctx, "ignoring illegal fee transition", "fee_id", fee.ID, "from", fee.Status, "to", to)
		return nil
	}

	var changes domain.FeeChanges
	if to == domain.FeePaid {
		changes.PaymentDate = &at
	}

	ok, err := l.fees.Transition(ctx, fee.ID, fee.Status, to, changes)
	if err != nil {
		return domain.ErrInternal("failed to update weekly fee", err)
	}
	if !ok {
		l.log.WarnContext(ctx, "fee changed before provider status applied", "fee_id", fee.ID, "from", fee.Status, "to", to)
		return nil
	}

	l.log.InfoContext(ctx, "weekly fee updated from provider", "fee_id", fee.ID, "from", fee.Status, "to", to)
	return nil
}

func (l *FeeLifecycle) loadFee(ctx context.Context, id string) (*domain.WeeklyFee, error) {
	fee, err := l.fees.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to find weekly fee", err)
	}
	if fee == nil {
		return nil, domain.ErrNotFound("weekly fee not found")
	}
	return fee, nil
}

func (l *FeeLifecycle) loadAuthorized(ctx context.Context, actor Actor, feeID string) (*domain.WeeklyFee, *domain.Tenant, error) {
	fee, err := l.loadFee(ctx, feeID)
	if err != nil {
		return nil, nil, err
	}
	t, err := loadTenant(ctx, l.tenants, fee.TenantID)
	if err != nil {
		return nil, nil, err
	}
	if err := authorizeTenant(actor, t); err != nil {
		return nil, nil, err
	}
	return fee, t, nil
}

func (l *FeeLifecycle) discardCharge(ctx context.Context, paymentID string) {
	if err := l.gateway.DeletePayment(context.WithoutCancel(ctx), paymentID); err != nil {
		l.log.ErrorContext(ctx, "failed to delete orphan charge", "asaas_payment_id", paymentID, logger.Error(err))
	}
}

func feeDescription(fee *domain.WeeklyFee, loc *time.Location) string {
	last := fee.WeekEnd.In(loc).AddDate(0, 0, -1)
	return fmt.Sprintf("Comissão semanal %s a %s",
		fee.WeekStart.In(loc).Format("02/01/2006"), last.Format("02/01/2006"))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
