package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/conexx/hub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

type lifecycleFixture struct {
	*billing
	owner  *domain.User
	admin  *domain.User
	tenant *domain.Tenant
	fee    *domain.WeeklyFee
}

func newLifecycleFixture(t *testing.T, now time.Time) *lifecycleFixture {
	t.Helper()
	b := newBilling(now)
	owner := b.users.add(domain.RoleOwner, "owner-pw")
	admin := b.users.add(domain.RoleAdmin, "admin-pw")
	tenant := b.tenants.add(owner, 10)
	fee := b.fees.put(&domain.WeeklyFee{
		TenantID:       tenant.ID,
		WeekStart:      time.Date(2024, 1, 1, 0, 0, 0, 0, saoPaulo),
		WeekEnd:        time.Date(2024, 1, 8, 0, 0, 0, 0, saoPaulo),
		RevenueWeek:    500000,
		PercentApplied: 10,
		AmountDue:      50000,
		Status:         domain.FeePending,
	})
	return &lifecycleFixture{billing: b, owner: owner, admin: admin, tenant: tenant, fee: fee}
}

func (f *lifecycleFixture) ownerActor() Actor {
	return Actor{UserID: f.owner.ID, Role: domain.RoleOwner}
}

func (f *lifecycleFixture) adminActor() Actor {
	return Actor{UserID: f.admin.ID, Role: domain.RoleAdmin}
}

func TestFeeLifecycle_RequestCharge(t *testing.T) {
	now := time.Date(2024, 1, 9, 22, 30, 0, 0, saoPaulo)
	f := newLifecycleFixture(t, now)
	ctx := context.Background()

	resp, err := f.lifecycle.RequestCharge(ctx, f.ownerActor(), &domain.ChargeFeeRequest{FeeID: f.fee.ID, Method: domain.MethodPIX})
	require.NoError(t, err)
	assert.Equal(t, "https://asaas.test/i/pay_2", resp.PaymentURL)

	require.Len(t, f.gateway.customers, 1)
	require.Len(t, f.gateway.charges, 1)
	charge := f.gateway.charges[0]
	assert.Equal(t, "cus_1", charge.Customer)
	assert.Equal(t, "PIX", charge.BillingType)
	assert.InDelta(t, 500.0, charge.Value, 0.001)
	assert.Equal(t, "2024-01-12", charge.DueDate)
	assert.Equal(t, f.owner.ID, charge.ExternalReference)
	assert.Contains(t, charge.Description, "01/01/2024 a 07/01/2024")

	stored := f.fees.get(f.fee.ID)
	assert.Equal(t, domain.FeeCreated, stored.Status)
	require.NotNil(t, stored.AsaasPaymentID)
	assert.Equal(t, "pay_2", *stored.AsaasPaymentID)
	require.NotNil(t, stored.BillingType)
	assert.Equal(t, domain.MethodPIX, *stored.BillingType)

	// Asking again returns the same URL without a second charge.
	again, err := f.lifecycle.RequestCharge(ctx, f.ownerActor(), &domain.ChargeFeeRequest{FeeID: f.fee.ID, Method: domain.MethodBoleto})
	require.NoError(t, err)
	assert.Equal(t, resp.PaymentURL, again.PaymentURL)
	assert.Len(t, f.gateway.charges, 1)
}

func TestFeeLifecycle_RequestChargeForeignTenant(t *testing.T) {
	f := newLifecycleFixture(t, time.Now())
	stranger := f.users.add(domain.RoleOwner, "pw")

	_, err := f.lifecycle.RequestCharge(context.Background(), Actor{UserID: stranger.ID, Role: domain.RoleOwner},
		&domain.ChargeFeeRequest{FeeID: f.fee.ID, Method: domain.MethodPIX})
	requireCode(t, err, http.StatusForbidden)
	assert.Empty(t, f.gateway.charges)
}

func TestFeeLifecycle_RequestChargeProviderFailure(t *testing.T) {
	f := newLifecycleFixture(t, time.Now())
	f.gateway.createPaymentErr = errors.New("boom")

	_, err := f.lifecycle.RequestCharge(context.Background(), f.ownerActor(),
		&domain.ChargeFeeRequest{FeeID: f.fee.ID, Method: domain.MethodPIX})
	requireCode(t, err, http.StatusBadGateway)
	assert.Equal(t, domain.FeePending, f.fees.get(f.fee.ID).Status)
}

func TestFeeLifecycle_RequestChargeLostRace(t *testing.T) {
	f := newLifecycleFixture(t, time.Now())
	winner := "pay_winner"
	winnerURL := "https://asaas.test/i/pay_winner"
	f.fees.beforeTransition = func(fee *domain.WeeklyFee) {
		fee.Status = domain.FeeCreated
		fee.AsaasPaymentID = &winner
		fee.AsaasInvoiceURL = &winnerURL
	}

	resp, err := f.lifecycle.RequestCharge(context.Background(), f.ownerActor(),
		&domain.ChargeFeeRequest{FeeID: f.fee.ID, Method: domain.MethodPIX})
	require.NoError(t, err)
	assert.Equal(t, winnerURL, resp.PaymentURL)
	assert.Equal(t, []string{"pay_2"}, f.gateway.deleted)
}

func TestFeeLifecycle_MarkPaid(t *testing.T) {
	now := time.Date(2024, 1, 9, 10, 0, 0, 0, saoPaulo)
	ctx := context.Background()

	t.Run("requires password", func(t *testing.T) {
		f := newLifecycleFixture(t, now)
		_, err := f.lifecycle.MarkPaid(ctx, f.adminActor(), &domain.MarkPaidRequest{FeeID: f.fee.ID})
		requireCode(t, err, http.StatusUnprocessableEntity)
		assert.Equal(t, domain.FeePending, f.fees.get(f.fee.ID).Status)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newLifecycleFixture(t, now)
		_, err := f.lifecycle.MarkPaid(ctx, f.adminActor(), &domain.MarkPaidRequest{FeeID: f.fee.ID, AdminPassword: "nope"})
		requireCode(t, err, http.StatusUnauthorized)
		assert.Equal(t, domain.FeePending, f.fees.get(f.fee.ID).Status)
	})

	t.Run("owner cannot", func(t *testing.T) {
		f := newLifecycleFixture(t, now)
		_, err := f.lifecycle.MarkPaid(ctx, f.ownerActor(), &domain.MarkPaidRequest{FeeID: f.fee.ID, AdminPassword: "owner-pw"})
		requireCode(t, err, http.StatusForbidden)
	})

	t.Run("marks paid", func(t *testing.T) {
		f := newLifecycleFixture(t, now)
		fee, err := f.lifecycle.MarkPaid(ctx, f.adminActor(), &domain.MarkPaidRequest{FeeID: f.fee.ID, AdminPassword: "admin-pw"})
		require.NoError(t, err)
		assert.Equal(t, domain.FeePaid, fee.Status)
		require.NotNil(t, fee.PaymentDate)
		assert.Equal(t, now, *fee.PaymentDate)

		// Idempotent once paid.
		fee, err = f.lifecycle.MarkPaid(ctx, f.adminActor(), &domain.MarkPaidRequest{FeeID: f.fee.ID, AdminPassword: "admin-pw"})
		require.NoError(t, err)
		assert.Equal(t, domain.FeePaid, fee.Status)
	})

	t.Run("canceled fee", func(t *testing.T) {
		f := newLifecycleFixture(t, now)
		_, err := f.fees.Transition(ctx, f.fee.ID, domain.FeePending, domain.FeeCanceled, domain.FeeChanges{})
		require.NoError(t, err)
		_, err = f.lifecycle.MarkPaid(ctx, f.adminActor(), &domain.MarkPaidRequest{FeeID: f.fee.ID, AdminPassword: "admin-pw"})
		requireCode(t, err, http.StatusConflict)
	})
}

func TestFeeLifecycle_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes provider charge", func(t *testing.T) {
		f := newLifecycleFixture(t, time.Now())
		_, err := f.lifecycle.RequestCharge(ctx, f.ownerActor(), &domain.ChargeFeeRequest{FeeID: f.fee.ID, Method: domain.MethodBoleto})
		require.NoError(t, err)

		fee, err := f.lifecycle.Cancel(ctx, f.adminActor(), f.fee.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.FeeCanceled, fee.Status)
		assert.Equal(t, []string{"pay_2"}, f.gateway.deleted)

		// Canceling again is a no-op.
		fee, err = f.lifecycle.Cancel(ctx, f.adminActor(), f.fee.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.FeeCanceled, fee.Status)
		assert.Len(t, f.gateway.deleted, 1)
	})

	t.Run("provider refusal keeps fee", func(t *testing.T) {
		f := newLifecycleFixture(t, time.Now())
		_, err := f.lifecycle.RequestCharge(ctx, f.ownerActor(), &domain.ChargeFeeRequest{FeeID: f.fee.ID, Method: domain.MethodPIX})
		require.NoError(t, err)
		f.gateway.deletePaymentErr = errors.New("already paid")

		_, err = f.lifecycle.Cancel(ctx, f.ownerActor(), f.fee.ID)
		requireCode(t, err, http.StatusBadGateway)
		assert.Equal(t, domain.FeeCreated, f.fees.get(f.fee.ID).Status)
	})

	t.Run("paid fee", func(t *testing.T) {
		f := newLifecycleFixture(t, time.Now())
		_, err := f.fees.Transition(ctx, f.fee.ID, domain.FeePending, domain.FeePaid, domain.FeeChanges{})
		require.NoError(t, err)

		_, err = f.lifecycle.Cancel(ctx, f.adminActor(), f.fee.ID)
		requireCode(t, err, http.StatusConflict)
	})
}

func TestFeeLifecycle_List(t *testing.T) {
	f := newLifecycleFixture(t, time.Now())
	other := f.users.add(domain.RoleOwner, "pw")
	otherTenant := f.tenants.add(other, 5)
	f.fees.put(&domain.WeeklyFee{TenantID: otherTenant.ID, WeekStart: time.Date(2024, 1, 1, 0, 0, 0, 0, saoPaulo), Status: domain.FeePending})
	ctx := context.Background()

	mine, err := f.lifecycle.List(ctx, f.ownerActor(), "", "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.fee.ID, mine[0].ID)

	all, err := f.lifecycle.List(ctx, f.adminActor(), "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.lifecycle.List(ctx, f.ownerActor(), otherTenant.ID, "")
	requireCode(t, err, http.StatusForbidden)

	none, err := f.lifecycle.List(ctx, Actor{UserID: domain.NewID(), Role: domain.RoleOwner}, "", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}
