package service

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/conexx/hub/internal/domain"
	"github.com/conexx/hub/pkg/logger"
	"github.com/conexx/hub/pkg/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	calls atomic.Int32
	err   error
}

func (h *countingHandler) HandleEvent(context.Context, *payment.Event) error {
	h.calls.Add(1)
	return h.err
}

func TestEventKey(t *testing.T) {
	key, err := EventKey(&payment.Event{ID: "evt_1", Event: "PAYMENT_CONFIRMED"})
	require.NoError(t, err)
	assert.Equal(t, "evt_1", key)

	ev, err := payment.ParseEvent([]byte(`{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_1"}}`))
	require.NoError(t, err)
	key, err = EventKey(ev)
	require.NoError(t, err)
	assert.Equal(t, "PAYMENT_CONFIRMED:pay_1", key)

	_, err = EventKey(&payment.Event{Event: "PAYMENT_CONFIRMED"})
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Code)

	_, err = EventKey(&payment.Event{ID: "evt_1"})
	require.Error(t, err)
}

func TestWebhookService_DuplicateDeliveryIsNoop(t *testing.T) {
	h := &countingHandler{}
	events := newFakeEvents()
	svc := NewWebhookService(events, h, logger.Discard())

	body := []byte(`{"id":"evt_1","event":"PAYMENT_CONFIRMED","payment":{"id":"pay_1"}}`)
	require.NoError(t, svc.Process(context.Background(), body))

	err := svc.Process(context.Background(), body)
	assert.True(t, IsDuplicate(err))
	assert.Equal(t, int32(1), h.calls.Load())
	assert.Equal(t, domain.WebhookProcessed, events.get("evt_1").Status)
}

func TestWebhookService_FailedEventIsRetried(t *testing.T) {
	h := &countingHandler{err: domain.ErrNotFound("subscription not found")}
	events := newFakeEvents()
	svc := NewWebhookService(events, h, logger.Discard())

	body := []byte(`{"id":"evt_2","event":"SUBSCRIPTION_CREATED","subscription":{"id":"sub_x"}}`)
	err := svc.Process(context.Background(), body)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))

	stored := events.get("evt_2")
	require.NotNil(t, stored)
	assert.Equal(t, domain.WebhookError, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "subscription not found")

	h.err = nil
	require.NoError(t, svc.Process(context.Background(), body))
	assert.Equal(t, int32(2), h.calls.Load())
	assert.Equal(t, domain.WebhookProcessed, events.get("evt_2").Status)

	assert.True(t, IsDuplicate(svc.Process(context.Background(), body)))
	assert.Equal(t, int32(2), h.calls.Load())
}

func TestWebhookService_RejectsBadPayloads(t *testing.T) {
	h := &countingHandler{}
	svc := NewWebhookService(newFakeEvents(), h, logger.Discard())

	err := svc.Process(context.Background(), []byte(`{`))
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)

	err = svc.Process(context.Background(), []byte(`{"event":"PAYMENT_CONFIRMED"}`))
	appErr, ok = domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Code)

	assert.Zero(t, h.calls.Load())
}

func TestWebhookService_ConfirmedPaymentEndToEnd(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, saoPaulo)
	b := newBilling(now)

	owner := b.users.add(domain.RoleOwner, "pw")
	tenant := b.tenants.add(owner, 10)
	payID := "pay_77"
	fee := b.fees.put(&domain.WeeklyFee{
		TenantID:       tenant.ID,
		WeekStart:      time.Date(2024, 1, 1, 0, 0, 0, 0, saoPaulo),
		WeekEnd:        time.Date(2024, 1, 8, 0, 0, 0, 0, saoPaulo),
		AmountDue:      50000,
		Status:         domain.FeeCreated,
		AsaasPaymentID: &payID,
	})

	body := []byte(`{"id":"evt_pay_77","event":"PAYMENT_CONFIRMED","payment":{"id":"pay_77","value":500,"billingType":"PIX","externalReference":"` + owner.ID + `"}}`)
	require.NoError(t, b.webhooks.Process(context.Background(), body))

	p := b.payments.get("pay_77")
	require.NotNil(t, p)
	assert.Equal(t, domain.PaymentPaid, p.Status)
	require.NotNil(t, p.PaidAt)
	assert.Equal(t, now, *p.PaidAt)
	assert.Equal(t, int64(50000), p.Value)
	require.NotNil(t, p.TenantID)
	assert.Equal(t, tenant.ID, *p.TenantID)

	paid := b.fees.get(fee.ID)
	assert.Equal(t, domain.FeePaid, paid.Status)
	require.NotNil(t, paid.PaymentDate)

	// Redelivery changes nothing.
	err := b.webhooks.Process(context.Background(), body)
	assert.True(t, errors.Is(err, domain.ErrDuplicateEvent))
	assert.Equal(t, now, *b.payments.get("pay_77").PaidAt)
}
