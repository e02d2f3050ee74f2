package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/conexx/hub/internal/domain"
)

// TenantCounter counts tenants per subscription status.
type TenantCounter interface {
	CountBySubscriptionStatus(ctx context.Context) (map[string]int, error)
}

// FeeSummer totals weekly fee amounts per status.
type FeeSummer interface {
	SumByStatus(ctx context.Context) (map[string]int64, error)
}

// EventCounter counts webhook events per status.
type EventCounter interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// EventLister lists recorded webhook events.
type EventLister interface {
	ListEvents(ctx context.Context, status string, limit int) ([]*domain.WebhookEvent, error)
}

// AdminHandler serves the operator dashboard.
type AdminHandler struct {
	tenants  TenantCounter
	fees     FeeSummer
	events   EventCounter
	webhooks EventLister
}

func NewAdminHandler(tenants TenantCounter, fees FeeSummer, events EventCounter, webhooks EventLister) *AdminHandler {
	return &AdminHandler{tenants: tenants, fees: fees, events: events, webhooks: webhooks}
}

// GetStats returns tenant, fee and webhook counters.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenants, err := h.tenants.CountBySubscriptionStatus(ctx)
	if err != nil {
		Error(w, domain.ErrInternal("failed to count tenants", err))
		return
	}
	fees, err := h.fees.SumByStatus(ctx)
	if err != nil {
		Error(w, domain.ErrInternal("failed to sum weekly fees", err))
		return
	}
	events, err := h.events.CountByStatus(ctx)
	if err != nil {
		Error(w, domain.ErrInternal("failed to count webhook events", err))
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"tenantsBySubscription": tenants,
		"feeAmountByStatus":     fees,
		"webhookEventsByStatus": events,
	})
}

// ListWebhookEvents handles GET /api/admin/webhook-events?status=&limit=.
func (h *AdminHandler) ListWebhookEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	events, err := h.webhooks.ListEvents(r.Context(), q.Get("status"), limit)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, events)
}
