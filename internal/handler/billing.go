package handler

import (
	"net/http"

	"github.com/conexx/hub/internal/domain"
	"github.com/conexx/hub/internal/service"
)

// BillingHandler handles platform plan subscriptions.
type BillingHandler struct {
	subscriptions *service.SubscriptionService
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(subscriptions *service.SubscriptionService) *BillingHandler {
	return &BillingHandler{subscriptions: subscriptions}
}

// Checkout handles POST /api/billing/subscription.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req domain.CreateSubscriptionRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.subscriptions.Checkout(r.Context(), actor, &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, resp)
}

// GetSubscription handles GET /api/billing/subscription?tenantId=.
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	tenantID := r.URL.Query().Get("tenantId")
	if tenantID == "" {
		Error(w, domain.ErrValidation("tenantId is required"))
		return
	}

	sub, err := h.subscriptions.GetCurrent(r.Context(), actor, tenantID)
	if err != nil {
		Error(w, err)
		return
	}

	if sub == nil {
		JSON(w, http.StatusOK, map[string]string{"status": domain.TenantSubscriptionNone})
		return
	}
	JSON(w, http.StatusOK, sub)
}
