package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/conexx/hub/internal/domain"
	"github.com/conexx/hub/internal/service"
	"github.com/conexx/hub/pkg/payment"
)

// WebhookProcessor records and applies one provider delivery.
type WebhookProcessor interface {
	Process(ctx context.Context, body []byte) error
}

// WebhookHandler receives payment provider callbacks.
type WebhookHandler struct {
	processor WebhookProcessor
	token     string
}

// NewWebhookHandler creates a WebhookHandler. An empty token disables the header check.
func NewWebhookHandler(processor WebhookProcessor, token string) *WebhookHandler {
	return &WebhookHandler{processor: processor, token: token}
}

// HandleAsaas handles POST /api/webhooks/asaas. Any processing failure answers
// 500 so the provider redelivers; duplicates answer 200.
func (h *WebhookHandler) HandleAsaas(w http.ResponseWriter, r *http.Request) {
	if !payment.VerifyWebhookToken(h.token, r.Header.Get("asaas-access-token")) {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid webhook token"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		Error(w, domain.ErrBadRequest("failed to read body"))
		return
	}

	if err := h.processor.Process(r.Context(), body); err != nil {
		if service.IsDuplicate(err) {
			JSON(w, http.StatusOK, map[string]string{"message": "Event already processed"})
			return
		}
		msg := "webhook processing failed"
		if appErr, ok := domain.AsAppError(err); ok {
			msg = appErr.Message
		}
		JSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
