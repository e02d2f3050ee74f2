package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/conexx/hub/internal/domain"
	"github.com/conexx/hub/pkg/logger"
	"github.com/conexx/hub/pkg/payment"
)

// EventHandler applies a claimed provider event to local state.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev *payment.Event) error
}

// WebhookService is the idempotency gate in front of the event handler. Each
// (provider, key) pair is handled at most once; a failed attempt is retried on
// the next delivery.
type WebhookService struct {
	events  EventStore
	handler EventHandler
	log     *slog.Logger
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(events EventStore, handler EventHandler, log *slog.Logger) *WebhookService {
	return &WebhookService{events: events, handler: handler, log: log}
}

// EventKey returns the idempotency key of an event: the provider event ID, or
// "<event>:<object id>" when the provider sent none.
func EventKey(ev *payment.Event) (string, error) {
	if ev.Event == "" {
		return "", domain.ErrValidation("event type is required")
	}
	if ev.ID != "" {
		return ev.ID, nil
	}
	objectID := ev.ObjectID()
	if objectID == "" {
		return "", domain.ErrValidation("event id or object id is required")
	}
	return ev.Event + ":" + objectID, nil
}

// Process records and handles one delivery. A repeated delivery returns
// domain.ErrDuplicateEvent without touching any state.
func (s *WebhookService) Process(ctx context.Context, body []byte) error {
	ev, err := payment.ParseEvent(body)
	if err != nil {
		return domain.ErrBadRequest("invalid webhook payload")
	}

	key, err := EventKey(ev)
	if err != nil {
		return err
	}

	rec := &domain.WebhookEvent{
		ID:       domain.NewID(),
		Provider: domain.ProviderAsaas,
		EventID:  key,
		Type:     ev.Event,
		Payload:  body,
		Status:   domain.WebhookReceived,
	}

	claimed, err := s.events.Claim(ctx, rec)
	if err != nil {
		return domain.ErrInternal("failed to record webhook event", err)
	}
	if !claimed {
		s.log.InfoContext(ctx, "duplicate webhook ignored", "event_key", key, "event", ev.Event)
		return domain.ErrDuplicateEvent
	}

	log := s.log.With("event_key", key, "event", ev.Event, "webhook_event_id", rec.ID)

	if err := s.handler.HandleEvent(ctx, ev); err != nil {
		// Record the failure even if the request was canceled.
		if markErr := s.events.MarkError(context.WithoutCancel(ctx), rec.ID, err.Error()); markErr != nil {
			log.ErrorContext(ctx, "failed to mark webhook error", logger.Error(markErr))
		}
		log.ErrorContext(ctx, "webhook processing failed", logger.Error(err))
		return err
	}

	if err := s.events.MarkProcessed(context.WithoutCancel(ctx), rec.ID); err != nil {
		return domain.ErrInternal("failed to mark webhook processed", err)
	}

	log.InfoContext(ctx, "webhook processed")
	return nil
}

// ListEvents returns recent events for inspection, optionally filtered by status.
func (s *WebhookService) ListEvents(ctx context.Context, status string, limit int) ([]*domain.WebhookEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	events, err := s.events.List(ctx, status, limit)
	if err != nil {
		return nil, domain.ErrInternal("failed to list webhook events", err)
	}
	if events == nil {
		events = []*domain.WebhookEvent{}
	}
	return events, nil
}

// IsDuplicate reports whether err is the duplicate-delivery short-circuit.
func IsDuplicate(err error) bool {
	return errors.Is(err, domain.ErrDuplicateEvent)
}
