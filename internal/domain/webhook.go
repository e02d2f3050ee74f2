package domain

import (
	"encoding/json"
	"time"
)

// Webhook event log statuses.
const (
	WebhookReceived  = "received"
	WebhookProcessed = "processed"
	WebhookError     = "error"
)

// ProviderAsaas identifies events delivered by the Asaas payment provider.
const ProviderAsaas = "asaas"

// WebhookEvent is one inbound provider callback, keyed for idempotency by (Provider, EventID).
type WebhookEvent struct {
	ID           string          `json:"id"`
	Provider     string          `json:"provider"`
	EventID      string          `json:"eventId"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	ErrorMessage *string         `json:"errorMessage,omitempty"`
	ProcessedAt  *time.Time      `json:"processedAt,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
