package repository

import (
	"context"
	"fmt"

	"github.com/conexx/hub/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const webhookEventColumns = `id, provider, event_id, event_type, payload, status,
	error_message, processed_at, created_at, updated_at`

// WebhookEventRepository persists the inbound event log used for idempotency.
type WebhookEventRepository struct {
	db *pgxpool.Pool
}

// NewWebhookEventRepository creates a new WebhookEventRepository.
func NewWebhookEventRepository(db *pgxpool.Pool) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Claim records a delivery and reports whether the caller owns processing it.
//
// A new (provider, event_id) is inserted as received. An existing row in error
// status is taken back to received so the delivery is retried; any other
// existing row is a duplicate and Claim returns false. On a successful claim
// ev.ID holds the stored row ID.
func (r *WebhookEventRepository) Claim(ctx context.Context, ev *domain.WebhookEvent) (bool, error) {
	insert := `
		INSERT INTO webhook_events (id, provider, event_id, event_type, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, event_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, insert,
		ev.ID, ev.Provider, ev.EventID, ev.Type, string(ev.Payload), domain.WebhookReceived,
	)
	if err != nil {
		if IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	reclaim := `
		UPDATE webhook_events
		SET status = $3, payload = $4, error_message = NULL, updated_at = NOW()
		WHERE provider = $1 AND event_id = $2 AND status = $5
		RETURNING id
	`
	var id string
	err = r.db.QueryRow(ctx, reclaim,
		ev.Provider, ev.EventID, domain.WebhookReceived, string(ev.Payload), domain.WebhookError,
	).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to reclaim webhook event: %w", err)
	}
	ev.ID = id
	return true, nil
}

// MarkProcessed closes a claimed event.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id string) error {
	query := `
		UPDATE webhook_events
		SET status = $2, error_message = NULL, processed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id, domain.WebhookProcessed); err != nil {
		return fmt.Errorf("failed to mark webhook processed: %w", err)
	}
	return nil
}

// MarkError records a processing failure; the row becomes eligible for redelivery.
func (r *WebhookEventRepository) MarkError(ctx context.Context, id, message string) error {
	query := `
		UPDATE webhook_events
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id, domain.WebhookError, message); err != nil {
		return fmt.Errorf("failed to mark webhook error: %w", err)
	}
	return nil
}

// List returns the most recent events, optionally filtered by status.
func (r *WebhookEventRepository) List(ctx context.Context, status string, limit int) ([]*domain.WebhookEvent, error) {
	query := `
		SELECT ` + webhookEventColumns + `
		FROM webhook_events
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook events: %w", err)
	}
	defer rows.Close()

	var events []*domain.WebhookEvent
	for rows.Next() {
		ev, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountByStatus groups the event log by status.
func (r *WebhookEventRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM webhook_events GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count webhook events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan webhook count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanWebhookEvent(row pgx.Row) (*domain.WebhookEvent, error) {
	var ev domain.WebhookEvent
	var payload []byte
	err := row.Scan(
		&ev.ID, &ev.Provider, &ev.EventID, &ev.Type, &payload, &ev.Status,
		&ev.ErrorMessage, &ev.ProcessedAt, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ev.Payload = payload
	return &ev, nil
}
