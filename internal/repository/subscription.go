package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/conexx/hub/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const subscriptionColumns = `id, user_id, tenant_id, plan_id, asaas_subscription_id, status,
	value_cents, cycle, next_due_date, created_at, updated_at`

// SubscriptionRepository handles database operations for platform subscriptions.
type SubscriptionRepository struct {
	db *pgxpool.Pool
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	err := row.Scan(
		&s.ID, &s.UserID, &s.TenantID, &s.PlanID, &s.AsaasSubscriptionID, &s.Status,
		&s.Value, &s.Cycle, &s.NextDueDate, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new subscription.
func (r *SubscriptionRepository) Create(ctx context.Context, s *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, user_id, tenant_id, plan_id, asaas_subscription_id,
			status, value_cents, cycle, next_due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		s.ID, s.UserID, s.TenantID, s.PlanID, s.AsaasSubscriptionID,
		s.Status, s.Value, s.Cycle, s.NextDueDate, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// FindByAsaasID returns the subscription with the given provider ID, or nil.
func (r *SubscriptionRepository) FindByAsaasID(ctx context.Context, asaasID string) (*domain.Subscription, error) {
	s, err := scanSubscription(r.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE asaas_subscription_id = $1`, asaasID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return s, nil
}

// FindLatestByTenant returns the most recently requested subscription of a tenant.
func (r *SubscriptionRepository) FindLatestByTenant(ctx context.Context, tenantID string) (*domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions WHERE tenant_id = $1
		ORDER BY created_at DESC LIMIT 1
	`
	s, err := scanSubscription(r.db.QueryRow(ctx, query, tenantID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return s, nil
}

// UpdateFromProvider writes the fields carried by a subscription event.
// An empty status keeps the current one.
func (r *SubscriptionRepository) UpdateFromProvider(ctx context.Context, id, status string, value int64, cycle string, nextDue *time.Time) error {
	query := `
		UPDATE subscriptions
		SET status = COALESCE(NULLIF($2, ''), status),
			value_cents = $3,
			cycle = $4,
			next_due_date = COALESCE($5, next_due_date),
			updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id, status, value, cycle, nextDue); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}
