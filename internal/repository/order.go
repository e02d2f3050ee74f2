package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/conexx/hub/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderRepository stores imported storefront orders.
type OrderRepository struct {
	db *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

// UpsertBatch writes orders keyed by (tenant, external ID) in one transaction.
func (r *OrderRepository) UpsertBatch(ctx context.Context, tenantID string, orders []domain.Order) (int, error) {
	query := `
		INSERT INTO orders (id, tenant_id, external_id, status, value_cents, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, external_id) DO UPDATE
		SET status = EXCLUDED.status,
			value_cents = EXCLUDED.value_cents,
			placed_at = EXCLUDED.placed_at
	`

	batch := &pgx.Batch{}
	for _, o := range orders {
		batch.Queue(query, domain.NewID(), tenantID, o.ExternalID, o.Status, o.Value, o.PlacedAt)
	}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert orders: %w", err)
	}
	return len(orders), nil
}

// SumApproved totals approved order value placed in [from, to).
func (r *OrderRepository) SumApproved(ctx context.Context, tenantID string, from, to time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(value_cents), 0)
		FROM orders
		WHERE tenant_id = $1 AND status = $2 AND placed_at >= $3 AND placed_at < $4
	`
	var total int64
	if err := r.db.QueryRow(ctx, query, tenantID, domain.OrderApproved, from, to).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum orders: %w", err)
	}
	return total, nil
}
