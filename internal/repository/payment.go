package repository

import (
	"context"
	"fmt"

	"github.com/conexx/hub/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository mirrors provider payments.
type PaymentRepository struct {
	db *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Upsert inserts or updates a payment keyed by its provider ID. A paid_at
// already recorded is never overwritten, and a paid row is not moved back
// to pending.
func (r *PaymentRepository) Upsert(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (id, user_id, tenant_id, asaas_payment_id, asaas_subscription_id,
			status, value_cents, billing_type, due_date, paid_at, external_reference, invoice_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (asaas_payment_id) DO UPDATE
		SET user_id = COALESCE(EXCLUDED.user_id, payments.user_id),
			tenant_id = COALESCE(EXCLUDED.tenant_id, payments.tenant_id),
			asaas_subscription_id = COALESCE(EXCLUDED.asaas_subscription_id, payments.asaas_subscription_id),
			status = CASE
				WHEN payments.status = 'paid' AND EXCLUDED.status = 'pending' THEN payments.status
				ELSE EXCLUDED.status
			END,
			value_cents = EXCLUDED.value_cents,
			billing_type = EXCLUDED.billing_type,
			due_date = COALESCE(EXCLUDED.due_date, payments.due_date),
			paid_at = COALESCE(payments.paid_at, EXCLUDED.paid_at),
			external_reference = EXCLUDED.external_reference,
			invoice_url = COALESCE(NULLIF(EXCLUDED.invoice_url, ''), payments.invoice_url),
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.UserID, p.TenantID, p.AsaasPaymentID, p.AsaasSubscriptionID,
		p.Status, p.Value, p.BillingType, p.DueDate, p.PaidAt, p.ExternalReference, p.InvoiceURL,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert payment: %w", err)
	}
	return nil
}
