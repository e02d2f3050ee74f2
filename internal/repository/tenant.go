package repository

import (
	"context"
	"fmt"

	"github.com/conexx/hub/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tenantColumns = `id, owner_user_id, name, document, email, company_percentage,
	cached_gross_revenue_cents, asaas_customer_id, plan_id, subscription_status,
	billing_cycle, next_billing, pending_plan_id, pending_billing_cycle,
	pending_payment_url, created_at, updated_at`

// TenantRepository handles database operations for tenants.
type TenantRepository struct {
	db *pgxpool.Pool
}

// NewTenantRepository creates a new TenantRepository.
func NewTenantRepository(db *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{db: db}
}

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(
		&t.ID, &t.OwnerUserID, &t.Name, &t.Document, &t.Email, &t.CompanyPercentage,
		&t.CachedGrossRevenue, &t.AsaasCustomerID, &t.PlanID, &t.SubscriptionStatus,
		&t.BillingCycle, &t.NextBilling, &t.PendingPlanID, &t.PendingBillingCycle,
		&t.PendingPaymentURL, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTenants(rows pgx.Rows) ([]*domain.Tenant, error) {
	defer rows.Close()
	var tenants []*domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// Create inserts a new tenant.
func (r *TenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, owner_user_id, name, document, email, company_percentage,
			subscription_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		t.ID, t.OwnerUserID, t.Name, t.Document, t.Email, t.CompanyPercentage,
		t.SubscriptionStatus, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// FindByID returns a tenant by ID, or nil if none exists.
func (r *TenantRepository) FindByID(ctx context.Context, id string) (*domain.Tenant, error) {
	t, err := scanTenant(r.db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find tenant: %w", err)
	}
	return t, nil
}

// List returns every tenant ordered by name.
func (r *TenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.db.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return collectTenants(rows)
}

// ListByOwner returns the tenants owned by a user.
func (r *TenantRepository) ListByOwner(ctx context.Context, ownerUserID string) ([]*domain.Tenant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE owner_user_id = $1 ORDER BY name`, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return collectTenants(rows)
}

// Update writes the mutable profile fields.
func (r *TenantRepository) Update(ctx context.Context, t *domain.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $2, email = $3, company_percentage = $4, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, t.ID, t.Name, t.Email, t.CompanyPercentage)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return nil
}

// SetCustomerID records the provider customer, keeping an existing one.
// It returns the customer ID stored after the call.
func (r *TenantRepository) SetCustomerID(ctx context.Context, tenantID, customerID string) (string, error) {
	query := `
		UPDATE tenants
		SET asaas_customer_id = COALESCE(asaas_customer_id, $2), updated_at = NOW()
		WHERE id = $1
		RETURNING asaas_customer_id
	`
	var stored string
	if err := r.db.QueryRow(ctx, query, tenantID, customerID).Scan(&stored); err != nil {
		return "", fmt.Errorf("failed to set customer id: %w", err)
	}
	return stored, nil
}

// SetPendingPlan reserves a requested plan change until the provider confirms it.
func (r *TenantRepository) SetPendingPlan(ctx context.Context, tenantID, planID, cycle, paymentURL string) error {
	query := `
		UPDATE tenants
		SET pending_plan_id = $2, pending_billing_cycle = $3, pending_payment_url = NULLIF($4, ''),
			subscription_status = CASE WHEN subscription_status = 'none' THEN 'pending' ELSE subscription_status END,
			updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, tenantID, planID, cycle, paymentURL)
	if err != nil {
		return fmt.Errorf("failed to set pending plan: %w", err)
	}
	return nil
}

// ApplySubscription copies a resolved subscription onto the tenant and clears the
// pending reservation. Empty plan or cycle leaves the current values.
func (r *TenantRepository) ApplySubscription(ctx context.Context, tenantID string, upd domain.TenantSubscriptionUpdate) error {
	query := `
		UPDATE tenants
		SET plan_id = COALESCE(NULLIF($2, ''), plan_id),
			billing_cycle = COALESCE(NULLIF($3, ''), billing_cycle),
			next_billing = COALESCE($4, next_billing),
			subscription_status = $5,
			pending_plan_id = NULL,
			pending_billing_cycle = NULL,
			pending_payment_url = NULL,
			updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, tenantID, upd.PlanID, upd.BillingCycle, upd.NextBilling, upd.SubscriptionStatus)
	if err != nil {
		return fmt.Errorf("failed to apply subscription: %w", err)
	}
	return nil
}

// SetSubscriptionStatus changes only the subscription status.
func (r *TenantRepository) SetSubscriptionStatus(ctx context.Context, tenantID, status string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE tenants SET subscription_status = $2, updated_at = NOW() WHERE id = $1`, tenantID, status)
	if err != nil {
		return fmt.Errorf("failed to set subscription status: %w", err)
	}
	return nil
}

// RefreshGrossRevenue recomputes the cached lifetime approved revenue.
func (r *TenantRepository) RefreshGrossRevenue(ctx context.Context, tenantID string) (int64, error) {
	query := `
		UPDATE tenants
		SET cached_gross_revenue_cents = (
				SELECT COALESCE(SUM(value_cents), 0) FROM orders
				WHERE tenant_id = $1 AND status = $2
			),
			updated_at = NOW()
		WHERE id = $1
		RETURNING cached_gross_revenue_cents
	`
	var total int64
	if err := r.db.QueryRow(ctx, query, tenantID, domain.OrderApproved).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to refresh gross revenue: %w", err)
	}
	return total, nil
}

// CountBySubscriptionStatus groups tenants by subscription status.
func (r *TenantRepository) CountBySubscriptionStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT subscription_status, COUNT(*) FROM tenants GROUP BY subscription_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tenants: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan tenant count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
