package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/conexx/hub/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const feeColumns = `id, tenant_id, week_start, week_end, revenue_week_cents, percent_applied,
	amount_due_cents, status, asaas_payment_id, asaas_invoice_url, billing_type,
	due_date, payment_date, created_at, updated_at`

// upsertPendingFee writes a computed fee. An existing row is only recalculated
// while still pending; once charged it is left as is. xmax = 0 marks an insert.
const upsertPendingFee = `
	INSERT INTO weekly_fees (id, tenant_id, week_start, week_end, revenue_week_cents,
		percent_applied, amount_due_cents, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
	ON CONFLICT (tenant_id, week_start) DO UPDATE
	SET week_end = EXCLUDED.week_end,
		revenue_week_cents = EXCLUDED.revenue_week_cents,
		percent_applied = EXCLUDED.percent_applied,
		amount_due_cents = EXCLUDED.amount_due_cents,
		updated_at = NOW()
	WHERE weekly_fees.status = 'pending'
	RETURNING (xmax = 0)
`

// WeeklyFeeRepository handles database operations for weekly fees.
type WeeklyFeeRepository struct {
	db *pgxpool.Pool
}

// NewWeeklyFeeRepository creates a new WeeklyFeeRepository.
func NewWeeklyFeeRepository(db *pgxpool.Pool) *WeeklyFeeRepository {
	return &WeeklyFeeRepository{db: db}
}

func scanFee(row pgx.Row) (*domain.WeeklyFee, error) {
	var f domain.WeeklyFee
	err := row.Scan(
		&f.ID, &f.TenantID, &f.WeekStart, &f.WeekEnd, &f.RevenueWeek, &f.PercentApplied,
		&f.AmountDue, &f.Status, &f.AsaasPaymentID, &f.AsaasInvoiceURL, &f.BillingType,
		&f.DueDate, &f.PaymentDate, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *WeeklyFeeRepository) findOne(ctx context.Context, where string, args ...any) (*domain.WeeklyFee, error) {
	f, err := scanFee(r.db.QueryRow(ctx, `SELECT `+feeColumns+` FROM weekly_fees WHERE `+where, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find weekly fee: %w", err)
	}
	return f, nil
}

// FindByID returns a fee by ID, or nil if none exists.
func (r *WeeklyFeeRepository) FindByID(ctx context.Context, id string) (*domain.WeeklyFee, error) {
	return r.findOne(ctx, `id = $1`, id)
}

// FindByTenantWeek returns the fee of a tenant for the week starting at weekStart.
func (r *WeeklyFeeRepository) FindByTenantWeek(ctx context.Context, tenantID string, weekStart time.Time) (*domain.WeeklyFee, error) {
	return r.findOne(ctx, `tenant_id = $1 AND week_start = $2`, tenantID, weekStart)
}

// FindByAsaasPaymentID returns the fee charged by a provider payment.
func (r *WeeklyFeeRepository) FindByAsaasPaymentID(ctx context.Context, paymentID string) (*domain.WeeklyFee, error) {
	return r.findOne(ctx, `asaas_payment_id = $1`, paymentID)
}

// UpsertPending stores a computed fee and returns the row as persisted, which
// differs from f when the existing fee was past pending.
func (r *WeeklyFeeRepository) UpsertPending(ctx context.Context, f *domain.WeeklyFee) (*domain.WeeklyFee, error) {
	var inserted bool
	err := r.db.QueryRow(ctx, upsertPendingFee,
		f.ID, f.TenantID, f.WeekStart, f.WeekEnd, f.RevenueWeek, f.PercentApplied, f.AmountDue,
	).Scan(&inserted)
	if err != nil && !isNoRows(err) {
		return nil, fmt.Errorf("failed to upsert weekly fee: %w", err)
	}
	return r.FindByTenantWeek(ctx, f.TenantID, f.WeekStart)
}

// CommitBatch upserts fees in one transaction and returns how many rows were created.
func (r *WeeklyFeeRepository) CommitBatch(ctx context.Context, fees []*domain.WeeklyFee) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, f := range fees {
		batch.Queue(upsertPendingFee,
			f.ID, f.TenantID, f.WeekStart, f.WeekEnd, f.RevenueWeek, f.PercentApplied, f.AmountDue)
	}

	results := tx.SendBatch(ctx, batch)
	created := 0
	for range fees {
		var inserted bool
		err := results.QueryRow().Scan(&inserted)
		if err != nil {
			if isNoRows(err) {
				continue
			}
			results.Close()
			return 0, fmt.Errorf("failed to upsert weekly fee: %w", err)
		}
		if inserted {
			created++
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit weekly fees: %w", err)
	}
	return created, nil
}

// Transition moves a fee from one status to another, writing the non-nil changes.
// It reports false when the fee was no longer in the from status.
func (r *WeeklyFeeRepository) Transition(ctx context.Context, id, from, to string, c domain.FeeChanges) (bool, error) {
	query := `
		UPDATE weekly_fees
		SET status = $3,
			asaas_payment_id = COALESCE($4, asaas_payment_id),
			asaas_invoice_url = COALESCE($5, asaas_invoice_url),
			billing_type = COALESCE($6, billing_type),
			due_date = COALESCE($7, due_date),
			payment_date = COALESCE($8, payment_date),
			updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	tag, err := r.db.Exec(ctx, query, id, from, to,
		c.AsaasPaymentID, c.AsaasInvoiceURL, c.BillingType, c.DueDate, c.PaymentDate,
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition weekly fee: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List returns fees matching the filter, newest week first.
func (r *WeeklyFeeRepository) List(ctx context.Context, filter domain.FeeFilter) ([]*domain.WeeklyFee, error) {
	query := `
		SELECT ` + feeColumns + `
		FROM weekly_fees
		WHERE (cardinality($1::text[]) = 0 OR tenant_id = ANY($1))
		  AND ($2 = '' OR status = $2)
		ORDER BY week_start DESC, tenant_id
	`
	tenantIDs := filter.TenantIDs
	if tenantIDs == nil {
		tenantIDs = []string{}
	}
	rows, err := r.db.Query(ctx, query, tenantIDs, filter.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly fees: %w", err)
	}
	defer rows.Close()

	var fees []*domain.WeeklyFee
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weekly fee: %w", err)
		}
		fees = append(fees, f)
	}
	return fees, rows.Err()
}

// SumByStatus totals amount due per status.
func (r *WeeklyFeeRepository) SumByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COALESCE(SUM(amount_due_cents), 0) FROM weekly_fees GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to sum weekly fees: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]int64)
	for rows.Next() {
		var status string
		var total int64
		if err := rows.Scan(&status, &total); err != nil {
			return nil, fmt.Errorf("failed to scan fee sum: %w", err)
		}
		sums[status] = total
	}
	return sums, rows.Err()
}
