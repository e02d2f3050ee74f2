package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/conexx/hub/internal/domain"
	"github.com/conexx/hub/pkg/logger"
)

// maxRetroactiveWeeks bounds a single retroactive run.
const maxRetroactiveWeeks = 104

// FeeCalculator computes weekly fees from approved order revenue.
type FeeCalculator struct {
	fees    FeeStore
	tenants TenantStore
	orders  OrderStore
	loc     *time.Location
	log     *slog.Logger
}

// NewFeeCalculator creates a new FeeCalculator. Weeks are cut in loc.
func NewFeeCalculator(fees FeeStore, tenants TenantStore, orders OrderStore, loc *time.Location, log *slog.Logger) *FeeCalculator {
	return &FeeCalculator{fees: fees, tenants: tenants, orders: orders, loc: loc, log: log}
}

// Calculate computes the fee of a tenant for the week containing at and stores it.
// A fee already past pending is returned unchanged.
func (c *FeeCalculator) Calculate(ctx context.Context, tenantID string, at time.Time) (*domain.WeeklyFee, error) {
	t, err := loadTenant(ctx, c.tenants, tenantID)
	if err != nil {
		return nil, err
	}

	fee, err := c.compute(ctx, t, at)
	if err != nil {
		return nil, err
	}

	stored, err := c.fees.UpsertPending(ctx, fee)
	if err != nil {
		return nil, domain.ErrInternal("failed to store weekly fee", err)
	}
	if stored == nil {
		return nil, domain.ErrInternal("weekly fee vanished after upsert", nil)
	}

	c.log.InfoContext(ctx, "weekly fee calculated",
		"tenant_id", t.ID,
		"week_start", stored.WeekStart,
		"amount_due", stored.AmountDue,
		"status", stored.Status,
	)
	return stored, nil
}

// CalculateAll recalculates the week containing at for every tenant.
// Failures are logged per tenant and the run continues.
func (c *FeeCalculator) CalculateAll(ctx context.Context, at time.Time) (int, error) {
	tenants, err := c.tenants.List(ctx)
	if err != nil {
		return 0, domain.ErrInternal("failed to list tenants", err)
	}

	done := 0
	for _, t := range tenants {
		if _, err := c.Calculate(ctx, t.ID, at); err != nil {
			c.log.ErrorContext(ctx, "weekly fee calculation failed", "tenant_id", t.ID, logger.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

// Preview computes one line per (tenant, week) in [req.From, req.To) without writing.
func (c *FeeCalculator) Preview(ctx context.Context, req *domain.RetroactiveRequest) ([]domain.FeePreview, error) {
	weeks, err := c.weeks(req.From, req.To)
	if err != nil {
		return nil, err
	}

	tenants, err := c.selectTenants(ctx, req.TenantIDs)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.FeePreview, 0, len(tenants)*len(weeks))
	for _, t := range tenants {
		for _, week := range weeks {
			fee, err := c.compute(ctx, t, week)
			if err != nil {
				return nil, err
			}

			line := domain.FeePreview{
				TenantID:       t.ID,
				TenantName:     t.Name,
				WeekStart:      fee.WeekStart,
				WeekEnd:        fee.WeekEnd,
				RevenueWeek:    fee.RevenueWeek,
				PercentApplied: fee.PercentApplied,
				AmountDue:      fee.AmountDue,
			}

			existing, err := c.fees.FindByTenantWeek(ctx, t.ID, fee.WeekStart)
			if err != nil {
				return nil, domain.ErrInternal("failed to load weekly fee", err)
			}
			if existing != nil {
				line.ExistingStatus = existing.Status
				if existing.Status != domain.FeePending {
					line.Locked = true
					line.RevenueWeek = existing.RevenueWeek
					line.PercentApplied = existing.PercentApplied
					line.AmountDue = existing.AmountDue
				}
			}
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Commit writes every unlocked preview line in one batch and returns how many
// fees were created. Existing pending fees are recalculated in place.
func (c *FeeCalculator) Commit(ctx context.Context, req *domain.RetroactiveRequest) (int, error) {
	lines, err := c.Preview(ctx, req)
	if err != nil {
		return 0, err
	}

	fees := make([]*domain.WeeklyFee, 0, len(lines))
	for _, l := range lines {
		if l.Locked {
			continue
		}
		fees = append(fees, &domain.WeeklyFee{
			ID:             domain.NewID(),
			TenantID:       l.TenantID,
			WeekStart:      l.WeekStart,
			WeekEnd:        l.WeekEnd,
			RevenueWeek:    l.RevenueWeek,
			PercentApplied: l.PercentApplied,
			AmountDue:      l.AmountDue,
			Status:         domain.FeePending,
		})
	}
	if len(fees) == 0 {
		return 0, nil
	}

	created, err := c.fees.CommitBatch(ctx, fees)
	if err != nil {
		return 0, domain.ErrInternal("failed to commit weekly fees", err)
	}

	c.log.InfoContext(ctx, "retroactive fees committed",
		"lines", len(lines),
		"written", len(fees),
		"created", created,
	)
	return created, nil
}

func (c *FeeCalculator) compute(ctx context.Context, t *domain.Tenant, at time.Time) (*domain.WeeklyFee, error) {
	start, end := domain.WeekWindow(at, c.loc)

	revenue, err := c.orders.SumApproved(ctx, t.ID, start, end)
	if err != nil {
		return nil, domain.ErrInternal("failed to sum revenue", err)
	}

	return &domain.WeeklyFee{
		ID:             domain.NewID(),
		TenantID:       t.ID,
		WeekStart:      start,
		WeekEnd:        end,
		RevenueWeek:    revenue,
		PercentApplied: t.CompanyPercentage,
		AmountDue:      domain.AmountDue(revenue, t.CompanyPercentage),
		Status:         domain.FeePending,
	}, nil
}

// weeks returns the Monday starts of every week overlapping [from, to).
func (c *FeeCalculator) weeks(from, to time.Time) ([]time.Time, error) {
	if !to.After(from) {
		return nil, domain.ErrValidation("to must be after from")
	}

	var weeks []time.Time
	for start := domain.WeekStart(from, c.loc); start.Before(to); start = start.AddDate(0, 0, 7) {
		weeks = append(weeks, start)
		if len(weeks) > maxRetroactiveWeeks {
			return nil, domain.ErrValidation("range spans too many weeks")
		}
	}
	return weeks, nil
}

func (c *FeeCalculator) selectTenants(ctx context.Context, ids []string) ([]*domain.Tenant, error) {
	if len(ids) == 0 {
		tenants, err := c.tenants.List(ctx)
		if err != nil {
			return nil, domain.ErrInternal("failed to list tenants", err)
		}
		return tenants, nil
	}

	tenants := make([]*domain.Tenant, 0, len(ids))
	for _, id := range ids {
		t, err := loadTenant(ctx, c.tenants, id)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, nil
}
