package domain

import (
	"math"
	"time"
)

// Weekly fee statuses.
const (
	FeePending  = "pending"
	FeeCreated  = "created"
	FeePaid     = "paid"
	FeeOverdue  = "overdue"
	FeeCanceled = "canceled"
)

// Charge methods accepted for a weekly fee.
const (
	MethodPIX        = "PIX"
	MethodBoleto     = "BOLETO"
	MethodCreditCard = "CREDIT_CARD"
)

// WeeklyFee is the commission charged to a tenant for one calendar week.
type WeeklyFee struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenantId"`
	WeekStart       time.Time  `json:"weekStart"`
	WeekEnd         time.Time  `json:"weekEnd"`
	RevenueWeek     int64      `json:"revenueWeek"` // cents
	PercentApplied  float64    `json:"percentApplied"`
	AmountDue       int64      `json:"amountDue"` // cents
	Status          string     `json:"status"`
	AsaasPaymentID  *string    `json:"asaasPaymentId,omitempty"`
	AsaasInvoiceURL *string    `json:"asaasInvoiceUrl,omitempty"`
	BillingType     *string    `json:"billingType,omitempty"`
	DueDate         *time.Time `json:"dueDate,omitempty"`
	PaymentDate     *time.Time `json:"paymentDate,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// feeTransitions lists the statuses reachable from each status.
// Paid and canceled are terminal.
var feeTransitions = map[string]map[string]struct{}{
	FeePending:  {FeeCreated: {}, FeePaid: {}, FeeCanceled: {}},
	FeeCreated:  {FeePaid: {}, FeeOverdue: {}, FeeCanceled: {}},
	FeeOverdue:  {FeePaid: {}, FeeCanceled: {}},
	FeePaid:     {},
	FeeCanceled: {},
}

// CanTransitionFee reports whether a fee may move from one status to another.
func CanTransitionFee(from, to string) bool {
	allowed, ok := feeTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// AmountDue computes revenue × percent / 100 rounded to the nearest cent.
func AmountDue(revenueCents int64, percent float64) int64 {
	return int64(math.Round(float64(revenueCents) * percent / 100))
}

// WeekStart returns the Monday 00:00 in loc of the week containing t.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	offset := (int(lt.Weekday()) + 6) % 7 // days since Monday
	day := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	return day.AddDate(0, 0, -offset)
}

// WeekWindow returns the half-open [start, end) week containing t.
func WeekWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := WeekStart(t, loc)
	return start, start.AddDate(0, 0, 7)
}

// FeePreview is one (tenant, week) line of a retroactive generation run.
type FeePreview struct {
	TenantID       string    `json:"tenantId"`
	TenantName     string    `json:"tenantName"`
	WeekStart      time.Time `json:"weekStart"`
	WeekEnd        time.Time `json:"weekEnd"`
	RevenueWeek    int64     `json:"revenueWeek"`
	PercentApplied float64   `json:"percentApplied"`
	AmountDue      int64     `json:"amountDue"`
	// ExistingStatus is empty when no fee exists yet for the window.
	ExistingStatus string `json:"existingStatus,omitempty"`
	// Locked is true when an existing fee is past pending and will not be recalculated.
	Locked bool `json:"locked"`
}

// CalculateFeeRequest triggers a single (tenant, week) calculation.
type CalculateFeeRequest struct {
	TenantID  string    `json:"tenantId" validate:"required,uuid"`
	WeekStart time.Time `json:"weekStart" validate:"required"`
}

// RetroactiveRequest bounds a week-by-week generation run.
type RetroactiveRequest struct {
	From      time.Time `json:"from" validate:"required"`
	To        time.Time `json:"to" validate:"required,gtfield=From"`
	TenantIDs []string  `json:"tenantIds" validate:"omitempty,dive,uuid"`
}

// ChargeFeeRequest asks the provider to charge a pending fee.
type ChargeFeeRequest struct {
	FeeID  string `json:"feeId" validate:"required,uuid"`
	Method string `json:"method" validate:"required,oneof=PIX BOLETO CREDIT_CARD"`
}

// ChargeFeeResponse carries the hosted invoice URL, if the provider returned one.
type ChargeFeeResponse struct {
	PaymentURL string `json:"paymentUrl,omitempty"`
}

// MarkPaidRequest is the admin override for a fee paid outside the provider.
type MarkPaidRequest struct {
	FeeID         string `json:"feeId" validate:"required,uuid"`
	AdminPassword string `json:"adminPassword"`
}

// FeeChanges are the columns written alongside a status transition. Nil fields keep their value.
type FeeChanges struct {
	AsaasPaymentID  *string
	AsaasInvoiceURL *string
	BillingType     *string
	DueDate         *time.Time
	PaymentDate     *time.Time
}

// FeeFilter narrows a fee listing. An empty TenantIDs means every tenant.
type FeeFilter struct {
	TenantIDs []string
	Status    string
}
