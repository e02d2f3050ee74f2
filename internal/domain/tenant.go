package domain

import "time"

// Tenant subscription statuses mirrored from provider events.
const (
	TenantSubscriptionNone     = "none"
	TenantSubscriptionPending  = "pending"
	TenantSubscriptionActive   = "active"
	TenantSubscriptionPastDue  = "past_due"
	TenantSubscriptionCanceled = "canceled"
)

// Tenant is a store managed under one platform account.
type Tenant struct {
	ID                 string     `json:"id"`
	OwnerUserID        string     `json:"ownerUserId"`
	Name               string     `json:"name"`
	Document           string     `json:"document"` // CPF or CNPJ
	Email              string     `json:"email"`
	CompanyPercentage  float64    `json:"companyPercentage"`
	CachedGrossRevenue int64      `json:"cachedGrossRevenue"` // cents
	AsaasCustomerID    *string    `json:"asaasCustomerId,omitempty"`
	PlanID             *string    `json:"planId,omitempty"`
	SubscriptionStatus string     `json:"subscriptionStatus"`
	BillingCycle       *string    `json:"billingCycle,omitempty"`
	NextBilling        *time.Time `json:"nextBilling,omitempty"`

	// Pending fields reserve a requested plan change until a subscription event resolves it.
	PendingPlanID       *string `json:"pendingPlanId,omitempty"`
	PendingBillingCycle *string `json:"pendingBillingCycle,omitempty"`
	PendingPaymentURL   *string `json:"pendingPaymentUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TenantSubscriptionUpdate is applied to a tenant when a subscription event resolves.
// The pending reservation is always cleared.
type TenantSubscriptionUpdate struct {
	PlanID             string
	BillingCycle       string
	NextBilling        *time.Time
	SubscriptionStatus string
}

// CreateTenantRequest is the validated input for creating a tenant.
type CreateTenantRequest struct {
	OwnerUserID       string  `json:"ownerUserId" validate:"required,uuid"`
	Name              string  `json:"name" validate:"required,min=1,max=120"`
	Document          string  `json:"document" validate:"required,min=11,max=18"`
	Email             string  `json:"email" validate:"required,email"`
	CompanyPercentage float64 `json:"companyPercentage" validate:"gte=0,lte=100"`
}

// UpdateTenantRequest is a partial update. Nil fields are left untouched.
type UpdateTenantRequest struct {
	Name              *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Email             *string  `json:"email" validate:"omitempty,email"`
	CompanyPercentage *float64 `json:"companyPercentage" validate:"omitempty,gte=0,lte=100"`
}
