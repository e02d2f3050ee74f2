package domain

import "time"

// Subscription statuses.
const (
	SubscriptionPending  = "pending"
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
)

// Subscription is the billing-cycle record of a platform plan.
type Subscription struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"userId"`
	TenantID            string     `json:"tenantId"`
	PlanID              string     `json:"planId"`
	AsaasSubscriptionID string     `json:"asaasSubscriptionId"`
	Status              string     `json:"status"`
	Value               int64      `json:"value"` // cents
	Cycle               string     `json:"cycle"`
	NextDueDate         *time.Time `json:"nextDueDate,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// CreateSubscriptionRequest is the input for requesting a plan.
type CreateSubscriptionRequest struct {
	TenantID    string `json:"tenantId" validate:"required,uuid"`
	PlanID      string `json:"planId" validate:"required,oneof=essencial growth agency"`
	Cycle       string `json:"cycle" validate:"required,oneof=MONTHLY QUARTERLY YEARLY"`
	BillingType string `json:"billingType" validate:"omitempty,oneof=PIX BOLETO CREDIT_CARD UNDEFINED"`
}

// PaymentLinkResponse returns the URL to redirect the user to for payment.
type PaymentLinkResponse struct {
	PaymentURL     string `json:"paymentUrl"`
	SubscriptionID string `json:"subscriptionId"`
}
