package domain

import "time"

// Local payment statuses derived from provider events.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentOverdue  = "overdue"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Payment mirrors a provider payment, keyed by AsaasPaymentID.
type Payment struct {
	ID                  string     `json:"id"`
	UserID              *string    `json:"userId,omitempty"`
	TenantID            *string    `json:"tenantId,omitempty"`
	AsaasPaymentID      string     `json:"asaasPaymentId"`
	AsaasSubscriptionID *string    `json:"asaasSubscriptionId,omitempty"`
	Status              string     `json:"status"`
	Value               int64      `json:"value"` // cents
	BillingType         string     `json:"billingType"`
	DueDate             *time.Time `json:"dueDate,omitempty"`
	PaidAt              *time.Time `json:"paidAt,omitempty"`
	ExternalReference   string     `json:"externalReference"`
	InvoiceURL          string     `json:"invoiceUrl"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}
