package domain

import "time"

// OrderApproved is the only order status counted as revenue.
const OrderApproved = "approved"

// Order is a storefront order imported for revenue accounting.
type Order struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	ExternalID string    `json:"externalId" validate:"required,max=64"`
	Status     string    `json:"status" validate:"required,max=32"`
	Value      int64     `json:"value" validate:"gte=0"` // cents
	PlacedAt   time.Time `json:"placedAt" validate:"required"`
}

// ImportOrdersRequest upserts a batch of orders by external ID.
type ImportOrdersRequest struct {
	Orders []Order `json:"orders" validate:"required,min=1,max=5000,dive"`
}
