package payment

import (
	"context"
	"fmt"
	"strings"
)

// Gateway defines the operations the billing core needs from the payment provider.
type Gateway interface {
	// CreateCustomer registers the payer and returns the provider customer.
	CreateCustomer(ctx context.Context, req CustomerRequest) (*Customer, error)
	// CreatePayment creates a one-off charge.
	CreatePayment(ctx context.Context, req ChargeRequest) (*Charge, error)
	// DeletePayment removes a charge that has not been paid.
	DeletePayment(ctx context.Context, paymentID string) error
	// CreateSubscription starts a recurring charge.
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Subscription, error)
	// ListSubscriptionPayments returns the charges generated by a subscription.
	ListSubscriptionPayments(ctx context.Context, subscriptionID string) ([]Charge, error)
}

// ProviderError is returned when the provider answers with a non-2xx status.
type ProviderError struct {
	StatusCode int
	Status     string
	Body       string
	// Descriptions holds the provider's error descriptions, when the body could be decoded.
	Descriptions []string
}

func (e *ProviderError) Error() string {
	if len(e.Descriptions) > 0 {
		return fmt.Sprintf("asaas: %s: %s", e.Status, strings.Join(e.Descriptions, "; "))
	}
	return fmt.Sprintf("asaas: unexpected status %s", e.Status)
}
