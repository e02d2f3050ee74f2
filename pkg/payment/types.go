package payment

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the provider's calendar date format.
const DateLayout = "2006-01-02"

// CustomerRequest creates a provider customer.
type CustomerRequest struct {
	Name              string `json:"name"`
	CpfCnpj           string `json:"cpfCnpj"`
	Email             string `json:"email,omitempty"`
	ExternalReference string `json:"externalReference,omitempty"`
}

// Customer is a provider customer.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChargeRequest creates a one-off payment.
type ChargeRequest struct {
	Customer          string  `json:"customer"`
	BillingType       string  `json:"billingType"`
	Value             float64 `json:"value"`
	DueDate           string  `json:"dueDate"`
	Description       string  `json:"description,omitempty"`
	ExternalReference string  `json:"externalReference,omitempty"`
}

// Charge is a provider payment as returned by the API and embedded in webhooks.
type Charge struct {
	ID                string  `json:"id"`
	Customer          string  `json:"customer"`
	Subscription      string  `json:"subscription,omitempty"`
	Value             float64 `json:"value"`
	BillingType       string  `json:"billingType"`
	Status            string  `json:"status"`
	DueDate           string  `json:"dueDate"`
	PaymentDate       string  `json:"paymentDate,omitempty"`
	ConfirmedDate     string  `json:"confirmedDate,omitempty"`
	InvoiceURL        string  `json:"invoiceUrl"`
	ExternalReference string  `json:"externalReference,omitempty"`
}

// SubscriptionRequest creates a recurring charge.
type SubscriptionRequest struct {
	Customer          string  `json:"customer"`
	BillingType       string  `json:"billingType"`
	Value             float64 `json:"value"`
	NextDueDate       string  `json:"nextDueDate"`
	Cycle             string  `json:"cycle"`
	Description       string  `json:"description,omitempty"`
	ExternalReference string  `json:"externalReference,omitempty"`
}

// Subscription is a provider subscription.
type Subscription struct {
	ID                string  `json:"id"`
	Customer          string  `json:"customer"`
	Value             float64 `json:"value"`
	Cycle             string  `json:"cycle"`
	NextDueDate       string  `json:"nextDueDate"`
	Status            string  `json:"status"`
	Description       string  `json:"description,omitempty"`
	ExternalReference string  `json:"externalReference,omitempty"`
}

// Event is the envelope of a provider webhook delivery. The provider puts the
// object under "payment" or "subscription"; "data" is accepted as well.
type Event struct {
	ID           string          `json:"id"`
	Event        string          `json:"event"`
	Payment      json.RawMessage `json:"payment,omitempty"`
	Subscription json.RawMessage `json:"subscription,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// ParseEvent decodes a webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	ev.ID = strings.TrimSpace(ev.ID)
	ev.Event = strings.TrimSpace(ev.Event)
	return &ev, nil
}

// Object returns the raw event object, whichever key carried it.
func (e *Event) Object() json.RawMessage {
	for _, raw := range []json.RawMessage{e.Payment, e.Subscription, e.Data} {
		if len(raw) > 0 && string(raw) != "null" {
			return raw
		}
	}
	return nil
}

// ObjectID returns the "id" field of the event object, or "" if absent.
func (e *Event) ObjectID() string {
	raw := e.Object()
	if raw == nil {
		return ""
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	return obj.ID
}

// IsPayment reports whether the event is a PAYMENT_* event.
func (e *Event) IsPayment() bool { return strings.HasPrefix(e.Event, "PAYMENT_") }

// IsSubscription reports whether the event is a SUBSCRIPTION_* event.
func (e *Event) IsSubscription() bool { return strings.HasPrefix(e.Event, "SUBSCRIPTION_") }

// DecodePayment decodes the event object as a payment.
func (e *Event) DecodePayment() (*Charge, error) {
	raw := e.Object()
	if raw == nil {
		return nil, fmt.Errorf("event %s has no payment object", e.Event)
	}
	var c Charge
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	return &c, nil
}

// DecodeSubscription decodes the event object as a subscription.
func (e *Event) DecodeSubscription() (*Subscription, error) {
	raw := e.Object()
	if raw == nil {
		return nil, fmt.Errorf("event %s has no subscription object", e.Event)
	}
	var s Subscription
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	return &s, nil
}

// ToCents converts a provider BRL amount to cents.
func ToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// FromCents converts cents to a provider BRL amount.
func FromCents(c int64) float64 {
	return float64(c) / 100
}

// ParseDate parses a provider date. Empty input yields nil.
func ParseDate(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", s, err)
	}
	return &t, nil
}
