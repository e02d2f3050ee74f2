package payment

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AsaasClient is a minimal Asaas v3 REST client.
type AsaasClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewAsaasClient constructs a client. A nil httpClient gets a client with the given timeout.
func NewAsaasClient(httpClient *http.Client, baseURL, apiKey string, timeout time.Duration) *AsaasClient {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &AsaasClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// CreateCustomer implements Gateway.
func (c *AsaasClient) CreateCustomer(ctx context.Context, req CustomerRequest) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodPost, "/customers", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePayment implements Gateway.
func (c *AsaasClient) CreatePayment(ctx context.Context, req ChargeRequest) (*Charge, error) {
	var out Charge
	if err := c.do(ctx, http.MethodPost, "/payments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePayment implements Gateway.
func (c *AsaasClient) DeletePayment(ctx context.Context, paymentID string) error {
	return c.do(ctx, http.MethodDelete, "/payments/"+url.PathEscape(paymentID), nil, nil)
}

// CreateSubscription implements Gateway.
func (c *AsaasClient) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Subscription, error) {
	var out Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSubscriptionPayments implements Gateway.
func (c *AsaasClient) ListSubscriptionPayments(ctx context.Context, subscriptionID string) ([]Charge, error) {
	var out struct {
		Data []Charge `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(subscriptionID)+"/payments", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *AsaasClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("access_token", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "conexx-hub")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("asaas %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := &ProviderError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
		var apiErr struct {
			Errors []struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"errors"`
		}
		if json.Unmarshal(b, &apiErr) == nil {
			for _, e := range apiErr.Errors {
				perr.Descriptions = append(perr.Descriptions, e.Description)
			}
		}
		return perr
	}

	if out == nil || len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// VerifyWebhookToken compares the token sent in the asaas-access-token header
// with the configured one. An empty expected token disables the check.
func VerifyWebhookToken(expected, got string) bool {
	if expected == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
