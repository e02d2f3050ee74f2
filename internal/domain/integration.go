package domain

import "time"

// IntegrationGoogle is the provider key of the analytics integration.
const IntegrationGoogle = "google"

// OAuthState is a pending authorization awaiting its callback.
type OAuthState struct {
	State        string
	TenantID     string
	Provider     string
	CodeVerifier string
	CreatedAt    time.Time
}

// IntegrationToken is an encrypted OAuth token stored per tenant and provider.
type IntegrationToken struct {
	TenantID       string
	Provider       string
	TokenEncrypted string
	Expiry         *time.Time
	UpdatedAt      time.Time
}

// AuthorizeResponse carries the URL the browser should visit.
type AuthorizeResponse struct {
	AuthURL string `json:"authUrl"`
}

// IntegrationStatus reports whether a tenant has a stored token. The token itself is never returned.
type IntegrationStatus struct {
	Provider    string     `json:"provider"`
	Connected   bool       `json:"connected"`
	Expiry      *time.Time `json:"expiry,omitempty"`
	ConnectedAt *time.Time `json:"connectedAt,omitempty"`
}
