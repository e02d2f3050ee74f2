package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/conexx/hub/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// oauthStateTTL is how long an authorization may take before its callback.
const oauthStateTTL = 10 * time.Minute

// AnalyticsScope grants read access to the tenant's analytics properties.
const AnalyticsScope = "https://www.googleapis.com/auth/analytics.readonly"

// TokenSealer encrypts tokens before they are stored.
type TokenSealer interface {
	EncryptJSON(v any) (string, error)
}

// GoogleOAuthConfig builds the OAuth client configuration of the analytics integration.
func GoogleOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{AnalyticsScope},
		Endpoint:     google.Endpoint,
	}
}

// IntegrationService connects tenants to third-party data sources through
// OAuth 2.0 authorization code with PKCE.
type IntegrationService struct {
	store   IntegrationStore
	tenants TenantStore
	oauth   *oauth2.Config
	sealer  TokenSealer
	now     func() time.Time
	log     *slog.Logger
}

// NewIntegrationService creates a new IntegrationService.
func NewIntegrationService(store IntegrationStore, tenants TenantStore, oauth *oauth2.Config, sealer TokenSealer, log *slog.Logger) *IntegrationService {
	return &IntegrationService{
		store:   store,
		tenants: tenants,
		oauth:   oauth,
		sealer:  sealer,
		now:     time.Now,
		log:     log,
	}
}

// Authorize starts an authorization for a tenant and returns the consent URL.
func (s *IntegrationService) Authorize(ctx context.Context, actor Actor, tenantID string) (*domain.AuthorizeResponse, error) {
	t, err := loadTenant(ctx, s.tenants, tenantID)
	if err != nil {
		return nil, err
	}
	if err := authorizeTenant(actor, t); err != nil {
		return nil, err
	}

	st := &domain.OAuthState{
		State:        domain.NewID(),
		TenantID:     t.ID,
		Provider:     domain.IntegrationGoogle,
		CodeVerifier: oauth2.GenerateVerifier(),
		CreatedAt:    s.now(),
	}
	if err := s.store.SaveState(ctx, st); err != nil {
		return nil, domain.ErrInternal("failed to store authorization state", err)
	}

	url := s.oauth.AuthCodeURL(st.State,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(st.CodeVerifier),
	)
	return &domain.AuthorizeResponse{AuthURL: url}, nil
}

// Callback completes an authorization. The state is single use and expires
// after oauthStateTTL. It returns the connected tenant ID.
func (s *IntegrationService) Callback(ctx context.Context, state, code string) (string, error) {
	if state == "" || code == "" {
		return "", domain.ErrBadRequest("state and code are required")
	}

	st, err := s.store.ConsumeState(ctx, state)
	if err != nil {
		return "", domain.ErrInternal("failed to load authorization state", err)
	}
	if st == nil || s.now().Sub(st.CreatedAt) > oauthStateTTL {
		return "", domain.ErrBadRequest("invalid or expired state")
	}

	token, err := s.oauth.Exchange(ctx, code, oauth2.VerifierOption(st.CodeVerifier))
	if err != nil {
		return "", domain.ErrProvider("failed to exchange authorization code", err)
	}

	sealed, err := s.sealer.EncryptJSON(token)
	if err != nil {
		return "", domain.ErrInternal("failed to encrypt token", err)
	}

	rec := &domain.IntegrationToken{
		TenantID:       st.TenantID,
		Provider:       st.Provider,
		TokenEncrypted: sealed,
	}
	if !token.Expiry.IsZero() {
		rec.Expiry = &token.Expiry
	}
	if err := s.store.UpsertToken(ctx, rec); err != nil {
		return "", domain.ErrInternal("failed to store token", err)
	}

	s.log.InfoContext(ctx, "integration connected", "tenant_id", st.TenantID, "provider", st.Provider)
	return st.TenantID, nil
}

// Status reports whether the tenant has connected the integration.
func (s *IntegrationService) Status(ctx context.Context, actor Actor, tenantID string) (*domain.IntegrationStatus, error) {
	t, err := loadTenant(ctx, s.tenants, tenantID)
	if err != nil {
		return nil, err
	}
	if err := authorizeTenant(actor, t); err != nil {
		return nil, err
	}

	tok, err := s.store.FindToken(ctx, t.ID, domain.IntegrationGoogle)
	if err != nil {
		return nil, domain.ErrInternal("failed to load integration token", err)
	}

	st := &domain.IntegrationStatus{Provider: domain.IntegrationGoogle}
	if tok != nil {
		st.Connected = true
		st.Expiry = tok.Expiry
		st.ConnectedAt = &tok.UpdatedAt
	}
	return st, nil
}

// PurgeExpiredStates removes abandoned authorizations.
func (s *IntegrationService) PurgeExpiredStates(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredStates(ctx, int(oauthStateTTL.Seconds()))
}
