package repository

import (
	"context"
	"fmt"

	"github.com/conexx/hub/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntegrationRepository stores OAuth authorization state and encrypted tokens.
type IntegrationRepository struct {
	db *pgxpool.Pool
}

// NewIntegrationRepository creates a new IntegrationRepository.
func NewIntegrationRepository(db *pgxpool.Pool) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

// SaveState records a pending authorization.
func (r *IntegrationRepository) SaveState(ctx context.Context, s *domain.OAuthState) error {
	query := `
		INSERT INTO oauth_states (state, tenant_id, provider, code_verifier, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.Exec(ctx, query, s.State, s.TenantID, s.Provider, s.CodeVerifier, s.CreatedAt); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// ConsumeState deletes and returns a pending authorization. A state can be
// consumed once; nil means it was unknown or already used.
func (r *IntegrationRepository) ConsumeState(ctx context.Context, state string) (*domain.OAuthState, error) {
	query := `
		DELETE FROM oauth_states WHERE state = $1
		RETURNING state, tenant_id, provider, code_verifier, created_at
	`
	var s domain.OAuthState
	err := r.db.QueryRow(ctx, query, state).Scan(&s.State, &s.TenantID, &s.Provider, &s.CodeVerifier, &s.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return &s, nil
}

// UpsertToken stores the encrypted token of a tenant integration.
func (r *IntegrationRepository) UpsertToken(ctx context.Context, t *domain.IntegrationToken) error {
	query := `
		INSERT INTO integration_tokens (tenant_id, provider, token_encrypted, expiry, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (tenant_id, provider) DO UPDATE
		SET token_encrypted = EXCLUDED.token_encrypted,
			expiry = EXCLUDED.expiry,
			updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, t.TenantID, t.Provider, t.TokenEncrypted, t.Expiry); err != nil {
		return fmt.Errorf("failed to store integration token: %w", err)
	}
	return nil
}

// FindToken returns the stored token of a tenant integration, or nil.
func (r *IntegrationRepository) FindToken(ctx context.Context, tenantID, provider string) (*domain.IntegrationToken, error) {
	query := `
		SELECT tenant_id, provider, token_encrypted, expiry, updated_at
		FROM integration_tokens WHERE tenant_id = $1 AND provider = $2
	`
	var t domain.IntegrationToken
	err := r.db.QueryRow(ctx, query, tenantID, provider).Scan(&t.TenantID, &t.Provider, &t.TokenEncrypted, &t.Expiry, &t.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find integration token: %w", err)
	}
	return &t, nil
}

// DeleteExpiredStates removes authorizations older than the cutoff.
func (r *IntegrationRepository) DeleteExpiredStates(ctx context.Context, olderThanSeconds int) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM oauth_states WHERE created_at < NOW() - make_interval(secs => $1)`, olderThanSeconds)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired oauth states: %w", err)
	}
	return tag.RowsAffected(), nil
}
