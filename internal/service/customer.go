package service

import (
	"context"

	"github.com/conexx/hub/internal/domain"
	"github.com/conexx/hub/pkg/payment"
)

// ensureCustomer returns the tenant's provider customer, creating it on first use.
func ensureCustomer(ctx context.Context, tenants TenantStore, gateway payment.Gateway, t *domain.Tenant) (string, error) {
	if t.AsaasCustomerID != nil && *t.AsaasCustomerID != "" {
		return *t.AsaasCustomerID, nil
	}

	cust, err := gateway.CreateCustomer(ctx, payment.CustomerRequest{
		Name:              t.Name,
		CpfCnpj:           t.Document,
		Email:             t.Email,
		ExternalReference: t.ID,
	})
	if err != nil {
		return "", domain.ErrProvider("failed to create customer", err)
	}

	// A concurrent request may have stored its own customer first; keep that one.
	stored, err := tenants.SetCustomerID(ctx, t.ID, cust.ID)
	if err != nil {
		return "", domain.ErrInternal("failed to store customer", err)
	}
	t.AsaasCustomerID = &stored
	return stored, nil
}
