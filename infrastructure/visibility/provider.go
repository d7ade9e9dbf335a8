// Package visibility supplies the opaque tenant predicate the pre-filter
// pipeline ANDs into every retriever query. Access-control policy itself
// lives outside this service; only the resulting predicate passes through.
package visibility

import (
	"context"

	"recall-backend/domain/retrieval"
)

// TenantColumnProvider scopes memory rows to a tenant column. Rows without
// a tenant are shared and stay visible to everyone.
type TenantColumnProvider struct{}

// NewTenantColumnProvider creates the provider
func NewTenantColumnProvider() *TenantColumnProvider {
	return &TenantColumnProvider{}
}

// VisibilityFor returns the predicate fragment for one tenant. The engine
// treats the fragment as an uninterpreted boolean condition. An anonymous
// caller (empty tenant) is scoped to shared rows only, never left unscoped.
func (p *TenantColumnProvider) VisibilityFor(_ context.Context, tenantID string) (retrieval.Visibility, error) {
	if tenantID == "" {
		return retrieval.Visibility{
			Fragment: "m.tenant_id IS NULL",
		}, nil
	}
	return retrieval.Visibility{
		Fragment: "m.tenant_id IS NULL OR m.tenant_id = ?",
		Args:     []any{tenantID},
	}, nil
}
