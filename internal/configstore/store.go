// Package configstore is the router's Config Store (spec.md §6): a
// persistent, per-tenant lookup of enabled providers and their
// credentials, consulted once at Router.Initialize.
package configstore

import "context"

// CredentialRow is one row the Config Store returns for a tenant.
// Only Active rows are used by the Registry (spec.md §6).
type CredentialRow struct {
	ProviderID     string
	CredentialBlob string
	Active         bool
}

// Store is the narrow surface the Registry consumes.
type Store interface {
	GetCredentials(ctx context.Context, tenantID string) ([]CredentialRow, error)
}
