package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/translation-router/internal/configstore"
)

// Registry holds every configured provider and drives Initialize /
// Shutdown (spec.md §4.2), grounded on the teacher's orchestrator
// construction order and health/metrics maps
// (Tesseract-Nexus-global-services/translation-service/internal/clients/orchestrator.go).
type Registry struct {
	log   *logrus.Entry
	store configstore.Store

	mu        sync.RWMutex
	providers []*ProviderEntry
	byID      map[string]*ProviderEntry
}

// New takes ownership of the supplied entries and keeps them in the
// order given; it does not sort them by Priority. The demo binary
// passes them in ascending Priority, the way the teacher's cmd/main.go
// constructs its provider chain.
func New(store configstore.Store, log *logrus.Entry, entries ...*ProviderEntry) *Registry {
	byID := make(map[string]*ProviderEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	return &Registry{
		log:       log,
		store:     store,
		providers: entries,
		byID:      byID,
	}
}

// Initialize loads this tenant's enabled credentials from the Config
// Store and calls Adapter.Initialize for each matching provider. A
// per-provider failure is logged and leaves that provider
// Uninitialized; it does not fail the whole call (spec.md §4.2, §4.7).
func (r *Registry) Initialize(ctx context.Context, tenantID string) error {
	rows, err := r.store.GetCredentials(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("registry: loading credentials: %w", err)
	}

	creds := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.Active {
			creds[row.ProviderID] = row.CredentialBlob
		}
	}

	r.mu.RLock()
	entries := append([]*ProviderEntry(nil), r.providers...)
	r.mu.RUnlock()

	initialized := 0
	for _, entry := range entries {
		cred, ok := creds[entry.ID]
		if !ok {
			r.log.WithField("provider", entry.ID).Debug("no credential for tenant, skipping")
			continue
		}
		if err := entry.Adapter.Initialize(ctx, cred); err != nil {
			r.log.WithFields(logrus.Fields{"provider": entry.ID, "error": err}).
				Warn("provider initialize failed, leaving uninitialized")
			continue
		}
		entry.MarkInitialized()
		initialized++
	}

	if initialized == 0 {
		r.log.Warn("no provider initialized for tenant")
	}
	return nil
}

// Shutdown transitions every provider to Disabled. Idempotent: calling
// it twice is a no-op on the second call.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.providers {
		entry.MarkDisabled()
	}
}

// Providers returns the live, ordered provider list.
func (r *Registry) Providers() []*ProviderEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*ProviderEntry(nil), r.providers...)
}

// Get returns one provider by id.
func (r *Registry) Get(id string) (*ProviderEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e, ok
}
