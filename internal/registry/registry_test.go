package registry

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/translation-router/internal/configstore"
	"github.com/tesseract-hub/translation-router/internal/types"
)

var errEmptyCredential = errors.New("fake: empty credential")

type fakeAdapter struct {
	id          string
	initErr     error
	healthy     bool
	translateFn func(ctx context.Context, req types.TranslationRequest) (*types.TranslationResponse, error)
}

func (f *fakeAdapter) ID() string { return f.id }

func (f *fakeAdapter) Initialize(_ context.Context, credential string) error {
	if f.initErr != nil {
		return f.initErr
	}
	if credential == "" {
		return types.NewAdapterError(types.KindConfigError, errEmptyCredential)
	}
	return nil
}

func (f *fakeAdapter) Translate(ctx context.Context, req types.TranslationRequest) (*types.TranslationResponse, error) {
	if f.translateFn != nil {
		return f.translateFn(ctx, req)
	}
	return &types.TranslationResponse{TranslatedText: "ok", Provider: f.id}, nil
}

func (f *fakeAdapter) DetectLanguage(context.Context, string) types.DetectionResult {
	return types.DetectionResult{Language: "unknown"}
}

func (f *fakeAdapter) CheckHealth(context.Context) bool { return f.healthy }

func (f *fakeAdapter) Capabilities() types.Capabilities {
	return types.Capabilities{MaxTextLength: 1000}
}

func (f *fakeAdapter) EstimatedCost(n int) float64 { return 0.00001 * float64(n) }

func (f *fakeAdapter) SupportsLanguagePair(string, string) bool { return true }

func newTestLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestRegistryInitializeSkipsMissingCredentials(t *testing.T) {
	store := configstore.NewMemoryStore()
	store.Put("tenant-a", configstore.CredentialRow{ProviderID: "p1", CredentialBlob: "secret", Active: true})

	p1 := NewProviderEntry("p1", &fakeAdapter{id: "p1", healthy: true}, 1, 1e-5, 0.8, LanguageSupport{All: true}, 10)
	p2 := NewProviderEntry("p2", &fakeAdapter{id: "p2", healthy: true}, 2, 1e-5, 0.8, LanguageSupport{All: true}, 10)

	reg := New(store, newTestLogger(), p1, p2)
	require.NoError(t, reg.Initialize(context.Background(), "tenant-a"))

	assert.True(t, p1.Initialized())
	assert.False(t, p2.Initialized())
}

func TestRegistryShutdownDisablesAll(t *testing.T) {
	store := configstore.NewMemoryStore()
	store.Put("tenant-a", configstore.CredentialRow{ProviderID: "p1", CredentialBlob: "secret", Active: true})

	p1 := NewProviderEntry("p1", &fakeAdapter{id: "p1", healthy: true}, 1, 1e-5, 0.8, LanguageSupport{All: true}, 10)
	reg := New(store, newTestLogger(), p1)
	require.NoError(t, reg.Initialize(context.Background(), "tenant-a"))

	reg.Shutdown()
	assert.Equal(t, types.StateDisabled, p1.State())
	assert.False(t, p1.Healthy())

	reg.Shutdown() // idempotent
	assert.Equal(t, types.StateDisabled, p1.State())
}

func TestProviderEntryLoadGuard(t *testing.T) {
	p := NewProviderEntry("p1", &fakeAdapter{id: "p1"}, 1, 0, 0.5, LanguageSupport{All: true}, 2)

	assert.True(t, p.TryIncrementLoad())
	assert.True(t, p.TryIncrementLoad())
	assert.False(t, p.TryIncrementLoad())

	p.DecrementLoad()
	assert.True(t, p.TryIncrementLoad())
}

func TestProviderEntryFailureThreshold(t *testing.T) {
	p := NewProviderEntry("p1", &fakeAdapter{id: "p1"}, 1, 0, 0.5, LanguageSupport{All: true}, 2)
	p.MarkInitialized()

	for i := 0; i < 4; i++ {
		crossed := p.RecordDispatchFailure(5)
		assert.False(t, crossed)
	}
	assert.True(t, p.Healthy())

	crossed := p.RecordDispatchFailure(5)
	assert.True(t, crossed)
	assert.False(t, p.Healthy())
	assert.Equal(t, types.StateUnhealthy, p.State())

	p.RecordDispatchSuccess()
	assert.True(t, p.Healthy())
}
