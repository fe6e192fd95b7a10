package router

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/translation-router/internal/cachestore"
	"github.com/tesseract-hub/translation-router/internal/configstore"
	"github.com/tesseract-hub/translation-router/internal/registry"
	"github.com/tesseract-hub/translation-router/internal/types"
)

type fakeAdapter struct {
	id          string
	costPerChar float64
	translateFn func(ctx context.Context, req types.TranslationRequest) (*types.TranslationResponse, error)
}

func (f *fakeAdapter) ID() string { return f.id }
func (f *fakeAdapter) Initialize(_ context.Context, credential string) error {
	if credential == "" {
		return types.NewAdapterError(types.KindConfigError, errEmptyCred)
	}
	return nil
}
func (f *fakeAdapter) Translate(ctx context.Context, req types.TranslationRequest) (*types.TranslationResponse, error) {
	return f.translateFn(ctx, req)
}
func (f *fakeAdapter) DetectLanguage(context.Context, string) types.DetectionResult {
	return types.DetectionResult{}
}
func (f *fakeAdapter) CheckHealth(context.Context) bool { return true }
func (f *fakeAdapter) Capabilities() types.Capabilities { return types.Capabilities{} }
func (f *fakeAdapter) EstimatedCost(n int) float64      { return f.costPerChar * float64(n) }
func (f *fakeAdapter) SupportsLanguagePair(string, string) bool { return true }

var errEmptyCred = assertErr{}

type assertErr struct{}

func (assertErr) Error() string { return "fake: empty credential" }

func newTestRouter(t *testing.T, entries ...*registry.ProviderEntry) (*Router, *configstore.MemoryStore) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	entry := logrus.NewEntry(log)

	store := configstore.NewMemoryStore()
	for _, e := range entries {
		store.Put("tenant-1", configstore.CredentialRow{ProviderID: e.ID, CredentialBlob: "secret", Active: true})
	}

	reg := registry.New(store, entry, entries...)
	cfg := configstore.DefaultRouterConfig()
	r := New(reg, cachestore.NewMemoryCache(), cfg, entry)

	require.NoError(t, r.Initialize(context.Background(), "tenant-1"))
	t.Cleanup(r.Shutdown)
	return r, store
}

func TestTranslateRejectsWhenNotInitialized(t *testing.T) {
	log := logrus.NewEntry(logrus.New())
	reg := registry.New(configstore.NewMemoryStore(), log)
	cfg := configstore.DefaultRouterConfig()
	r := New(reg, cachestore.NewMemoryCache(), cfg, log)

	_, err := r.Translate(context.Background(), types.TranslationRequest{}, types.DefaultStrategy())
	assert.ErrorIs(t, err, types.ErrNotInitialized)
}

func TestTranslateCostStrategyPicksCheapest(t *testing.T) {
	a := registry.NewProviderEntry("a", &fakeAdapter{id: "a", costPerChar: 2e-5, translateFn: respond("a")}, 1, 2e-5, 0.92, registry.LanguageSupport{All: true}, 10)
	b := registry.NewProviderEntry("b", &fakeAdapter{id: "b", costPerChar: 3e-5, translateFn: respond("b")}, 2, 3e-5, 0.95, registry.LanguageSupport{All: true}, 10)

	r, _ := newTestRouter(t, a, b)

	resp, err := r.Translate(context.Background(), types.TranslationRequest{Text: "hello", SourceLang: "en", TargetLang: "es"}, types.Strategy{Mode: types.StrategyCost})
	require.NoError(t, err)
	assert.Equal(t, "a", resp.Provider)
	assert.False(t, resp.Cached)
}

func TestTranslateFallsBackWhenFirstChoiceFails(t *testing.T) {
	a := registry.NewProviderEntry("a", &fakeAdapter{id: "a", translateFn: failWith(types.KindUpstreamUnavailable)}, 1, 0, 0.95, registry.LanguageSupport{All: true}, 10)
	b := registry.NewProviderEntry("b", &fakeAdapter{id: "b", translateFn: respond("b")}, 2, 0, 0.80, registry.LanguageSupport{All: true}, 10)

	r, _ := newTestRouter(t, a, b)

	resp, err := r.Translate(context.Background(), types.TranslationRequest{Text: "hello", SourceLang: "en", TargetLang: "es"}, types.Strategy{Mode: types.StrategyQuality})
	require.NoError(t, err)
	assert.Equal(t, "b", resp.Provider)
}

func TestTranslateAllProvidersFailedSurfacesLastError(t *testing.T) {
	a := registry.NewProviderEntry("a", &fakeAdapter{id: "a", translateFn: failWith(types.KindUpstreamUnavailable)}, 1, 0, 0.9, registry.LanguageSupport{All: true}, 10)
	b := registry.NewProviderEntry("b", &fakeAdapter{id: "b", translateFn: failWith(types.KindTimeout)}, 2, 0, 0.8, registry.LanguageSupport{All: true}, 10)

	r, _ := newTestRouter(t, a, b)

	_, err := r.Translate(context.Background(), types.TranslationRequest{Text: "hello", SourceLang: "en", TargetLang: "es"}, types.DefaultStrategy())
	var allFailed *types.AllProvidersFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.ElementsMatch(t, []string{"a", "b"}, allFailed.Attempted)

	// Balanced order tries a (quality 0.9) before b (0.8), so b's
	// timeout is the last underlying error.
	last, ok := types.AsAdapterError(allFailed.Last)
	require.True(t, ok)
	assert.Equal(t, types.KindTimeout, last.Kind)
}

func TestTranslateCacheHitSkipsDispatch(t *testing.T) {
	called := false
	a := registry.NewProviderEntry("a", &fakeAdapter{id: "a", translateFn: func(ctx context.Context, req types.TranslationRequest) (*types.TranslationResponse, error) {
		called = true
		return &types.TranslationResponse{TranslatedText: "hola"}, nil
	}}, 1, 0, 0.9, registry.LanguageSupport{All: true}, 10)

	r, _ := newTestRouter(t, a)

	req := types.TranslationRequest{Text: "hello", SourceLang: "en", TargetLang: "es"}
	first, err := r.Translate(context.Background(), req, types.DefaultStrategy())
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, first.Cached)

	called = false
	second, err := r.Translate(context.Background(), req, types.DefaultStrategy())
	require.NoError(t, err)
	assert.False(t, called)
	assert.True(t, second.Cached)
}

func TestTranslateWithNilCacheSkipsShortCircuit(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	entry := logrus.NewEntry(log)

	store := configstore.NewMemoryStore()
	a := registry.NewProviderEntry("a", &fakeAdapter{id: "a", translateFn: respond("a")}, 1, 0, 0.9, registry.LanguageSupport{All: true}, 10)
	store.Put("tenant-1", configstore.CredentialRow{ProviderID: a.ID, CredentialBlob: "secret", Active: true})

	reg := registry.New(store, entry, a)
	cfg := configstore.DefaultRouterConfig()
	r := New(reg, nil, cfg, entry)
	require.NoError(t, r.Initialize(context.Background(), "tenant-1"))
	t.Cleanup(r.Shutdown)

	req := types.TranslationRequest{Text: "hello", SourceLang: "en", TargetLang: "es"}
	resp, err := r.Translate(context.Background(), req, types.DefaultStrategy())
	require.NoError(t, err)
	assert.False(t, resp.Cached)

	// Second call with no cache still dispatches rather than panicking
	// on a nil-interface method call inside the Metrics Aggregator.
	resp, err = r.Translate(context.Background(), req, types.DefaultStrategy())
	require.NoError(t, err)
	assert.False(t, resp.Cached)
}

func respond(provider string) func(context.Context, types.TranslationRequest) (*types.TranslationResponse, error) {
	return func(context.Context, types.TranslationRequest) (*types.TranslationResponse, error) {
		return &types.TranslationResponse{TranslatedText: "translated", Provider: provider}, nil
	}
}

func failWith(kind types.AdapterErrorKind) func(context.Context, types.TranslationRequest) (*types.TranslationResponse, error) {
	return func(context.Context, types.TranslationRequest) (*types.TranslationResponse, error) {
		return nil, types.NewAdapterError(kind, assertErr{})
	}
}
