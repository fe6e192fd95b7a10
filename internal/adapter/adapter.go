// Package adapter defines the uniform wrapper every upstream
// translation backend must implement (spec.md §4.1).
package adapter

import (
	"context"

	"github.com/tesseract-hub/translation-router/internal/types"
)

// Adapter is the polymorphic contract the Registry, Scoring Engine,
// and Dispatch Engine all program against. No inheritance chain is
// needed: composition over this interface is enough for every
// concrete backend in internal/adapters.
type Adapter interface {
	// ID returns the adapter's stable short identifier, e.g. "claude".
	ID() string

	// Initialize accepts credentials. An empty credential is a
	// ConfigError.
	Initialize(ctx context.Context, credential string) error

	// Translate performs one translation. Implementations must set
	// response.Provider to their own ID, measure ProcessingTimeMs from
	// entry to return, and leave Cached false — the router flips it.
	Translate(ctx context.Context, req types.TranslationRequest) (*types.TranslationResponse, error)

	// DetectLanguage never raises; on any internal failure it returns
	// {"unknown", 0}.
	DetectLanguage(ctx context.Context, text string) types.DetectionResult

	// CheckHealth never raises; any internal failure reports false.
	CheckHealth(ctx context.Context) bool

	// Capabilities is immutable after construction.
	Capabilities() types.Capabilities

	// EstimatedCost returns a non-negative real for charCount
	// characters.
	EstimatedCost(charCount int) float64

	// SupportsLanguagePair reports whether src->tgt is servable. An
	// adapter with an empty SupportedLanguages capability is treated
	// as "all"-accepting.
	SupportsLanguagePair(src, tgt string) bool
}

// BatchCapable is implemented by adapters whose Capabilities() report
// SupportsBatch. It is not part of the router's dispatch path — the
// router never batches on an adapter's behalf (spec.md: "does not
// bind to a transport") — callers that want batching type-assert for
// it directly.
type BatchCapable interface {
	TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]types.TranslationResponse, error)
}
