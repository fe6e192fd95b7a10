package cachestore

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// TranslationKey computes the deterministic 64-bit cache key
// H(source, target, provider_hint, text) of spec.md §4.5.
func TranslationKey(sourceLang, targetLang, providerHint, text string) string {
	h := xxhash.New()
	_, _ = h.WriteString(sourceLang)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(targetLang)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(providerHint)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(text)
	return "translate:" + strconv.FormatUint(h.Sum64(), 16)
}

// MetricsKey is the key a provider's rolling metrics record lives at
// (spec.md §3): "provider:<id>:metrics".
func MetricsKey(providerID string) string {
	return fmt.Sprintf("provider:%s:metrics", providerID)
}
