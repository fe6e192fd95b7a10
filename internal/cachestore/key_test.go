package cachestore

import "testing"

func TestTranslationKeyDeterministic(t *testing.T) {
	a := TranslationKey("en", "fr", "", "hello")
	b := TranslationKey("en", "fr", "", "hello")
	if a != b {
		t.Fatalf("expected equal keys, got %q vs %q", a, b)
	}
}

func TestTranslationKeyDistinguishesFields(t *testing.T) {
	base := TranslationKey("en", "fr", "", "hello")
	cases := []string{
		TranslationKey("en", "de", "", "hello"),
		TranslationKey("es", "fr", "", "hello"),
		TranslationKey("en", "fr", "deepl", "hello"),
		TranslationKey("en", "fr", "", "goodbye"),
	}
	for _, c := range cases {
		if c == base {
			t.Fatalf("expected distinct key, collided with base %q", base)
		}
	}
}

func TestMetricsKeyFormat(t *testing.T) {
	if got, want := MetricsKey("claude"), "provider:claude:metrics"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
