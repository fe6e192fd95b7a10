package adapter

import "strings"

// BracketGlossary brackets every occurrence of a glossary term with
// the inline sentinel form "[[term]]" before the text is sent
// upstream (spec.md §4.1). Glossary-unaware adapters never call this;
// glossary-aware ones call it in pre-processing and StripGlossary in
// post-processing.
func BracketGlossary(text string, glossary map[string]string) string {
	if len(glossary) == 0 {
		return text
	}
	out := text
	for term := range glossary {
		if term == "" {
			continue
		}
		out = strings.ReplaceAll(out, term, "[["+term+"]]")
	}
	return out
}

// StripGlossary removes the "[[" "]]" brackets an upstream backend
// echoed back untouched.
func StripGlossary(text string) string {
	out := strings.ReplaceAll(text, "[[", "")
	out = strings.ReplaceAll(out, "]]", "")
	return out
}
