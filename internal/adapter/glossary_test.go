package adapter

import "testing"

func TestBracketGlossaryWrapsTerms(t *testing.T) {
	out := BracketGlossary("Acme is the client", map[string]string{"Acme": "Acme Corp"})
	if out != "[[Acme]] is the client" {
		t.Fatalf("got %q", out)
	}
}

func TestBracketGlossaryEmptyIsNoop(t *testing.T) {
	if got := BracketGlossary("hello", nil); got != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestStripGlossaryRemovesBrackets(t *testing.T) {
	if got := StripGlossary("[[Acme]] est le client"); got != "Acme est le client" {
		t.Fatalf("got %q", got)
	}
}
