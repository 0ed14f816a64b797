package search

import (
	"reflect"
	"testing"
)

func TestTokenizeSeparatorEquivalence(t *testing.T) {
	space := Tokenize("error handling")
	hyphen := Tokenize("error-handling")
	underscore := Tokenize("error_handling")

	want := []string{"error", "handling"}
	for _, got := range [][]string{space, hyphen, underscore} {
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("expected tokens %v, got %v", want, got)
		}
	}
}

func TestTokenizeStripsPunctuationAndCase(t *testing.T) {
	got := Tokenize("  Retry, Pattern!  (v2) ")
	want := []string{"retry", "pattern", "v2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected tokens %v, got %v", want, got)
	}
}

func TestTokenizeCollapsesDuplicatesPreservingOrder(t *testing.T) {
	got := Tokenize("retry retry backoff Retry")
	want := []string{"retry", "backoff"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected tokens %v, got %v", want, got)
	}
}

func TestTokenizeEmptyQuery(t *testing.T) {
	if got := Tokenize(""); len(got) != 0 {
		t.Fatalf("expected no tokens for empty query, got %v", got)
	}
	if got := Tokenize("  ...  "); len(got) != 0 {
		t.Fatalf("expected no tokens for punctuation-only query, got %v", got)
	}
}
