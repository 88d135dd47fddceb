package xerrors

import (
	"errors"
	"testing"
)

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Fatal("Wrap(nil) must return nil")
	}
}

func TestWrapPreservesUnwrapChain(t *testing.T) {
	base := errors.New("base failure")
	wrapped := Wrap(base, "loading config")
	if !errors.Is(wrapped, base) {
		t.Fatal("wrapped error lost its cause")
	}
	if wrapped.Error() != "loading config: base failure" {
		t.Fatalf("unexpected message: %q", wrapped.Error())
	}
}

func TestKindOfExtractsTaxonomy(t *testing.T) {
	base := errors.New("buffer full")
	err := Wrap(New(KindHubUnavailable, base), "submitting quote")

	kind, ok := KindOf(err)
	if !ok {
		t.Fatal("expected KindOf to find a Taxonomy through the wrap chain")
	}
	if kind != KindHubUnavailable {
		t.Fatalf("got kind %q, want %q", kind, KindHubUnavailable)
	}
	if !errors.Is(err, base) {
		t.Fatal("taxonomy error lost its cause")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Fatal("expected no Kind for a plain error")
	}
}

func TestTaxonomyErrorWithoutCause(t *testing.T) {
	err := New(KindQuoteExpired, nil)
	if err.Error() != string(KindQuoteExpired) {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
