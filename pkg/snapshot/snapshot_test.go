package snapshot

import (
	"errors"
	"testing"

	"go.lsp.dev/uri"
)

func TestStoreGet_CachesByVersion(t *testing.T) {
	s := NewStore()
	u := uri.URI("file:///doc.md#fence-1")

	calls := 0
	text := func() string {
		calls++
		return "body"
	}

	first := s.Get(u, "go", 1, text)
	if first == nil || first.Text != "body" {
		t.Fatalf("Get returned %+v, want document with text", first)
	}

	// Same version token: identical snapshot, no rebuild.
	second := s.Get(u, "go", 1, text)
	if second != first {
		t.Error("Get with unchanged version should return the cached document")
	}
	if calls != 1 {
		t.Errorf("text materialized %d times, want 1", calls)
	}

	// Version bump replaces the entry.
	third := s.Get(u, "go", 2, text)
	if third == first {
		t.Error("Get with new version should build a new document")
	}
	if third.Version != 2 {
		t.Errorf("Version = %d, want 2", third.Version)
	}
	if calls != 2 {
		t.Errorf("text materialized %d times, want 2", calls)
	}
}

func TestStoreGet_MissingSource(t *testing.T) {
	s := NewStore()
	u := uri.URI("file:///gone.md")

	if doc := s.Get(u, "markdown", 1, nil); doc != nil {
		t.Errorf("Get with nil text = %+v, want nil", doc)
	}

	// A vanished source also evicts the stale entry.
	s.Get(u, "markdown", 1, func() string { return "x" })
	if doc := s.Get(u, "markdown", 2, nil); doc != nil {
		t.Errorf("Get with nil text = %+v, want nil", doc)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestStoreValidate(t *testing.T) {
	s := NewStore()
	u := uri.URI("file:///doc.md")

	doc := s.Get(u, "markdown", 1, func() string { return "a" })
	if err := s.Validate(doc); err != nil {
		t.Errorf("Validate(current) = %v, want nil", err)
	}

	s.Get(u, "markdown", 2, func() string { return "b" })
	if err := s.Validate(doc); !errors.Is(err, ErrStale) {
		t.Errorf("Validate(stale) = %v, want ErrStale", err)
	}

	if err := s.Validate(nil); !errors.Is(err, ErrStale) {
		t.Errorf("Validate(nil) = %v, want ErrStale", err)
	}
}

func TestDocumentSame(t *testing.T) {
	a := &Document{URI: uri.URI("file:///d"), Version: 1, Text: "x"}
	b := &Document{URI: uri.URI("file:///d"), Version: 1, Text: "different content, same version"}
	c := &Document{URI: uri.URI("file:///d"), Version: 2, Text: "x"}

	if !a.Same(b) {
		t.Error("documents with equal URI and version should be the same snapshot")
	}
	if a.Same(c) {
		t.Error("documents with different versions are different snapshots")
	}
}
