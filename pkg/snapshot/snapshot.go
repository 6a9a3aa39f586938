// Package snapshot provides immutable document snapshots and a cache of
// them keyed by URI with version-token invalidation.
package snapshot

import (
	"errors"
	"sync"

	"go.lsp.dev/uri"
)

// Document is an immutable (text, version) view of a document. Two
// documents are the same snapshot when URI and Version match; content is
// never diffed.
type Document struct {
	URI        uri.URI
	LanguageID string
	Version    int32
	Text       string
}

// Same reports whether other is the same snapshot as d.
func (d *Document) Same(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.URI == other.URI && d.Version == other.Version
}

// ErrStale is returned when a consumer holds a snapshot whose version no
// longer matches current state. It is not fatal; the consumer re-fetches.
var ErrStale = errors.New("document snapshot is stale")

// Store caches one Document per URI. A cached entry survives as long as the
// caller keeps presenting the same version token, so redundant gets are
// cheap and idempotent.
type Store struct {
	mu   sync.Mutex
	docs map[uri.URI]*Document
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[uri.URI]*Document)}
}

// Get returns the cached document for u if its version token is unchanged,
// otherwise builds a fresh snapshot from text and replaces the entry.
// A nil text function means the backing source is gone; Get returns nil and
// drops any stale entry.
func (s *Store) Get(u uri.URI, languageID string, version int32, text func() string) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.docs[u]; ok && doc.Version == version && doc.LanguageID == languageID {
		return doc
	}
	if text == nil {
		delete(s.docs, u)
		return nil
	}
	doc := &Document{
		URI:        u,
		LanguageID: languageID,
		Version:    version,
		Text:       text(),
	}
	s.docs[u] = doc
	return doc
}

// Lookup returns the cached document for u without refreshing it.
func (s *Store) Lookup(u uri.URI) (*Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[u]
	return doc, ok
}

// Validate reports ErrStale when doc no longer matches the cached snapshot
// for its URI.
func (s *Store) Validate(doc *Document) error {
	if doc == nil {
		return ErrStale
	}
	cached, ok := s.Lookup(doc.URI)
	if !ok || !cached.Same(doc) {
		return ErrStale
	}
	return nil
}

// Forget drops the cached entry for u, if any.
func (s *Store) Forget(u uri.URI) {
	s.mu.Lock()
	delete(s.docs, u)
	s.mu.Unlock()
}

// Len returns the number of cached documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}
