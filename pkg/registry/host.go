// Package registry tracks the embedded documents of a project: it walks
// the host's source files and their nested embedded nodes, keeps a
// synchronized set of snapshots for the nodes matching a language selector,
// and reports set changes through a document event bus.
package registry

import (
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/albertocavalcante/virtdoc/pkg/textmap"
)

// ProjectHost is the read-only view of the project the registry indexes.
// The host owns and mutates all of this state; the registry only reads it
// and must tolerate it changing between any two calls.
type ProjectHost interface {
	// Version returns an opaque token that changes whenever any source
	// file or embedded node changes. Sync is O(1) while it is stable.
	Version() int64

	// SourceFiles returns the project's current source files, including
	// their embedded-node trees where present.
	SourceFiles() []*SourceFile
}

// SourceFile is one file of the project. When Root is nil the file itself
// is the candidate document for selector matching.
type SourceFile struct {
	URI        uri.URI
	LanguageID string
	Version    int32
	Text       string
	Root       *EmbeddedNode
}

// EmbeddedNode is one embedded document nested in a source file. IDs are
// unique within their file; trees are acyclic and owned by the file.
type EmbeddedNode struct {
	ID         string
	LanguageID string
	Version    int32
	Text       string

	// Spans map the node's text to its parent coordinate space. Sorted,
	// non-overlapping, increasing in both spaces.
	Spans []textmap.Span

	Children []*EmbeddedNode
}

// DerivedURI returns the stable URI under which an embedded node of src is
// tracked. It depends only on the source URI and node ID, never on
// traversal order.
func DerivedURI(src uri.URI, nodeID string) uri.URI {
	return uri.URI(string(src) + "#" + nodeID)
}

// Languages builds a document selector matching any of the given language
// IDs, in order.
func Languages(langs ...string) protocol.DocumentSelector {
	sel := make(protocol.DocumentSelector, 0, len(langs))
	for _, l := range langs {
		sel = append(sel, &protocol.DocumentFilter{Language: l})
	}
	return sel
}

// matchesSelector reports whether languageID satisfies any selector entry.
func matchesSelector(sel protocol.DocumentSelector, languageID string) bool {
	for _, f := range sel {
		if f != nil && f.Language == languageID {
			return true
		}
	}
	return false
}
