// Package mdhost provides a markdown project host: it keeps a workspace of
// markdown documents and exposes their fenced code blocks as embedded
// nodes for the registry to track.
package mdhost

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/albertocavalcante/virtdoc/pkg/registry"
)

// LanguageID is the language of every markdown source file in a workspace.
const LanguageID = "markdown"

// Workspace holds markdown documents in memory and implements
// registry.ProjectHost over them. Every mutation bumps the workspace
// version token.
type Workspace struct {
	mu      sync.RWMutex
	version int64
	files   map[uri.URI]*file
	logger  *zap.Logger
}

type file struct {
	version int32
	text    string
	root    *registry.EmbeddedNode
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(opts ...Option) *Workspace {
	w := &Workspace{files: make(map[uri.URI]*file)}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w
}

// Open adds or replaces a document.
func (w *Workspace) Open(u uri.URI, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var version int32 = 1
	if prev, ok := w.files[u]; ok {
		version = prev.version + 1
	}
	w.files[u] = &file{
		version: version,
		text:    text,
		root:    buildTree(text, version),
	}
	w.version++
}

// Update replaces the text of an already-open document. Unknown URIs are
// ignored and reported false.
func (w *Workspace) Update(u uri.URI, text string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	prev, ok := w.files[u]
	if !ok {
		return false
	}
	version := prev.version + 1
	w.files[u] = &file{
		version: version,
		text:    text,
		root:    buildTree(text, version),
	}
	w.version++
	return true
}

// Close removes a document.
func (w *Workspace) Close(u uri.URI) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[u]; !ok {
		return
	}
	delete(w.files, u)
	w.version++
}

// Version implements registry.ProjectHost.
func (w *Workspace) Version() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version
}

// SourceFiles implements registry.ProjectHost. Files are returned sorted
// by URI so traversal order is deterministic.
func (w *Workspace) SourceFiles() []*registry.SourceFile {
	w.mu.RLock()
	defer w.mu.RUnlock()

	uris := make([]uri.URI, 0, len(w.files))
	for u := range w.files {
		uris = append(uris, u)
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })

	out := make([]*registry.SourceFile, 0, len(uris))
	for _, u := range uris {
		f := w.files[u]
		out = append(out, &registry.SourceFile{
			URI:        u,
			LanguageID: LanguageID,
			Version:    f.version,
			Text:       f.text,
			Root:       f.root,
		})
	}
	return out
}

// LoadDir reads every .md file under dir into the workspace and returns
// how many were opened. Include patterns restrict the load per
// MatchInclude; an empty set loads every markdown file. Unreadable files
// are logged and skipped.
func (w *Workspace) LoadDir(dir string, include ...string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		if !MatchInclude(dir, include, path) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			w.logger.Warn("skipping unreadable file",
				zap.String("path", path),
				zap.Error(err),
			)
			return nil
		}
		w.Open(uri.File(path), string(data))
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("loading %s: %w", dir, err)
	}
	return count, nil
}

// MatchInclude reports whether path, made relative to dir, matches any of
// the include glob patterns. Patterns use slash separators regardless of
// platform. An empty pattern set matches everything; a malformed pattern
// matches nothing.
func MatchInclude(dir string, include []string, p string) bool {
	if len(include) == 0 {
		return true
	}
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		rel = p
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range include {
		if ok, err := path.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
