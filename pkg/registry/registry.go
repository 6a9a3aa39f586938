package registry

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/albertocavalcante/virtdoc/pkg/docevent"
	"github.com/albertocavalcante/virtdoc/pkg/snapshot"
	"github.com/albertocavalcante/virtdoc/pkg/textmap"
)

// Construction errors. The registry cannot function without a host or a
// selector, so these abort initialization.
var (
	ErrNilHost       = errors.New("registry: project host is required")
	ErrEmptySelector = errors.New("registry: document selector must have at least one entry")
)

// Registry maintains the tracked set of embedded documents for one project
// and one selector. The tracked set mutates only inside Sync; consumers get
// value copies.
type Registry struct {
	host     ProjectHost
	selector protocol.DocumentSelector
	store    *snapshot.Store
	bus      *docevent.Bus
	rec      *docevent.Reconciler
	logger   *zap.Logger

	// syncMu serializes sync execution; pending queues re-entry so
	// overlapping triggers never interleave partial tracked-set states
	// and never deadlock when a subscriber triggers another sync.
	syncMu  sync.Mutex
	pending atomic.Bool

	// mu guards the fields below.
	mu          sync.RWMutex
	tracked     map[uri.URI]*snapshot.Document
	mappers     map[uri.URI]mapperEntry
	lastVersion int64
	synced      bool
}

type mapperEntry struct {
	version int32
	mapper  *textmap.Mapper
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithStore sets the snapshot store, letting several registries share one
// cache. The default is a private store.
func WithStore(s *snapshot.Store) Option {
	return func(r *Registry) { r.store = s }
}

// WithBus sets the event bus. The default is a private bus.
func WithBus(b *docevent.Bus) Option {
	return func(r *Registry) { r.bus = b }
}

// New creates a registry over host for the documents matching selector.
func New(host ProjectHost, selector protocol.DocumentSelector, opts ...Option) (*Registry, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	if len(selector) == 0 {
		return nil, ErrEmptySelector
	}

	r := &Registry{
		host:     host,
		selector: selector,
		tracked:  make(map[uri.URI]*snapshot.Document),
		mappers:  make(map[uri.URI]mapperEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.store == nil {
		r.store = snapshot.NewStore()
	}
	if r.bus == nil {
		r.bus = docevent.NewBus()
	}
	r.rec = docevent.NewReconciler(r.bus)
	return r, nil
}

// Subscribe registers fn for created/changed/deleted events of tracked
// documents. The returned handle detaches the subscription when closed.
func (r *Registry) Subscribe(fn func(docevent.Event)) *docevent.Subscription {
	return r.bus.Subscribe(fn)
}

// Sync recomputes the tracked set from the host's current state. It is a
// no-op while the host's version token is unchanged, and safe to invoke
// from overlapping triggers: a caller that finds a sync already in flight
// marks it pending and returns, and the holder reruns until no trigger is
// pending. A trigger raised between the holder's last drain and its unlock
// is picked up by the holder's re-check after unlocking, so no trigger is
// ever lost. The tracked set is replaced only after reconciliation
// completes.
func (r *Registry) Sync() {
	r.pending.Store(true)
	for {
		if !r.syncMu.TryLock() {
			return
		}
		for r.pending.Swap(false) {
			r.syncLocked()
		}
		r.syncMu.Unlock()

		// A trigger that arrived after the drain but before the unlock
		// found the lock held and returned; service it here.
		if !r.pending.Load() {
			return
		}
	}
}

func (r *Registry) syncLocked() {
	version := r.host.Version()
	r.mu.RLock()
	unchanged := r.synced && version == r.lastVersion
	r.mu.RUnlock()
	if unchanged {
		return
	}

	next := make(map[uri.URI]*snapshot.Document)
	nextMappers := make(map[uri.URI]mapperEntry)
	for _, sf := range r.host.SourceFiles() {
		if sf == nil {
			continue
		}
		if sf.Root == nil {
			r.collectFile(sf, next)
			continue
		}
		r.collectNode(sf, sf.Root, next, nextMappers)
	}

	r.mu.RLock()
	prev := r.tracked
	r.mu.RUnlock()

	changes := r.rec.Reconcile(prev, next)
	for _, u := range changes.Deleted {
		r.store.Forget(u)
	}

	r.mu.Lock()
	r.tracked = next
	r.mappers = nextMappers
	r.lastVersion = version
	r.synced = true
	r.mu.Unlock()

	r.logger.Debug("sync complete",
		zap.Int64("version", version),
		zap.Int("tracked", len(next)),
		zap.Int("created", len(changes.Created)),
		zap.Int("changed", len(changes.Changed)),
		zap.Int("deleted", len(changes.Deleted)),
	)
}

// collectFile considers a source file without an embedded tree as a
// candidate document itself.
func (r *Registry) collectFile(sf *SourceFile, next map[uri.URI]*snapshot.Document) {
	if !matchesSelector(r.selector, sf.LanguageID) {
		return
	}
	doc := r.store.Get(sf.URI, sf.LanguageID, sf.Version, func() string { return sf.Text })
	if doc != nil {
		next[sf.URI] = doc
	}
}

// collectNode walks an embedded-node tree in pre-order, materializing a
// snapshot for every node matching the selector.
func (r *Registry) collectNode(sf *SourceFile, n *EmbeddedNode, next map[uri.URI]*snapshot.Document, nextMappers map[uri.URI]mapperEntry) {
	if n == nil {
		return
	}
	if matchesSelector(r.selector, n.LanguageID) {
		u := DerivedURI(sf.URI, n.ID)
		doc := r.store.Get(u, n.LanguageID, n.Version, func() string { return n.Text })
		if doc != nil {
			next[u] = doc
			r.buildMapper(u, n, nextMappers)
		}
	}
	for _, c := range n.Children {
		r.collectNode(sf, c, next, nextMappers)
	}
}

// buildMapper reuses the cached mapper while the node version is stable.
func (r *Registry) buildMapper(u uri.URI, n *EmbeddedNode, nextMappers map[uri.URI]mapperEntry) {
	r.mu.RLock()
	entry, ok := r.mappers[u]
	r.mu.RUnlock()
	if ok && entry.version == n.Version {
		nextMappers[u] = entry
		return
	}
	m, err := textmap.NewMapper(n.Spans)
	if err != nil {
		r.logger.Warn("skipping mapper for embedded document",
			zap.String("uri", string(u)),
			zap.Error(err),
		)
		return
	}
	nextMappers[u] = mapperEntry{version: n.Version, mapper: m}
}

// All returns the current tracked documents, sorted by URI. The slice is a
// copy; the registry keeps exclusive ownership of the live set.
func (r *Registry) All() []*snapshot.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]*snapshot.Document, 0, len(r.tracked))
	for _, doc := range r.tracked {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].URI < docs[j].URI })
	return docs
}

// Get returns the tracked document for u, if any.
func (r *Registry) Get(u uri.URI) (*snapshot.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.tracked[u]
	return doc, ok
}

// MapperFor returns the offset mapper for a tracked embedded document.
// Source files tracked directly (no embedded tree) have no mapper.
func (r *Registry) MapperFor(u uri.URI) (*textmap.Mapper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.mappers[u]
	if !ok {
		return nil, false
	}
	return entry.mapper, true
}

// Validate reports snapshot.ErrStale when doc no longer matches the
// registry's current tracked state. Consumers of long-running operations
// call this before trusting derived analysis.
func (r *Registry) Validate(doc *snapshot.Document) error {
	if doc == nil {
		return snapshot.ErrStale
	}
	r.mu.RLock()
	current, ok := r.tracked[doc.URI]
	r.mu.RUnlock()
	if !ok || !current.Same(doc) {
		return snapshot.ErrStale
	}
	return nil
}
