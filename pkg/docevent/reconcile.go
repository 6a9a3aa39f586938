package docevent

import (
	"sort"

	"go.lsp.dev/uri"

	"github.com/albertocavalcante/virtdoc/pkg/snapshot"
)

// Changes is the outcome of one reconciliation.
type Changes struct {
	Created []*snapshot.Document
	Changed []*snapshot.Document
	Deleted []uri.URI
}

// Reconciler diffs two tracked-set snapshots and publishes the difference.
type Reconciler struct {
	bus *Bus
}

// NewReconciler creates a reconciler publishing to bus. A nil bus is legal;
// reconciliation then only computes Changes.
func NewReconciler(bus *Bus) *Reconciler {
	return &Reconciler{bus: bus}
}

// Reconcile compares old and new tracked sets and emits, in order, one
// Changed or Created event per URI of the new set, then one Deleted event
// per URI present only in the old set. A URI in both sets is always
// reported Changed, even when its content is byte-identical: version
// equality is short-circuited upstream by the snapshot store, not here.
func (r *Reconciler) Reconcile(old, new map[uri.URI]*snapshot.Document) Changes {
	var ch Changes

	for _, u := range sortedURIs(new) {
		doc := new[u]
		if _, ok := old[u]; ok {
			ch.Changed = append(ch.Changed, doc)
			r.publish(Event{Kind: Changed, URI: u, Document: doc})
		} else {
			ch.Created = append(ch.Created, doc)
			r.publish(Event{Kind: Created, URI: u, Document: doc})
		}
	}

	for _, u := range sortedURIs(old) {
		if _, ok := new[u]; ok {
			continue
		}
		ch.Deleted = append(ch.Deleted, u)
		r.publish(Event{Kind: Deleted, URI: u})
	}

	return ch
}

func (r *Reconciler) publish(e Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}

func sortedURIs(m map[uri.URI]*snapshot.Document) []uri.URI {
	uris := make([]uri.URI, 0, len(m))
	for u := range m {
		uris = append(uris, u)
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })
	return uris
}
