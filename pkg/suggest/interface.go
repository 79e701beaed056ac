// Package suggest is the local completion backend: it completes the trailing
// free text of a question prefix against an alias index and re-emits the
// entities the question already confirmed.
package suggest

import "github.com/bastiangx/qacbox/pkg/lookup"

// Completer produces completion results and entity info.
type Completer interface {
	// Complete returns up to limit results for a query in identifier space,
	// e.g. "where was [Q7186] bo".
	Complete(query string, limit int) []lookup.Result

	// Info returns what is known about an entity.
	Info(qid string) (lookup.Info, bool)

	// Stats returns counters about the loaded data and the cache.
	Stats() map[string]int
}
