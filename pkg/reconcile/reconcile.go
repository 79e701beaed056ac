// Package reconcile re-derives a settled document from the markup an editing
// surface produced after a raw edit.
package reconcile

import (
	"github.com/bastiangx/qacbox/pkg/document"
)

// Result is the outcome of one reconciliation.
type Result struct {
	Doc *document.Document
	// Changed means the surface markup differs from Doc's rendering, so the
	// caller has to rewrite the surface and restore the caret.
	Changed bool
	// Removed lists identifiers of prev that no longer occur in Doc, in prev order.
	Removed []string
	// Demoted counts entity runs turned into plain text.
	Demoted int
}

// Reconcile normalizes rendered against the previous document. Entity runs whose
// text drifted from their recorded original are demoted to plain text, plain
// runs are merged while the output is built, and identifiers that disappeared
// are reported. It never creates an entity from plain text.
func Reconcile(prev *document.Document, rendered string) Result {
	runs := document.ParseRendered(rendered)

	var res Result
	b := document.NewBuilder(len(runs))
	for _, r := range runs {
		if r.Kind == document.Entity && !r.Intact() {
			res.Demoted++
		}
		b.Add(r)
	}
	res.Doc = b.Document()
	res.Removed = removed(prev.IDs(), res.Doc.IDs())
	res.Changed = res.Doc.Render() != rendered
	return res
}

func removed(before, after []string) []string {
	if len(before) == 0 {
		return nil
	}
	present := make(map[string]struct{}, len(after))
	for _, id := range after {
		present[id] = struct{}{}
	}
	var out []string
	seen := make(map[string]struct{}, len(before))
	for _, id := range before {
		if _, ok := present[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
