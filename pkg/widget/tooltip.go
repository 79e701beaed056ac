package widget

import (
	"github.com/bastiangx/qacbox/pkg/document"
	"github.com/bastiangx/qacbox/pkg/lookup"
)

// Tooltips are cached per identifier and shared by every mention of it.
// An entry lives until no mention of the identifier is left.

// EntityAt returns the entity rendered as run i.
func (w *Widget) EntityAt(run int) (document.Segment, bool) {
	segs := w.doc.Segments()
	if run < 0 || run >= len(segs) || segs[run].Kind != document.Entity {
		return document.Segment{}, false
	}
	return segs[run], true
}

// Tooltip returns the cached info for qid.
func (w *Widget) Tooltip(qid string) (lookup.Info, bool) {
	info, ok := w.tooltips[qid]
	return info, ok
}

// StoreTooltip caches info for qid while the document still mentions it.
func (w *Widget) StoreTooltip(qid string, info lookup.Info) bool {
	if w.disabled {
		return false
	}
	for _, id := range w.doc.IDs() {
		if id == qid {
			w.tooltips[qid] = info
			return true
		}
	}
	return false
}

func (w *Widget) evict(ids []string) {
	for _, id := range ids {
		delete(w.tooltips, id)
	}
}
