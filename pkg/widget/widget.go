// Package widget composes the document model, reconciler, caret mapper,
// request sequencer and selection state into one query input instance.
//
// A Widget is driven from a single goroutine. Lookups are performed by the
// host with the Request values the widget hands out; their responses come
// back through Deliver, where stale ones are dropped.
package widget

import (
	"errors"
	"unicode/utf8"

	"github.com/bastiangx/qacbox/internal/logger"
	"github.com/bastiangx/qacbox/pkg/caret"
	"github.com/bastiangx/qacbox/pkg/document"
	"github.com/bastiangx/qacbox/pkg/lookup"
	"github.com/bastiangx/qacbox/pkg/reconcile"
	"github.com/bastiangx/qacbox/pkg/selection"
	"github.com/bastiangx/qacbox/pkg/sequencer"
	"github.com/charmbracelet/log"
)

// ErrDisabled is returned once the widget was submitted or disposed.
var ErrDisabled = errors.New("widget: disabled")

// Editor is an editing surface whose content is span markup.
type Editor interface {
	caret.Surface
	Markup() string
	SetMarkup(markup string)
}

// Options tune a widget. Zero values mean no limit.
type Options struct {
	Limit       int
	MaxQueryLen int
	// Clock overrides the token clock, in Unix milliseconds.
	Clock  func() int64
	Logger *log.Logger
}

// Submission is the final question.
type Submission struct {
	Question string
	QIDs     []string
	Query    string
}

// Widget is one query input.
type Widget struct {
	opts Options
	log  *log.Logger

	doc      *document.Document
	seq      *sequencer.Sequencer
	nav      selection.Navigator
	disp     *selection.Dispatcher
	results  []lookup.Result
	tooltips map[string]lookup.Info

	confirmAt int
	disabled  bool
}

// New creates a widget holding the flat question with its references.
func New(flat string, refs []document.Ref, opts Options) *Widget {
	w := &Widget{
		opts:      opts,
		log:       opts.Logger,
		doc:       document.ParseFlat(flat, refs),
		tooltips:  make(map[string]lookup.Info),
		confirmAt: -1,
	}
	if w.log == nil {
		w.log = logger.New("widget")
	}
	if opts.Clock != nil {
		w.seq = sequencer.NewWithClock(opts.Clock)
	} else {
		w.seq = sequencer.New()
	}
	w.disp = selection.NewDispatcher(&w.nav, selection.Handlers{
		Highlight: func(i int) { w.log.Debug("Highlight", "index", i) },
		Confirm:   func(i int) { w.confirmAt = i },
	})
	return w
}

// Document returns the current settled document.
func (w *Widget) Document() *document.Document { return w.doc }

// Markup is the canonical rendering of the document.
func (w *Widget) Markup() string { return w.doc.Render() }

// Disabled reports whether the widget stopped accepting input.
func (w *Widget) Disabled() bool { return w.disabled }

// Suggestions returns the current suggestion list.
func (w *Widget) Suggestions() []lookup.Result { return w.results }

// Selected returns the highlighted suggestion index.
func (w *Widget) Selected() (int, bool) { return w.nav.Selected() }

// Mount writes the document onto e with the caret at the end.
func (w *Widget) Mount(e Editor) {
	e.SetMarkup(w.Markup())
	caret.RestoreEnd(e)
}

// EditResult describes what a qualifying edit did.
type EditResult struct {
	Changed bool
	Demoted int
	Removed []string
	// Request is the lookup to perform, nil when none is due.
	Request *lookup.Request
}

// Edit reconciles the content of e after a qualifying edit. When the
// surface held anything but the canonical markup it is rewritten and the
// caret is put back at the same logical offset.
func (w *Widget) Edit(e Editor) (EditResult, error) {
	if w.disabled {
		return EditResult{}, ErrDisabled
	}
	offset := caret.Capture(e)
	res := reconcile.Reconcile(w.doc, e.Markup())
	w.doc = res.Doc
	if res.Changed {
		e.SetMarkup(res.Doc.Render())
		caret.Restore(e, offset)
	}
	w.evict(res.Removed)
	if res.Demoted > 0 {
		w.log.Debug("Demoted edited entities", "count", res.Demoted, "removed", res.Removed)
	}
	return EditResult{
		Changed: res.Changed,
		Demoted: res.Demoted,
		Removed: res.Removed,
		Request: w.issue(),
	}, nil
}

// Refresh issues a lookup for the current document without an edit.
func (w *Widget) Refresh() (*lookup.Request, error) {
	if w.disabled {
		return nil, ErrDisabled
	}
	return w.issue(), nil
}

func (w *Widget) issue() *lookup.Request {
	q := w.doc.Query()
	if w.opts.MaxQueryLen > 0 && utf8.RuneCountInString(q) > w.opts.MaxQueryLen {
		w.log.Debug("Query too long, not looked up", "len", utf8.RuneCountInString(q))
		w.dropSuggestions()
		return nil
	}
	tok, ok := w.seq.Issue()
	if !ok {
		return nil
	}
	return &lookup.Request{Query: q, Token: int64(tok), Limit: w.opts.Limit}
}

// Deliver offers a lookup response. It reports whether the suggestion list
// was replaced; stale and malformed responses leave everything untouched.
func (w *Widget) Deliver(resp *lookup.Response) bool {
	if !resp.Valid() {
		w.log.Debug("Ignoring response without results")
		return false
	}
	if !w.seq.Accept(sequencer.Token(resp.Timestamp)) {
		w.log.Debug("Dropping stale response", "token", resp.Timestamp, "max", w.seq.MaxSeen())
		return false
	}
	w.results = resp.Results
	w.nav.Reset(len(w.results))
	return true
}

// Select routes a list event. It reports whether the event was consumed;
// a confirmed suggestion yields the follow-up lookup.
func (w *Widget) Select(e Editor, ev selection.Event) (bool, *lookup.Request, error) {
	if w.disabled {
		return false, nil, ErrDisabled
	}
	w.confirmAt = -1
	if !w.disp.Dispatch(ev) {
		return false, nil, nil
	}
	if w.confirmAt < 0 {
		return true, nil, nil
	}
	req, err := w.Confirm(e, w.confirmAt)
	return true, req, err
}

// Confirm replaces the document with suggestion i as produced by the
// service, moves the caret to the end and issues a lookup for the new text.
func (w *Widget) Confirm(e Editor, i int) (*lookup.Request, error) {
	if w.disabled {
		return nil, ErrDisabled
	}
	if i < 0 || i >= len(w.results) {
		return nil, nil
	}
	next := w.results[i].Document()
	w.evict(missing(w.doc.IDs(), next.IDs()))
	w.doc = next
	e.SetMarkup(next.Render())
	caret.RestoreEnd(e)
	w.nav.Reset(len(w.results))
	w.log.Debug("Confirmed suggestion", "index", i, "qids", next.IDs())
	return w.issue(), nil
}

// Submit ends editing and returns the question.
func (w *Widget) Submit() (Submission, error) {
	if w.disabled {
		return Submission{}, ErrDisabled
	}
	s := Submission{
		Question: w.doc.ToFlat(),
		QIDs:     w.doc.IDs(),
		Query:    w.doc.Query(),
	}
	w.Dispose()
	return s, nil
}

// Dispose disables the widget. Responses still in flight are ignored.
func (w *Widget) Dispose() {
	w.disabled = true
	w.seq.Disable()
	w.results = nil
	w.nav.Reset(0)
	clear(w.tooltips)
}

// dropSuggestions empties the list when the current text gets no lookup.
// Responses still in flight belong to older text and are dropped too.
func (w *Widget) dropSuggestions() {
	w.seq.Settle()
	w.results = nil
	w.nav.Reset(0)
}

func missing(before, after []string) []string {
	keep := make(map[string]bool, len(after))
	for _, id := range after {
		keep[id] = true
	}
	var out []string
	for _, id := range before {
		if !keep[id] {
			out = append(out, id)
		}
	}
	return out
}
