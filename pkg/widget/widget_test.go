package widget

import (
	"io"
	"strings"
	"testing"

	"github.com/bastiangx/qacbox/pkg/document"
	"github.com/bastiangx/qacbox/pkg/lookup"
	"github.com/bastiangx/qacbox/pkg/selection"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEditor keeps raw markup and a cursor over its unmerged runs, the way a
// browser surface would between reconciliations.
type fakeEditor struct {
	markup string
	run    int
	off    int
}

func (f *fakeEditor) Markup() string          { return f.markup }
func (f *fakeEditor) SetMarkup(markup string) { f.markup = markup }
func (f *fakeEditor) Cursor() (int, int)      { return f.run, f.off }
func (f *fakeEditor) SetCursor(run, off int)  { f.run, f.off = run, off }

func (f *fakeEditor) Runs() []string {
	runs := document.ParseRendered(f.markup)
	if len(runs) == 0 {
		return []string{""}
	}
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.Text
	}
	return out
}

func clock(values ...int64) func() int64 {
	i := 0
	return func() int64 {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}
}

func quiet() *log.Logger {
	return log.New(io.Discard)
}

func newMarieCurie(values ...int64) (*Widget, *fakeEditor) {
	w := New("Where was [Marie Curie] born?", document.RefsFrom([]string{"Q7186"}, nil),
		Options{Clock: clock(values...), Logger: quiet(), Limit: 10})
	e := &fakeEditor{}
	w.Mount(e)
	return w, e
}

func TestMountPutsCaretAtEnd(t *testing.T) {
	_, e := newMarieCurie(1)
	run, off := e.Cursor()
	assert.Equal(t, 2, run)
	assert.Equal(t, len(" born?"), off)
}

func TestEditDemotesEntityAndKeepsCaret(t *testing.T) {
	w, e := newMarieCurie(100)
	w.StoreTooltip("Q7186", lookup.Info{Abstract: "Physicist."})

	// Delete the final "e" of the entity; the caret sits right after "Curi".
	e.markup = strings.Replace(e.markup, ">Marie Curie<", ">Marie Curi<", 1)
	e.run, e.off = 1, len("Marie Curi")

	res, err := w.Edit(e)
	require.NoError(t, err)

	assert.Equal(t, []document.Segment{document.PlainSegment("Where was Marie Curi born?")}, w.Document().Segments())
	assert.True(t, res.Changed)
	assert.Equal(t, []string{"Q7186"}, res.Removed)
	assert.Equal(t, "<span>Where was Marie Curi born?</span>", e.markup)

	run, off := e.Cursor()
	assert.Equal(t, 0, run)
	assert.Equal(t, len("Where was Marie Curi"), off)

	_, cached := w.Tooltip("Q7186")
	assert.False(t, cached)

	require.NotNil(t, res.Request)
	assert.Equal(t, "Where was Marie Curi born?", res.Request.Query)
	assert.Equal(t, int64(100), res.Request.Token)
	assert.Equal(t, 10, res.Request.Limit)
}

func TestEditWithoutStructuralChange(t *testing.T) {
	w, e := newMarieCurie(5)
	before := e.markup

	res, err := w.Edit(e)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, before, e.markup)
	require.NotNil(t, res.Request)
	assert.Equal(t, "Where was [Q7186] born?", res.Request.Query)
}

func TestStaleResponseIsDropped(t *testing.T) {
	w, e := newMarieCurie(100, 105)

	r1, err := w.Edit(e)
	require.NoError(t, err)
	r2, err := w.Edit(e)
	require.NoError(t, err)
	require.Equal(t, int64(100), r1.Request.Token)
	require.Equal(t, int64(105), r2.Request.Token)

	newer := &lookup.Response{Timestamp: 105, Results: []lookup.Result{{Completion: "newer"}}}
	older := &lookup.Response{Timestamp: 100, Results: []lookup.Result{{Completion: "older"}, {Completion: "older 2"}}}

	assert.True(t, w.Deliver(newer))
	assert.False(t, w.Deliver(older))
	assert.Equal(t, newer.Results, w.Suggestions())
}

func TestMalformedAndEmptyResponses(t *testing.T) {
	w, e := newMarieCurie(10, 20, 30)
	_, _ = w.Edit(e)
	require.True(t, w.Deliver(&lookup.Response{Timestamp: 10, Results: []lookup.Result{{Completion: "a"}}}))

	_, _ = w.Edit(e)
	assert.False(t, w.Deliver(&lookup.Response{Timestamp: 20}), "missing results is no update")
	assert.Len(t, w.Suggestions(), 1)

	_, _ = w.Edit(e)
	assert.True(t, w.Deliver(&lookup.Response{Timestamp: 20, Results: []lookup.Result{}}),
		"the malformed response did not advance the highest token")
	assert.Empty(t, w.Suggestions())
	_, ok := w.Selected()
	assert.False(t, ok)
}

func TestSelectAndConfirm(t *testing.T) {
	w, e := newMarieCurie(1, 2, 3)
	_, _ = w.Edit(e)
	require.True(t, w.Deliver(&lookup.Response{Timestamp: 1, Results: []lookup.Result{
		{Completion: "Where was [Marie Curie] born?"},
		{Completion: "Where was [Marie Curie] buried in [Paris]", QIDs: []string{"Q7186", "Q90"},
			URLs: []string{"", "https://en.wikipedia.org/wiki/Paris"}},
	}}))
	w.StoreTooltip("Q7186", lookup.Info{Abstract: "Physicist."})

	consumed, req, err := w.Select(e, selection.Event{Kind: selection.Up})
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.Nil(t, req)
	idx, _ := w.Selected()
	assert.Equal(t, 1, idx)

	consumed, req, err = w.Select(e, selection.Event{Kind: selection.Enter})
	require.NoError(t, err)
	assert.True(t, consumed)
	require.NotNil(t, req)
	assert.Equal(t, "Where was [Q7186] buried in [Q90]", req.Query)
	assert.Equal(t, int64(2), req.Token)

	assert.Equal(t, []string{"Q7186", "Q90"}, w.Document().IDs())
	assert.Equal(t, w.Markup(), e.markup)
	run, off := e.Cursor()
	assert.Equal(t, 3, run)
	assert.Equal(t, len("Paris"), off)

	_, cached := w.Tooltip("Q7186")
	assert.True(t, cached, "entity kept by the confirmed suggestion keeps its tooltip")
}

func TestSelectOnEmptyListIsNotConsumed(t *testing.T) {
	w, e := newMarieCurie(1)
	consumed, req, err := w.Select(e, selection.Event{Kind: selection.Enter})
	require.NoError(t, err)
	assert.False(t, consumed)
	assert.Nil(t, req)
}

func TestSubmitDisables(t *testing.T) {
	w, e := newMarieCurie(1, 2)
	r, _ := w.Edit(e)

	sub, err := w.Submit()
	require.NoError(t, err)
	assert.Equal(t, "Where was [Marie Curie] born?", sub.Question)
	assert.Equal(t, []string{"Q7186"}, sub.QIDs)
	assert.Equal(t, "Where was [Q7186] born?", sub.Query)

	assert.False(t, w.Deliver(&lookup.Response{Timestamp: r.Request.Token, Results: []lookup.Result{}}))
	_, err = w.Edit(e)
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = w.Submit()
	assert.ErrorIs(t, err, ErrDisabled)
	assert.False(t, w.StoreTooltip("Q7186", lookup.Info{}))
}

func TestMaxQueryLen(t *testing.T) {
	w := New("a rather long question", nil, Options{MaxQueryLen: 5, Logger: quiet()})
	e := &fakeEditor{}
	w.Mount(e)
	res, err := w.Edit(e)
	require.NoError(t, err)
	assert.Nil(t, res.Request)
}

func TestSkippedLookupClearsList(t *testing.T) {
	w := New("wh", nil, Options{MaxQueryLen: 10, Logger: quiet(), Clock: clock(1, 2, 3)})
	e := &fakeEditor{}
	w.Mount(e)

	first, err := w.Edit(e)
	require.NoError(t, err)
	require.True(t, w.Deliver(&lookup.Response{Timestamp: first.Request.Token, Results: []lookup.Result{{Completion: "[Marie Curie] "}}}))
	second, err := w.Edit(e)
	require.NoError(t, err)
	require.NotNil(t, second.Request)

	e.markup = "<span>where was marie curie born</span>"
	res, err := w.Edit(e)
	require.NoError(t, err)
	assert.Nil(t, res.Request)
	assert.Empty(t, w.Suggestions(), "list of the shorter text is gone")
	_, ok := w.Selected()
	assert.False(t, ok)

	assert.False(t, w.Deliver(&lookup.Response{Timestamp: second.Request.Token, Results: []lookup.Result{{Completion: "[Marie Curie] "}}}),
		"response still in flight for the shorter text is stale")
	assert.Empty(t, w.Suggestions())

	e.markup = "<span>wh</span>"
	back, err := w.Edit(e)
	require.NoError(t, err)
	require.NotNil(t, back.Request)
	assert.True(t, w.Deliver(&lookup.Response{Timestamp: back.Request.Token, Results: []lookup.Result{}}))
}

func TestTooltipSharedAcrossDuplicateMentions(t *testing.T) {
	w := New("[Paris] or [Paris]", document.RefsFrom([]string{"Q90", "Q90"}, nil), Options{Logger: quiet(), Clock: clock(1)})
	e := &fakeEditor{}
	w.Mount(e)
	require.True(t, w.StoreTooltip("Q90", lookup.Info{Abstract: "Capital of France."}))

	seg, ok := w.EntityAt(2)
	require.True(t, ok)
	assert.Equal(t, "Q90", seg.ID)
	_, ok = w.EntityAt(1)
	assert.False(t, ok)

	e.markup = strings.Replace(e.markup, ">Paris<", ">Pari<", 1)
	_, err := w.Edit(e)
	require.NoError(t, err)
	_, cached := w.Tooltip("Q90")
	assert.True(t, cached)

	e.markup = strings.Replace(e.markup, ">Paris<", ">Pari<", 1)
	_, err = w.Edit(e)
	require.NoError(t, err)
	_, cached = w.Tooltip("Q90")
	assert.False(t, cached)
}
