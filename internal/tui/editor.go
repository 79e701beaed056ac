package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/qacbox/pkg/document"
)

// Editor is a single line editing surface for the terminal. It keeps the
// runs of its markup and edits their text in place, the way a browser edits
// the text nodes of a content editable element: typing inside an entity
// changes its text but not its recorded original.
type Editor struct {
	runs []document.Segment
	run  int
	off  int
}

// NewEditor returns an empty editor.
func NewEditor() *Editor {
	return &Editor{runs: []document.Segment{document.PlainSegment("")}}
}

// Markup renders the runs as they are, edited entities included.
func (e *Editor) Markup() string {
	var b strings.Builder
	for _, s := range e.runs {
		document.RenderSegment(&b, s)
	}
	return b.String()
}

// SetMarkup replaces the content. The cursor is clamped, callers restore it.
func (e *Editor) SetMarkup(markup string) {
	e.runs = document.ParseRendered(markup)
	if len(e.runs) == 0 {
		e.runs = []document.Segment{document.PlainSegment("")}
	}
	e.SetCursor(e.run, e.off)
}

// Runs returns the text of every run.
func (e *Editor) Runs() []string {
	out := make([]string, len(e.runs))
	for i, s := range e.runs {
		out[i] = s.Text
	}
	return out
}

// Segments returns the runs for rendering.
func (e *Editor) Segments() []document.Segment { return e.runs }

// Cursor returns the run and rune offset of the cursor.
func (e *Editor) Cursor() (run, offset int) { return e.run, e.off }

// SetCursor moves the cursor, clamped to the content.
func (e *Editor) SetCursor(run, offset int) {
	run = max(0, min(run, len(e.runs)-1))
	e.run = run
	e.off = max(0, min(offset, runeLen(e.runs[run].Text)))
}

// Insert types text at the cursor. At the end of an entity followed by
// another run, text goes to the start of that run instead.
func (e *Editor) Insert(text string) {
	if text == "" {
		return
	}
	cur := &e.runs[e.run]
	if cur.Kind == document.Entity && e.off == runeLen(cur.Text) && e.run+1 < len(e.runs) {
		e.run, e.off = e.run+1, 0
		cur = &e.runs[e.run]
	}
	r := []rune(cur.Text)
	cur.Text = string(r[:e.off]) + text + string(r[e.off:])
	e.off += runeLen(text)
}

// Backspace deletes the rune before the cursor, crossing into the
// previous run when the cursor is at the start of one.
func (e *Editor) Backspace() bool {
	for e.off == 0 {
		if e.run == 0 {
			return false
		}
		e.run--
		e.off = runeLen(e.runs[e.run].Text)
	}
	r := []rune(e.runs[e.run].Text)
	e.runs[e.run].Text = string(r[:e.off-1]) + string(r[e.off:])
	e.off--
	return true
}

// Delete deletes the rune after the cursor.
func (e *Editor) Delete() bool {
	run, off := e.run, e.off
	for off == runeLen(e.runs[run].Text) {
		if run+1 >= len(e.runs) {
			return false
		}
		run, off = run+1, 0
	}
	r := []rune(e.runs[run].Text)
	e.runs[run].Text = string(r[:off]) + string(r[off+1:])
	return true
}

// Left moves the cursor one rune back.
func (e *Editor) Left() {
	if e.off > 0 {
		e.off--
		return
	}
	for e.run > 0 {
		e.run--
		if n := runeLen(e.runs[e.run].Text); n > 0 {
			e.off = n - 1
			return
		}
	}
}

// Right moves the cursor one rune forward.
func (e *Editor) Right() {
	if e.off < runeLen(e.runs[e.run].Text) {
		e.off++
		return
	}
	for e.run+1 < len(e.runs) {
		e.run++
		if runeLen(e.runs[e.run].Text) > 0 {
			e.off = 1
			return
		}
	}
}

// Home moves the cursor to the start.
func (e *Editor) Home() { e.run, e.off = 0, 0 }

// End moves the cursor to the end.
func (e *Editor) End() {
	e.run = len(e.runs) - 1
	e.off = runeLen(e.runs[e.run].Text)
}

// EntityRun returns the index of the entity run under the cursor.
func (e *Editor) EntityRun() (int, bool) {
	if e.runs[e.run].Kind == document.Entity {
		return e.run, true
	}
	// A cursor right after an entity still points at it.
	if e.off == 0 && e.run > 0 && e.runs[e.run-1].Kind == document.Entity {
		return e.run - 1, true
	}
	return 0, false
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
