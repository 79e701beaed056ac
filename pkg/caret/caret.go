// Package caret maps a cursor between a logical offset over the flattened text
// and a (run, offset) position on an editing surface.
package caret

import "unicode/utf8"

// Surface is an editing surface made of text runs with a single cursor.
// Offsets within a run are counted in runes.
type Surface interface {
	Runs() []string
	Cursor() (run, offset int)
	SetCursor(run, offset int)
}

// Locator addresses a position inside one run, or the end of the document.
type Locator struct {
	Run    int
	Offset int
	End    bool
}

// EndOfDocument is the locator for the last rune of the last run.
var EndOfDocument = Locator{End: true}

// Capture returns the cursor as a rune offset over the concatenated runs.
// Out of range cursor positions are clamped to the surface.
func Capture(s Surface) int {
	runs := s.Runs()
	run, off := s.Cursor()
	if len(runs) == 0 || run < 0 {
		return 0
	}
	if run >= len(runs) {
		return total(runs)
	}
	pos := 0
	for _, r := range runs[:run] {
		pos += utf8.RuneCountInString(r)
	}
	n := utf8.RuneCountInString(runs[run])
	switch {
	case off < 0:
		off = 0
	case off > n:
		off = n
	}
	return pos + off
}

// Locate finds the run whose [start, start+len) range holds offset.
// Offsets outside the text, and any offset into a document with no text,
// resolve to EndOfDocument.
func Locate(runs []string, offset int) Locator {
	if offset < 0 {
		return EndOfDocument
	}
	start := 0
	for i, r := range runs {
		n := utf8.RuneCountInString(r)
		if offset < start+n {
			return Locator{Run: i, Offset: offset - start}
		}
		start += n
	}
	return EndOfDocument
}

// Resolve turns a locator into a concrete cursor position on runs.
// EndOfDocument is placed after the last rune of the last run.
func Resolve(runs []string, loc Locator) (run, offset int) {
	if len(runs) == 0 {
		return 0, 0
	}
	if loc.End || loc.Run < 0 || loc.Run >= len(runs) {
		last := len(runs) - 1
		return last, utf8.RuneCountInString(runs[last])
	}
	n := utf8.RuneCountInString(runs[loc.Run])
	off := loc.Offset
	if off < 0 {
		off = 0
	}
	if off > n {
		off = n
	}
	return loc.Run, off
}

// Restore places the cursor of s at the logical offset.
func Restore(s Surface, offset int) {
	runs := s.Runs()
	s.SetCursor(Resolve(runs, Locate(runs, offset)))
}

// RestoreEnd places the cursor at the end of the document.
func RestoreEnd(s Surface) {
	runs := s.Runs()
	s.SetCursor(Resolve(runs, EndOfDocument))
}

func total(runs []string) int {
	n := 0
	for _, r := range runs {
		n += utf8.RuneCountInString(r)
	}
	return n
}
