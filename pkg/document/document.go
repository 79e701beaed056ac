// Package document holds the annotated form of a composed question: an ordered
// run of plain text and entity references, plus the conversions to and from
// the flat interchange form and the span markup used by editing surfaces.
package document

import (
	"strings"
	"unicode/utf8"
)

// Kind tells plain text apart from an entity reference.
type Kind uint8

const (
	Plain Kind = iota
	Entity
)

func (k Kind) String() string {
	if k == Entity {
		return "entity"
	}
	return "plain"
}

// Segment is a contiguous run of the document.
// For entities, Original, ID and URL never change after creation; Text is
// what the surface currently shows and must equal Original in a settled document.
type Segment struct {
	Kind     Kind
	Text     string
	Original string
	ID       string
	URL      string
}

// Ref is the out-of-band data paired positionally with a delimited mention.
type Ref struct {
	ID  string
	URL string
}

// PlainSegment returns a plain run.
func PlainSegment(text string) Segment {
	return Segment{Kind: Plain, Text: text}
}

// EntitySegment returns an entity run whose text matches its original.
func EntitySegment(text, id, url string) Segment {
	return Segment{Kind: Entity, Text: text, Original: text, ID: id, URL: url}
}

// Len is the rune length of the rendered text.
func (s Segment) Len() int {
	return utf8.RuneCountInString(s.Text)
}

// Intact reports whether an entity still shows its original text.
// Entity text may not contain the flat form delimiters.
func (s Segment) Intact() bool {
	return s.Kind == Entity && s.Text != "" && s.Text == s.Original && s.ID != "" &&
		!strings.ContainsAny(s.Text, "[]")
}

// Document is an ordered, immutable list of segments.
// A zero Document is empty and renders as the placeholder run.
type Document struct {
	segs []Segment
}

// New builds a document from already settled segments, merging adjacent
// plain runs and dropping empty ones.
func New(segs ...Segment) *Document {
	b := NewBuilder(len(segs))
	for _, s := range segs {
		b.Add(s)
	}
	return b.Document()
}

// Empty returns the document holding only the placeholder.
func Empty() *Document {
	return &Document{}
}

// Segments returns a copy of the segment list. An empty document returns a
// single empty plain segment so surfaces always have a node to anchor to.
func (d *Document) Segments() []Segment {
	if d == nil || len(d.segs) == 0 {
		return []Segment{PlainSegment("")}
	}
	out := make([]Segment, len(d.segs))
	copy(out, d.segs)
	return out
}

// IsEmpty reports whether the document has no text at all.
func (d *Document) IsEmpty() bool {
	return d == nil || len(d.segs) == 0
}

// IDs returns the entity identifiers in document order, duplicates included.
func (d *Document) IDs() []string {
	if d == nil {
		return nil
	}
	var ids []string
	for _, s := range d.segs {
		if s.Kind == Entity {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Refs returns the identifiers and links aligned with the mentions of ToFlat.
func (d *Document) Refs() []Ref {
	if d == nil {
		return nil
	}
	var refs []Ref
	for _, s := range d.segs {
		if s.Kind == Entity {
			refs = append(refs, Ref{ID: s.ID, URL: s.URL})
		}
	}
	return refs
}

// Text returns the flattened, markup free text.
func (d *Document) Text() string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	for _, s := range d.segs {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Len is the rune length of Text.
func (d *Document) Len() int {
	n := 0
	if d == nil {
		return n
	}
	for _, s := range d.segs {
		n += s.Len()
	}
	return n
}

// Runs returns the rendered text of every segment, placeholder included.
func (d *Document) Runs() []string {
	segs := d.Segments()
	runs := make([]string, len(segs))
	for i, s := range segs {
		runs[i] = s.Text
	}
	return runs
}

// Equal compares segment by segment.
func (d *Document) Equal(o *Document) bool {
	a, b := d.Segments(), o.Segments()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Builder assembles a settled document in a single pass: plain runs are
// merged into a preceding plain run as they arrive and empty ones are skipped.
type Builder struct {
	segs []Segment
}

// NewBuilder returns a builder with room for n segments.
func NewBuilder(n int) *Builder {
	return &Builder{segs: make([]Segment, 0, n)}
}

// Add appends a segment. Entities that are not intact are added as plain text.
func (b *Builder) Add(s Segment) {
	if s.Kind == Entity && !s.Intact() {
		s = PlainSegment(s.Text)
	}
	if s.Kind == Plain {
		if s.Text == "" {
			return
		}
		if n := len(b.segs); n > 0 && b.segs[n-1].Kind == Plain {
			b.segs[n-1].Text += s.Text
			return
		}
		s = PlainSegment(s.Text)
	}
	b.segs = append(b.segs, s)
}

// AddText appends plain text.
func (b *Builder) AddText(text string) {
	b.Add(PlainSegment(text))
}

// Document returns the built document. The builder must not be reused.
func (b *Builder) Document() *Document {
	return &Document{segs: b.segs}
}
