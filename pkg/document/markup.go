package document

import (
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"
)

// Markup attribute names carried by entity spans. data-original and data-qid
// are what the reconciler needs to detect an edited entity later on.
const (
	EntityClass   = "entity"
	AttrID        = "data-qid"
	AttrOriginal  = "data-original"
	AttrURL       = "data-url"
	zeroWidth     = "\u200b"
	nbsp          = "\u00a0"
	lineBreakRune = '\n'
)

// Render serializes the document into the span markup an editing surface
// consumes. The empty document renders as a single empty span.
func (d *Document) Render() string {
	var b strings.Builder
	for _, s := range d.Segments() {
		RenderSegment(&b, s)
	}
	return b.String()
}

// RenderSegment writes one segment as a span.
func RenderSegment(b *strings.Builder, s Segment) {
	if s.Kind != Entity {
		b.WriteString("<span>")
		b.WriteString(html.EscapeString(s.Text))
		b.WriteString("</span>")
		return
	}
	b.WriteString(`<span class="` + EntityClass + `" ` + AttrID + `="`)
	b.WriteString(html.EscapeString(s.ID))
	b.WriteString(`" ` + AttrOriginal + `="`)
	b.WriteString(html.EscapeString(s.Original))
	b.WriteString(`"`)
	if s.URL != "" {
		b.WriteString(` ` + AttrURL + `="`)
		b.WriteString(html.EscapeString(s.URL))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	b.WriteString(html.EscapeString(s.Text))
	b.WriteString("</span>")
}

var voidElements = map[string]bool{
	"br": true, "img": true, "hr": true, "input": true, "wbr": true, "meta": true, "link": true,
}

type frame struct {
	tag    string
	entity bool
}

// ParseRendered reads span markup straight from an editing surface and
// returns its runs in order, without merging or validating them. Entity runs
// carry their live text in Text and the recorded text in Original.
//
// Noise is normalized on the way: line breaks and zero width characters are
// removed, formatting wrappers are dropped, and markup nested inside an
// entity span is collapsed into that entity's run. An entity span lacking its
// identifier or original text is read as plain text.
func ParseRendered(markup string) []Segment {
	var (
		runs   []Segment
		stack  []frame
		inside bool
	)
	appendText := func(text string) {
		text = cleanText(text)
		if text == "" {
			return
		}
		if inside {
			runs[len(runs)-1].Text += text
			return
		}
		if n := len(runs); n > 0 && runs[n-1].Kind == Plain {
			runs[n-1].Text += text
			return
		}
		runs = append(runs, PlainSegment(text))
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				log.Debugf("markup tokenizer stopped early: %v", err)
			}
			return runs

		case html.TextToken:
			appendText(string(z.Text()))

		case html.SelfClosingTagToken:
			// <br/>, <img/> and friends carry no text.

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if voidElements[tag] {
				continue
			}
			if inside || tag != "span" || !hasAttr {
				stack = append(stack, frame{tag: tag})
				continue
			}
			seg, ok := readEntityAttrs(z)
			if !ok {
				stack = append(stack, frame{tag: tag})
				continue
			}
			runs = append(runs, seg)
			stack = append(stack, frame{tag: tag, entity: true})
			inside = true

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].tag != tag {
					continue
				}
				for _, f := range stack[i:] {
					if f.entity {
						inside = false
					}
				}
				stack = stack[:i]
				break
			}
		}
	}
}

// readEntityAttrs consumes the attributes of a span and reports whether it is
// a well formed entity span.
func readEntityAttrs(z *html.Tokenizer) (Segment, bool) {
	seg := Segment{Kind: Entity}
	isEntity := false
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "class":
			for _, c := range strings.Fields(string(val)) {
				if c == EntityClass {
					isEntity = true
				}
			}
		case AttrID:
			seg.ID = strings.TrimSpace(string(val))
		case AttrOriginal:
			seg.Original = strings.ReplaceAll(string(val), nbsp, " ")
		case AttrURL:
			seg.URL = string(val)
		}
		if !more {
			break
		}
	}
	if !isEntity || seg.ID == "" || seg.Original == "" {
		return Segment{}, false
	}
	return seg, true
}

func cleanText(s string) string {
	if strings.ContainsRune(s, lineBreakRune) || strings.ContainsRune(s, '\r') {
		s = strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(s)
	}
	if strings.Contains(s, zeroWidth) {
		s = strings.ReplaceAll(s, zeroWidth, "")
	}
	// Editing surfaces write trailing spaces as non-breaking ones.
	return strings.ReplaceAll(s, nbsp, " ")
}
