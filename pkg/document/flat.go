package document

import (
	"encoding/json"
	"strings"
)

// Delimiters of an entity mention in the flat form. They are reserved: plain
// text never carries them into the flat form.
const (
	OpenMention  = '['
	CloseMention = ']'
)

// Token is a run of flat text. For mentions Text excludes the delimiters.
type Token struct {
	Text    string
	Mention bool
}

// Tokenize splits flat text into plain runs and mentions. A '[' opens a
// mention only when a ']' follows before any other '['; otherwise it is text.
func Tokenize(flat string) []Token {
	var toks []Token
	start := 0
	for i := 0; i < len(flat); i++ {
		if flat[i] != OpenMention {
			continue
		}
		end := -1
		for j := i + 1; j < len(flat); j++ {
			if flat[j] == OpenMention {
				break
			}
			if flat[j] == CloseMention {
				end = j
				break
			}
		}
		if end < 0 {
			continue
		}
		if i > start {
			toks = append(toks, Token{Text: flat[start:i]})
		}
		toks = append(toks, Token{Text: flat[i+1 : end], Mention: true})
		start = end + 1
		i = end
	}
	if start < len(flat) {
		toks = append(toks, Token{Text: flat[start:]})
	}
	return toks
}

// CountMentions returns the number of delimited mentions in flat text.
func CountMentions(flat string) int {
	n := 0
	for _, t := range Tokenize(flat) {
		if t.Mention {
			n++
		}
	}
	return n
}

// ParseFlat parses the flat form, pairing the i-th mention with refs[i].
// When there are more mentions than refs the whole text is taken as plain
// (delimiters dropped, surface text kept).
func ParseFlat(flat string, refs []Ref) *Document {
	toks := Tokenize(flat)
	mentions := 0
	for _, t := range toks {
		if t.Mention {
			mentions++
		}
	}
	if mentions > len(refs) {
		return buildFlat(toks, nil)
	}
	return buildFlat(toks, refs)
}

// ParseFlatTruncated is ParseFlat for server produced text: mentions beyond
// the ref list become plain text one by one instead of failing the whole parse.
func ParseFlatTruncated(flat string, refs []Ref) *Document {
	return buildFlat(Tokenize(flat), refs)
}

func buildFlat(toks []Token, refs []Ref) *Document {
	b := NewBuilder(len(toks))
	next := 0
	for _, t := range toks {
		if !t.Mention {
			b.AddText(t.Text)
			continue
		}
		if next >= len(refs) {
			b.AddText(t.Text)
			continue
		}
		ref := refs[next]
		next++
		if t.Text == "" {
			continue
		}
		// Add demotes mentions without an id.
		b.Add(EntitySegment(t.Text, ref.ID, ref.URL))
	}
	return b.Document()
}

// ToFlat serializes the document to the flat form.
func (d *Document) ToFlat() string {
	return d.flat(func(s Segment) string { return s.Text })
}

// Query is the flat form in identifier space: every entity is written as
// [ID] so the lookup service sees confirmed entities by identifier.
func (d *Document) Query() string {
	return d.flat(func(s Segment) string { return s.ID })
}

func (d *Document) flat(mention func(Segment) string) string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	for _, s := range d.segs {
		if s.Kind == Entity {
			b.WriteByte(OpenMention)
			b.WriteString(mention(s))
			b.WriteByte(CloseMention)
			continue
		}
		b.WriteString(stripDelimiters(s.Text))
	}
	return b.String()
}

func stripDelimiters(s string) string {
	if !strings.ContainsAny(s, "[]") {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == OpenMention || r == CloseMention {
			return -1
		}
		return r
	}, s)
}

// ParseIDList reads an identifier list given either comma joined
// ("Q1,Q2") or as a JSON array (["Q1","Q2"]). Positions are kept, so an
// empty entry stays empty.
func ParseIDList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var ids []*string
		if err := json.Unmarshal([]byte(s), &ids); err == nil {
			out := make([]string, len(ids))
			for i, id := range ids {
				if id != nil {
					out[i] = strings.TrimSpace(*id)
				}
			}
			return out
		}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// RefsFrom zips identifiers with their optional links.
func RefsFrom(ids, urls []string) []Ref {
	refs := make([]Ref, len(ids))
	for i, id := range ids {
		refs[i].ID = id
		if i < len(urls) {
			refs[i].URL = urls[i]
		}
	}
	return refs
}

// StripTypedMentions rewrites mentions of the form [type|qid:name] to their
// bare name, the form the answer backend expects. Other text is untouched.
func StripTypedMentions(question string) string {
	var b strings.Builder
	for _, t := range Tokenize(question) {
		if !t.Mention {
			b.WriteString(t.Text)
			continue
		}
		bar := strings.IndexByte(t.Text, '|')
		if bar >= 0 {
			if colon := strings.IndexByte(t.Text[bar+1:], ':'); colon >= 0 {
				b.WriteString(t.Text[bar+1+colon+1:])
				continue
			}
		}
		b.WriteByte(OpenMention)
		b.WriteString(t.Text)
		b.WriteByte(CloseMention)
	}
	return b.String()
}
