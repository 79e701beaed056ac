// Package lookup is the contract between a composing widget and the services
// it queries: completions for a question prefix and descriptive info for an
// entity. It ships an HTTP client and a msgpack client for the ipc server.
package lookup

import (
	"context"
	"errors"
	"strings"

	"github.com/bastiangx/qacbox/pkg/document"
)

var (
	// ErrMalformed marks a response that carries no usable result list.
	ErrMalformed = errors.New("lookup: malformed response")
	// ErrClosed is returned by calls on a client that has shut down.
	ErrClosed = errors.New("lookup: client closed")
)

// NoInfo is shown for an entity whose info has neither image nor abstract.
const NoInfo = "No information found."

// Request asks for completions of Query. Token is echoed back as the
// response timestamp.
type Request struct {
	Query string
	Token int64
	Limit int
}

// Result is one completion. Completion and Wikified are flat text; mentions
// pair positionally with QIDs and URLs. URLs entries may be empty.
type Result struct {
	Completion   string   `json:"completion" msgpack:"c"`
	Wikified     string   `json:"wikified_completion" msgpack:"w"`
	MatchedAlias string   `json:"matched_alias" msgpack:"a"`
	QIDs         []string `json:"qids" msgpack:"q"`
	URLs         []string `json:"urls" msgpack:"u"`
}

// Response is a completion answer. A nil Results means the service had
// nothing to say; an empty, non-nil Results is a valid empty answer.
type Response struct {
	Results   []Result `json:"results" msgpack:"r"`
	Timestamp int64    `json:"timestamp" msgpack:"ts"`
}

// Valid reports whether r may replace a suggestion list.
func (r *Response) Valid() bool {
	return r != nil && r.Results != nil
}

// Info describes an entity for a tooltip.
type Info struct {
	Image    string `json:"image" msgpack:"img"`
	Abstract string `json:"abstract" msgpack:"abs"`
}

// Empty reports whether there is nothing to show.
func (i Info) Empty() bool {
	return strings.TrimSpace(i.Image) == "" && strings.TrimSpace(i.Abstract) == ""
}

// Summary is the abstract, or NoInfo when the entity has nothing.
func (i Info) Summary() string {
	if i.Empty() {
		return NoInfo
	}
	return i.Abstract
}

// Client is a completion and info service.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Info(ctx context.Context, qid string) (Info, error)
	Close() error
}

// Document parses the completion with its references. Mentions without a
// matching identifier become plain text.
func (r Result) Document() *document.Document {
	return document.ParseFlatTruncated(r.Completion, document.RefsFrom(r.QIDs, r.URLs))
}

// LabelPart is a run of a suggestion's display label.
type LabelPart struct {
	Text   string
	Entity bool
	// Alias is set on the final entity when the completion matched through it.
	Alias string
}

// String renders the part the way a plain text list shows it.
func (p LabelPart) String() string {
	if p.Alias == "" {
		return p.Text
	}
	return p.Text + " (" + p.Alias + ")"
}

// Label returns the wikified completion as display runs. A matched alias is
// attached to the last entity when nothing but whitespace follows it.
func (r Result) Label() []LabelPart {
	text := r.Wikified
	if text == "" {
		text = r.Completion
	}
	d := document.ParseFlatTruncated(text, document.RefsFrom(r.QIDs, r.URLs))
	if d.IsEmpty() {
		return nil
	}
	segs := d.Segments()
	parts := make([]LabelPart, len(segs))
	for i, s := range segs {
		parts[i] = LabelPart{Text: s.Text, Entity: s.Kind == document.Entity}
	}
	if r.MatchedAlias == "" {
		return parts
	}
	last := len(parts) - 1
	if !parts[last].Entity && strings.TrimSpace(parts[last].Text) == "" && last > 0 {
		last--
	}
	if parts[last].Entity {
		parts[last].Alias = r.MatchedAlias
	}
	return parts
}

// LabelText is Label joined into one string.
func (r Result) LabelText() string {
	var b strings.Builder
	for _, p := range r.Label() {
		b.WriteString(p.String())
	}
	return b.String()
}
