// Package cli is a line based host for the query widget, for debugging
// lookups without a full screen terminal.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/qacbox/internal/tui"
	"github.com/bastiangx/qacbox/internal/utils"
	"github.com/bastiangx/qacbox/pkg/lookup"
	"github.com/bastiangx/qacbox/pkg/widget"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	entityStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// InputHandler reads lines and feeds them to a widget: text is typed at the
// end of the question, ":N" confirms suggestion N, ":info" shows the
// entities, ":clear" starts over and ":ask" submits.
type InputHandler struct {
	w        *widget.Widget
	ed       *tui.Editor
	client   lookup.Client
	timeout  time.Duration
	noFilter bool

	in  io.Reader
	out io.Writer

	requestCount int
	newWidget    func() *widget.Widget
}

// NewInputHandler returns a handler; newWidget is called at start and on
// ":clear".
func NewInputHandler(newWidget func() *widget.Widget, client lookup.Client, timeout time.Duration, noFilter bool, in io.Reader, out io.Writer) *InputHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	h := &InputHandler{
		client:    client,
		timeout:   timeout,
		noFilter:  noFilter,
		in:        in,
		out:       out,
		newWidget: newWidget,
	}
	h.reset()
	return h
}

func (h *InputHandler) reset() {
	h.w = h.newWidget()
	h.ed = tui.NewEditor()
	h.w.Mount(h.ed)
}

// Start runs the loop until input ends, ctx is cancelled or the question
// is asked. The submission is returned when there was one.
func (h *InputHandler) Start(ctx context.Context) (*widget.Submission, error) {
	fmt.Fprintln(h.out, "qacbox query [debug]")
	fmt.Fprintln(h.out, "type text and press Enter; :N picks a suggestion, :ask submits, :clear resets")

	scanner := bufio.NewScanner(h.in)
	for {
		fmt.Fprintf(h.out, "%s> ", h.w.Document().ToFlat())
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, nil
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		sub, done := h.handleInput(ctx, line)
		if done {
			return sub, nil
		}
	}
}

func (h *InputHandler) handleInput(ctx context.Context, line string) (*widget.Submission, bool) {
	cmd := strings.TrimSpace(line)
	switch {
	case cmd == ":ask":
		s, err := h.w.Submit()
		if err != nil {
			log.Errorf("Submit: %v", err)
			return nil, true
		}
		fmt.Fprintf(h.out, "question: %s\nentities: %s\nquery:    %s\n", s.Question, strings.Join(s.QIDs, ","), s.Query)
		return &s, true
	case cmd == ":clear":
		h.w.Dispose()
		h.reset()
		return nil, false
	case cmd == ":info":
		h.printInfo(ctx)
		return nil, false
	case strings.HasPrefix(cmd, ":"):
		n, err := strconv.Atoi(cmd[1:])
		if err != nil || n < 1 || n > len(h.w.Suggestions()) {
			log.Errorf("No suggestion %q", cmd[1:])
			return nil, false
		}
		req, err := h.w.Confirm(h.ed, n-1)
		if err != nil {
			log.Errorf("Confirm: %v", err)
			return nil, false
		}
		h.lookup(ctx, req)
		return nil, false
	}

	h.ed.End()
	h.ed.Insert(line)
	res, err := h.w.Edit(h.ed)
	if err != nil {
		log.Errorf("Edit: %v", err)
		return nil, false
	}
	if res.Demoted > 0 {
		log.Warnf("Edited %d entities, they are plain text now", res.Demoted)
	}
	if !h.noFilter && !utils.IsValidFragment(lastWord(h.w.Document().Text())) {
		log.Infof("Not looking up %q", lastWord(h.w.Document().Text()))
		return nil, false
	}
	h.lookup(ctx, res.Request)
	return nil, false
}

func (h *InputHandler) lookup(ctx context.Context, req *lookup.Request) {
	if req == nil || h.client == nil {
		return
	}
	h.requestCount++
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	resp, err := h.client.Complete(ctx, *req)
	if err != nil {
		if errors.Is(err, lookup.ErrMalformed) {
			log.Warnf("Malformed response for %q", req.Query)
		} else {
			log.Errorf("Lookup failed: %v", err)
		}
		return
	}
	log.Debugf("Took [ %v ] for query '%s' (request #%d)", time.Since(start), req.Query, h.requestCount)
	if !h.w.Deliver(resp) {
		return
	}

	results := h.w.Suggestions()
	if len(results) == 0 {
		fmt.Fprintf(h.out, "no suggestions for '%s'\n", req.Query)
		return
	}
	fmt.Fprintf(h.out, "%s suggestions for '%s':\n", utils.FormatWithCommas(len(results)), req.Query)
	for i, r := range results {
		var b strings.Builder
		for _, p := range r.Label() {
			if p.Entity {
				b.WriteString(entityStyle.Render(p.String()))
			} else {
				b.WriteString(p.Text)
			}
		}
		fmt.Fprintf(h.out, "%2d. %s %s\n", i+1, b.String(), dimStyle.Render(strings.Join(r.QIDs, ",")))
	}
}

func (h *InputHandler) printInfo(ctx context.Context) {
	segs := h.w.Document().Segments()
	for i, s := range segs {
		ent, ok := h.w.EntityAt(i)
		if !ok {
			continue
		}
		info, cached := h.w.Tooltip(ent.ID)
		if !cached && h.client != nil {
			ictx, cancel := context.WithTimeout(ctx, h.timeout)
			fetched, err := h.client.Info(ictx, ent.ID)
			cancel()
			if err != nil {
				log.Errorf("Info %s: %v", ent.ID, err)
				continue
			}
			h.w.StoreTooltip(ent.ID, fetched)
			info = fetched
		}
		fmt.Fprintf(h.out, "%s %s: %s\n", entityStyle.Render(s.Text), dimStyle.Render(ent.ID), info.Summary())
	}
}

func lastWord(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[len(f)-1]
}
