// Package tui is a terminal host for the query widget. It owns the
// editing surface, runs lookups as commands and feeds their answers back.
//
// The model is driven by bubbletea's single update loop; lookups run in
// command goroutines and only touch the widget through messages.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/bastiangx/qacbox/pkg/document"
	"github.com/bastiangx/qacbox/pkg/lookup"
	"github.com/bastiangx/qacbox/pkg/selection"
	"github.com/bastiangx/qacbox/pkg/widget"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// listTop is the screen row of the first suggestion.
const listTop = 4

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	entityStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Underline(true)
	editedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("#374151"))
	aliasStyle    = lipgloss.NewStyle().Faint(true)
	tooltipStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#9CA3AF"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// Options tune the host.
type Options struct {
	// Timeout bounds one lookup; zero means no bound.
	Timeout time.Duration
	// Debounce delays a lookup until typing pauses for this long.
	Debounce time.Duration
	Logger   *log.Logger
}

type resultMsg struct {
	resp *lookup.Response
	err  error
}

type infoMsg struct {
	qid  string
	info lookup.Info
	err  error
}

type debounceMsg struct {
	req lookup.Request
}

// Model hosts one widget.
type Model struct {
	w      *widget.Widget
	ed     *Editor
	client lookup.Client
	opts   Options
	log    *log.Logger

	keys     keyMap
	help     help.Model
	width    int
	pending  int64
	fetching map[string]bool
	status   string

	submitted *widget.Submission
}

// New mounts w on a fresh editor. client may be nil, then no lookups run.
func New(w *widget.Widget, client lookup.Client, opts Options) Model {
	ed := NewEditor()
	w.Mount(ed)
	l := opts.Logger
	if l == nil {
		l = log.Default()
	}
	return Model{
		w:        w,
		ed:       ed,
		client:   client,
		opts:     opts,
		log:      l,
		keys:     defaultKeyMap(),
		help:     help.New(),
		fetching: make(map[string]bool),
	}
}

// Submitted returns the question once the user asked it.
func (m Model) Submitted() (widget.Submission, bool) {
	if m.submitted == nil {
		return widget.Submission{}, false
	}
	return *m.submitted, true
}

// Init looks up completions for a prefilled question.
func (m Model) Init() tea.Cmd {
	if m.w.Document().IsEmpty() {
		return nil
	}
	req, err := m.w.Refresh()
	if err != nil || req == nil {
		return nil
	}
	return m.complete(*req)
}

// Update handles keys, mouse events and lookup answers.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case resultMsg:
		if msg.err != nil {
			m.status = "lookup failed: " + msg.err.Error()
			m.log.Warn("Lookup failed", "err", msg.err)
			return m, nil
		}
		m.status = ""
		m.w.Deliver(msg.resp)
		return m, nil

	case infoMsg:
		delete(m.fetching, msg.qid)
		if msg.err != nil {
			m.log.Warn("Info lookup failed", "qid", msg.qid, "err", msg.err)
			return m, nil
		}
		m.w.StoreTooltip(msg.qid, msg.info)
		return m, nil

	case debounceMsg:
		if msg.req.Token != m.pending {
			return m, nil
		}
		return m, m.complete(msg.req)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.w.Dispose()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Submit):
		s, err := m.w.Submit()
		if err == nil {
			m.submitted = &s
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Up):
		return m.selectEvent(selection.Event{Kind: selection.Up})
	case key.Matches(msg, m.keys.Down):
		return m.selectEvent(selection.Event{Kind: selection.Down})
	case key.Matches(msg, m.keys.Confirm):
		return m.selectEvent(selection.Event{Kind: selection.Enter})
	case key.Matches(msg, m.keys.Left):
		m.ed.Left()
		return m, m.tooltip()
	case key.Matches(msg, m.keys.Right):
		m.ed.Right()
		return m, m.tooltip()
	case key.Matches(msg, m.keys.Home):
		m.ed.Home()
		return m, m.tooltip()
	case key.Matches(msg, m.keys.End):
		m.ed.End()
		return m, m.tooltip()
	}

	switch msg.Type {
	case tea.KeyRunes:
		m.ed.Insert(string(msg.Runes))
	case tea.KeySpace:
		m.ed.Insert(" ")
	case tea.KeyBackspace:
		if !m.ed.Backspace() {
			return m, nil
		}
	case tea.KeyDelete:
		if !m.ed.Delete() {
			return m, nil
		}
	default:
		return m, nil
	}
	return m.edit()
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	idx := msg.Y - listTop
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		return m.selectEvent(selection.Event{Kind: selection.Up})
	case msg.Button == tea.MouseButtonWheelDown:
		return m.selectEvent(selection.Event{Kind: selection.Down})
	case msg.Action == tea.MouseActionMotion:
		return m.selectEvent(selection.Event{Kind: selection.Hover, Index: idx})
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		return m.selectEvent(selection.Event{Kind: selection.Click, Index: idx})
	}
	return m, nil
}

func (m Model) edit() (tea.Model, tea.Cmd) {
	res, err := m.w.Edit(m.ed)
	if err != nil || res.Request == nil {
		return m, m.tooltip()
	}
	return m.schedule(*res.Request)
}

func (m Model) selectEvent(ev selection.Event) (tea.Model, tea.Cmd) {
	consumed, req, err := m.w.Select(m.ed, ev)
	if err != nil || !consumed || req == nil {
		return m, nil
	}
	return m.schedule(*req)
}

// schedule runs req now, or after the debounce delay if it is still the
// newest request by then.
func (m Model) schedule(req lookup.Request) (tea.Model, tea.Cmd) {
	m.pending = req.Token
	if m.opts.Debounce <= 0 {
		return m, tea.Batch(m.complete(req), m.tooltip())
	}
	return m, tea.Batch(
		tea.Tick(m.opts.Debounce, func(time.Time) tea.Msg { return debounceMsg{req: req} }),
		m.tooltip(),
	)
}

func (m Model) complete(req lookup.Request) tea.Cmd {
	if m.client == nil {
		return nil
	}
	client, timeout := m.client, m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := lookupContext(timeout)
		defer cancel()
		resp, err := client.Complete(ctx, req)
		return resultMsg{resp: resp, err: err}
	}
}

// tooltip fetches the info of the entity under the cursor if it is not
// cached yet.
func (m Model) tooltip() tea.Cmd {
	run, ok := m.ed.EntityRun()
	if !ok || m.client == nil {
		return nil
	}
	seg, ok := m.w.EntityAt(run)
	if !ok {
		return nil
	}
	if _, cached := m.w.Tooltip(seg.ID); cached || m.fetching[seg.ID] {
		return nil
	}
	m.fetching[seg.ID] = true
	client, timeout, qid := m.client, m.opts.Timeout, seg.ID
	return func() tea.Msg {
		ctx, cancel := lookupContext(timeout)
		defer cancel()
		info, err := client.Info(ctx, qid)
		return infoMsg{qid: qid, info: info, err: err}
	}
}

func lookupContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

// View renders the title, the input line, the tooltip or status line, the
// suggestions and the help.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Ask a question"))
	b.WriteString("\n\n")
	b.WriteString("> " + m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")

	sel, hasSel := m.w.Selected()
	for i, r := range m.w.Suggestions() {
		line := "  " + renderLabel(r)
		if hasSel && i == sel {
			line = selectedStyle.Render("▸ " + renderLabel(r))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))

	out := b.String()
	if m.width > 0 {
		out = lipgloss.NewStyle().MaxWidth(m.width).Render(out)
	}
	return out
}

func (m Model) renderStatus() string {
	if m.status != "" {
		return errorStyle.Render(m.status)
	}
	run, ok := m.ed.EntityRun()
	if !ok {
		return ""
	}
	seg, ok := m.w.EntityAt(run)
	if !ok {
		return ""
	}
	info, ok := m.w.Tooltip(seg.ID)
	if !ok {
		return tooltipStyle.Render(seg.ID)
	}
	text := seg.ID + ": " + info.Summary()
	if info.Image != "" {
		text += " [" + info.Image + "]"
	}
	return tooltipStyle.Render(text)
}

func (m Model) renderInput() string {
	run, off := m.ed.Cursor()
	var b strings.Builder
	for i, s := range m.ed.Segments() {
		style := lipgloss.NewStyle()
		switch {
		case s.Kind == document.Entity && s.Text == s.Original:
			style = entityStyle
		case s.Kind == document.Entity:
			style = editedStyle
		}
		if i != run {
			b.WriteString(style.Render(s.Text))
			continue
		}
		r := []rune(s.Text)
		b.WriteString(style.Render(string(r[:off])))
		if off < len(r) {
			b.WriteString(cursorStyle.Render(string(r[off])))
			b.WriteString(style.Render(string(r[off+1:])))
		} else if i == len(m.ed.Segments())-1 {
			b.WriteString(cursorStyle.Render(" "))
		}
	}
	return b.String()
}

func renderLabel(r lookup.Result) string {
	var b strings.Builder
	for _, p := range r.Label() {
		if !p.Entity {
			b.WriteString(p.Text)
			continue
		}
		b.WriteString(entityStyle.Render(p.Text))
		if p.Alias != "" {
			b.WriteString(aliasStyle.Render(" (" + p.Alias + ")"))
		}
	}
	return b.String()
}
