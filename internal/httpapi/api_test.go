package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bastiangx/qacbox/pkg/document"
	"github.com/bastiangx/qacbox/pkg/lookup"
	"github.com/bastiangx/qacbox/pkg/server"
	"github.com/bastiangx/qacbox/pkg/widget"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockCompleter struct {
	lastQuery string
	lastLimit int
}

func (m *mockCompleter) Complete(query string, limit int) []lookup.Result {
	m.lastQuery, m.lastLimit = query, limit
	if query == "none" {
		return nil
	}
	return []lookup.Result{{
		Completion: "[Marie Curie] ",
		Wikified:   "[Marie Curie] ",
		QIDs:       []string{"Q7186"},
		URLs:       []string{"https://en.wikipedia.org/wiki/Marie_Curie"},
	}}
}

func (m *mockCompleter) Info(qid string) (lookup.Info, bool) {
	if qid == "Q7186" {
		return lookup.Info{Image: "curie.jpg", Abstract: "Physicist."}, true
	}
	return lookup.Info{}, false
}

func (m *mockCompleter) Stats() map[string]int { return map[string]int{"aliases": 1} }

func get(t *testing.T, r http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHandleQAC(t *testing.T) {
	mc := &mockCompleter{}
	r := New(mc, server.Limits{MinPrefix: 1, MaxPrefix: 60, MaxLimit: 5}).Router()

	w := get(t, r, "/qac?q=mar&t=105&l=50")
	require.Equal(t, http.StatusOK, w.Code)

	var resp lookup.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(105), resp.Timestamp)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []string{"Q7186"}, resp.Results[0].QIDs)
	assert.Equal(t, "mar", mc.lastQuery)
	assert.Equal(t, 5, mc.lastLimit)
}

func TestHandleQACEmptyResultsIsAList(t *testing.T) {
	r := New(&mockCompleter{}, server.DefaultLimits).Router()

	w := get(t, r, "/qac?q=none&t=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results": [], "timestamp": 1}`, w.Body.String())
}

func TestHandleQACOutOfRangePrefix(t *testing.T) {
	mc := &mockCompleter{}
	r := New(mc, server.Limits{MinPrefix: 2, MaxPrefix: 10}).Router()

	testCases := []struct {
		target      string
		description string
	}{
		{"/qac?t=3", "missing prefix"},
		{"/qac?q=&t=3", "empty prefix"},
		{"/qac?q=a&t=3", "prefix too short"},
		{"/qac?q=abcdefghijklmnop&t=3", "prefix too long"},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			w := get(t, r, tc.target)
			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"results": [], "timestamp": 3}`, w.Body.String())
		})
	}
	assert.Empty(t, mc.lastQuery, "completer is not asked")
}

func TestHandleQACErrors(t *testing.T) {
	r := New(&mockCompleter{}, server.Limits{MinPrefix: 2, MaxPrefix: 10}).Router()

	testCases := []struct {
		target      string
		code        string
		description string
	}{
		{"/qac?q=abc&t=soon", "INVALID_PARAMETER", "token not a number"},
		{"/qac?q=abc&l=x", "INVALID_PARAMETER", "limit not a number"},
		{"/tooltip", "MISSING_PARAMETER", "tooltip without qid"},
		{"/question", "MISSING_PARAMETER", "question without text"},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			w := get(t, r, tc.target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestHandleTooltip(t *testing.T) {
	r := New(&mockCompleter{}, server.DefaultLimits).Router()

	w := get(t, r, "/tooltip?qid=Q7186")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"image": "curie.jpg", "abstract": "Physicist."}`, w.Body.String())

	w = get(t, r, "/tooltip?qid=Q1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"image": "", "abstract": ""}`, w.Body.String())
}

func TestHandleQuestion(t *testing.T) {
	r := New(&mockCompleter{}, server.DefaultLimits).Router()

	w := get(t, r, "/question?q=where+was+%5Bperson%7CQ7186%3AMarie+Curie%5D+born")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"question": "where was Marie Curie born"}`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	a := New(&mockCompleter{}, server.Limits{MinPrefix: 1, RatePerSec: 0.001, Burst: 1})
	r := a.Router()

	assert.Equal(t, http.StatusOK, get(t, r, "/qac?q=mar").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, r, "/qac?q=mar").Code)
	// metrics are not rate limited
	assert.Equal(t, http.StatusOK, get(t, r, "/metrics").Code)

	a.SetLimits(server.Limits{MinPrefix: 1})
	assert.Equal(t, http.StatusOK, get(t, r, "/qac?q=mar").Code)
}

func TestMetricsExposed(t *testing.T) {
	r := New(&mockCompleter{}, server.DefaultLimits).Router()
	get(t, r, "/qac?q=mar")

	w := get(t, r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "qacbox_http_requests_total")
	assert.Contains(t, w.Body.String(), `route="/qac"`)
}

func TestHTTPClientAgainstAPI(t *testing.T) {
	ts := httptest.NewServer(New(&mockCompleter{}, server.DefaultLimits).Router())
	defer ts.Close()

	client := lookup.NewHTTPClient(ts.URL, time.Second)
	defer client.Close()
	ctx := context.Background()

	resp, err := client.Complete(ctx, lookup.Request{Query: "where was mar", Token: 42, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.Timestamp)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []string{"Q7186"}, resp.Results[0].Document().IDs())

	info, err := client.Info(ctx, "Q7186")
	require.NoError(t, err)
	assert.Equal(t, "Physicist.", info.Abstract)
}

// spanEditor is a bare editing surface holding span markup.
type spanEditor struct {
	markup string
	run    int
	off    int
}

func (e *spanEditor) Markup() string          { return e.markup }
func (e *spanEditor) SetMarkup(markup string) { e.markup = markup }
func (e *spanEditor) Cursor() (int, int)      { return e.run, e.off }
func (e *spanEditor) SetCursor(run, off int)  { e.run, e.off = run, off }

func (e *spanEditor) Runs() []string {
	runs := document.ParseRendered(e.markup)
	if len(runs) == 0 {
		return []string{""}
	}
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.Text
	}
	return out
}

func TestWidgetListFollowsInputAgainstAPI(t *testing.T) {
	ts := httptest.NewServer(New(&mockCompleter{}, server.DefaultLimits).Router())
	defer ts.Close()

	client := lookup.NewHTTPClient(ts.URL, time.Second)
	defer client.Close()
	ctx := context.Background()

	w := widget.New("", nil, widget.Options{Limit: 5, MaxQueryLen: 200, Logger: log.New(io.Discard)})
	e := &spanEditor{}
	w.Mount(e)

	typeText := func(text string) {
		t.Helper()
		e.markup = "<span>" + text + "</span>"
		res, err := w.Edit(e)
		require.NoError(t, err)
		require.NotNil(t, res.Request)
		resp, err := client.Complete(ctx, *res.Request)
		require.NoError(t, err)
		require.True(t, w.Deliver(resp))
	}

	testCases := []struct {
		text        string
		description string
	}{
		{"", "cleared input"},
		{strings.Repeat("where was she born ", 4), "input longer than the server completes"},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			typeText("wh")
			require.Len(t, w.Suggestions(), 1)

			typeText(tc.text)
			assert.Empty(t, w.Suggestions())
			_, ok := w.Selected()
			assert.False(t, ok, "nothing left to confirm")
		})
	}
}
