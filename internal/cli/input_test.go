package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/bastiangx/qacbox/pkg/lookup"
	"github.com/bastiangx/qacbox/pkg/widget"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	queries []string
}

func (s *stubClient) Complete(_ context.Context, req lookup.Request) (*lookup.Response, error) {
	s.queries = append(s.queries, req.Query)
	results := []lookup.Result{}
	if strings.HasSuffix(req.Query, "curie") {
		results = append(results,
			lookup.Result{Completion: "where was [Marie Curie] ", QIDs: []string{"Q7186"}, URLs: []string{""}},
			lookup.Result{Completion: "where was [curie] ", Wikified: "where was [Curie (unit)] ", MatchedAlias: "curie", QIDs: []string{"Q131255"}, URLs: []string{""}},
		)
	}
	return &lookup.Response{Results: results, Timestamp: req.Token}, nil
}

func (s *stubClient) Info(_ context.Context, qid string) (lookup.Info, error) {
	return lookup.Info{Abstract: "about " + qid}, nil
}

func (s *stubClient) Close() error { return nil }

func newHandler(input string, client lookup.Client) (*InputHandler, *bytes.Buffer) {
	out := &bytes.Buffer{}
	h := NewInputHandler(func() *widget.Widget {
		return widget.New("", nil, widget.Options{Logger: log.New(io.Discard)})
	}, client, 0, false, strings.NewReader(input), out)
	return h, out
}

func TestInputHandlerComposeAndAsk(t *testing.T) {
	client := &stubClient{}
	h, out := newHandler("where was curie\n:1\nborn?\n:ask\n", client)

	sub, err := h.Start(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sub)

	assert.Equal(t, "where was [Marie Curie] born?", sub.Question)
	assert.Equal(t, []string{"Q7186"}, sub.QIDs)
	assert.Equal(t, "where was [Q7186] born?", sub.Query)
	assert.Equal(t, []string{"where was curie", "where was [Q7186] ", "where was [Q7186] born?"}, client.queries)
	assert.Contains(t, out.String(), "Curie (unit) (curie)")
}

func TestInputHandlerBadPick(t *testing.T) {
	h, _ := newHandler(":3\nwhere was curie\n:9\n", &stubClient{})
	sub, err := h.Start(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Empty(t, h.w.Document().IDs())
}

func TestInputHandlerInfoAndClear(t *testing.T) {
	h, out := newHandler("where was curie\n:1\n:info\n:clear\n", &stubClient{})
	_, err := h.Start(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "about Q7186")
	assert.True(t, h.w.Document().IsEmpty())
}

func TestInputHandlerFiltersJunk(t *testing.T) {
	client := &stubClient{}
	h, _ := newHandler("1234\n", client)
	_, err := h.Start(context.Background())
	require.NoError(t, err)
	assert.Empty(t, client.queries)
}
