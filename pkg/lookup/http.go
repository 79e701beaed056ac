package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// maxBody bounds what is read from one response.
const maxBody = 4 << 20

// HTTPClient talks to a service exposing /qac and /tooltip.
type HTTPClient struct {
	base string
	hc   *http.Client
}

// NewHTTPClient returns a client for endpoint, e.g. http://localhost:8181.
// A zero timeout leaves requests bounded only by their context.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = timeout
	return &HTTPClient{base: strings.TrimRight(endpoint, "/"), hc: hc}
}

// Complete sends GET /qac?q=...&t=...
func (c *HTTPClient) Complete(ctx context.Context, req Request) (*Response, error) {
	v := url.Values{}
	v.Set("q", req.Query)
	v.Set("t", strconv.FormatInt(req.Token, 10))
	if req.Limit > 0 {
		v.Set("l", strconv.Itoa(req.Limit))
	}
	var resp Response
	if err := c.get(ctx, "/qac?"+v.Encode(), &resp); err != nil {
		return nil, err
	}
	if !resp.Valid() {
		return nil, fmt.Errorf("%w: no results field", ErrMalformed)
	}
	return &resp, nil
}

// Info sends GET /tooltip?qid=...
func (c *HTTPClient) Info(ctx context.Context, qid string) (Info, error) {
	var info Info
	err := c.get(ctx, "/tooltip?"+url.Values{"qid": {qid}}.Encode(), &info)
	return info, err
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
