// ABOUTME: HTTP client used by the sd command line to reach the API server
// ABOUTME: Builds escaped object URLs and renders responses to stdout or stderr

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnexpectedStatus is returned when the server answers outside 2xx.
// The response has already been reported on stderr.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// Client issues directory requests against one API endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	stdout   io.Writer
	stderr   io.Writer
}

// New creates a client for endpoint that reports responses to stdout and stderr.
func New(endpoint string, stdout, stderr io.Writer) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		stdout:   stdout,
		stderr:   stderr,
	}
}

// ObjectURL joins the endpoint and segments, escaping every segment
// so a label containing "/" stays one path segment.
func (c *Client) ObjectURL(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.endpoint)
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

// Put sends fields form-encoded to the object at segments.
func (c *Client) Put(ctx context.Context, fields url.Values, segments ...string) error {
	return c.do(ctx, http.MethodPut, c.ObjectURL(segments...), fields)
}

// Delete removes the object at segments.
func (c *Client) Delete(ctx context.Context, segments ...string) error {
	return c.do(ctx, http.MethodDelete, c.ObjectURL(segments...), nil)
}

// Get fetches the object or collection at segments.
func (c *Client) Get(ctx context.Context, segments ...string) error {
	return c.do(ctx, http.MethodGet, c.ObjectURL(segments...), nil)
}

func (c *Client) do(ctx context.Context, method, target string, fields url.Values) error {
	var body io.Reader
	if fields != nil {
		body = strings.NewReader(fields.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if fields != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	return c.report(resp.StatusCode, string(text))
}

// report prints a 2xx body to stdout and anything else to stderr.
func (c *Client) report(status int, text string) error {
	if status < 200 || status >= 300 {
		fmt.Fprintf(c.stderr, "Unexpected status code: %d\n", status)
		fmt.Fprintf(c.stderr, "Response text:\n")
		fmt.Fprintf(c.stderr, "%s\n", text)
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, status)
	}
	fmt.Fprintf(c.stdout, "%s\n", text)
	return nil
}
