package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"relevamiento/internal/jsontree"
)

const maxBody = 16 << 20

// ErrMalformed wraps every body that could not be decoded as JSON.
var ErrMalformed = errors.New("malformed response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d for %s", e.Code, e.URL)
}

// NewHTTPClient builds a client with separate connect and read budgets.
func NewHTTPClient(connect, read time.Duration) *http.Client {
	return &http.Client{
		Timeout: connect + read,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext,
			TLSHandshakeTimeout:   connect,
			ResponseHeaderTimeout: read,
			MaxIdleConnsPerHost:   8,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// Client issues JSON requests with a fixed set of default headers.
type Client struct {
	HTTP    *http.Client
	Headers http.Header
}

func NewClient(httpClient *http.Client, headers http.Header) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(4*time.Second, 18*time.Second)
	}
	h := http.Header{}
	h.Set("User-Agent", "Mozilla/5.0")
	h.Set("Accept", "application/json,text/plain,*/*")
	for k, vs := range headers {
		h[k] = append([]string(nil), vs...)
	}
	return &Client{HTTP: httpClient, Headers: h}
}

// GetJSON fetches url?q and decodes the body into an ordered tree.
func (c *Client) GetJSON(ctx context.Context, url string, q Query, extra http.Header) (*jsontree.Node, error) {
	return c.do(ctx, http.MethodGet, withQuery(url, q), nil, extra)
}

// PostJSON sends body as JSON and decodes the response.
func (c *Client) PostJSON(ctx context.Context, url string, q Query, body any, extra http.Header) (*jsontree.Node, error) {
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, withQuery(url, q), payload, extra)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, extra http.Header) (*jsontree.Node, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	for k, vs := range c.Headers {
		req.Header[k] = vs
	}
	for k, vs := range extra {
		req.Header[k] = vs
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read body from %s: %w", url, err)
	}
	node, err := jsontree.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%w from %s: %v", ErrMalformed, url, err)
	}
	return node, nil
}

func withQuery(url string, q Query) string {
	if len(q) == 0 {
		return url
	}
	return url + "?" + q.Encode()
}
