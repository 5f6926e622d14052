package web

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// maxBodySize caps how much of a page any web tool reads (5 MiB).
const maxBodySize = 5 << 20

// Client is the shared HTTP layer for all web tools. A custom base client
// can be injected for tests.
type Client struct {
	http *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(x *Client) {
		x.http = c
	}
}

func NewClient(opts ...ClientOption) *Client {
	x := &Client{
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build request", goerr.V("url", url))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := x.http.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "request failed", goerr.V("url", url))
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, goerr.New("unexpected HTTP status",
			goerr.V("url", url), goerr.V("status", resp.StatusCode))
	}
	return resp, nil
}

// fetch GETs a URL and returns at most maxBodySize bytes of the body.
func (x *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := x.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read body", goerr.V("url", url))
	}
	return body, nil
}
