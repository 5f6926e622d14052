package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/m-mizutani/goerr/v2"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool"
)

// URLInfo reports status, content type, size and title for a URL without
// dumping the page itself.
type URLInfo struct {
	client *Client
}

func NewURLInfo(client *Client) *URLInfo {
	return &URLInfo{client: client}
}

func (x *URLInfo) Name() string {
	return "url_info"
}

func (x *URLInfo) Description() string {
	return "Inspect a URL: 'url info https://example.com'"
}

func (x *URLInfo) Schema() *jsonschema.Schema {
	return urlSchema()
}

func (x *URLInfo) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "url info", ArgKey: "url"},
		tool.PrefixRule{Prefix: "inspect url", ArgKey: "url"},
	}, utterance)
}

func (x *URLInfo) Timeout() time.Duration {
	return 30 * time.Second
}

func (x *URLInfo) Execute(ctx context.Context, args tool.Args) *model.Result {
	target := args["url"]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument,
			goerr.Wrap(err, "invalid URL", goerr.V("url", target)))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := x.client.http.Do(req)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "request failed", goerr.V("url", target)))
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")

	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", target)
	fmt.Fprintf(&b, "Status: %s\n", resp.Status)
	if contentType != "" {
		fmt.Fprintf(&b, "Content-Type: %s\n", contentType)
	}
	if resp.ContentLength > 0 {
		fmt.Fprintf(&b, "Size: %s\n", formatBytes(resp.ContentLength))
	}
	if server := resp.Header.Get("Server"); server != "" {
		fmt.Fprintf(&b, "Server: %s\n", server)
	}

	if strings.Contains(contentType, "text/html") {
		if title := pageTitle(resp); title != "" {
			fmt.Fprintf(&b, "Title: %s\n", title)
		}
	}

	return model.NewResult(x.Name(), strings.TrimRight(b.String(), "\n"))
}

func pageTitle(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
