package web

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool"
)

const defaultSearchBaseURL = "https://html.duckduckgo.com/html/"

// Search queries the DuckDuckGo HTML endpoint and returns the top results.
type Search struct {
	client     *Client
	baseURL    string
	maxResults int
}

type SearchOption func(*Search)

func WithSearchBaseURL(u string) SearchOption {
	return func(x *Search) {
		x.baseURL = u
	}
}

func WithMaxResults(n int) SearchOption {
	return func(x *Search) {
		x.maxResults = n
	}
}

func NewSearch(client *Client, opts ...SearchOption) *Search {
	x := &Search{
		client:     client,
		baseURL:    defaultSearchBaseURL,
		maxResults: 5,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *Search) Name() string {
	return "web_search"
}

func (x *Search) Description() string {
	return "Search the web: 'search for golang generics' or 'web search duckduckgo api'"
}

func (x *Search) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {Type: "string", Description: "Search query"},
		},
		Required: []string{"query"},
	}
}

func (x *Search) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "web search", ArgKey: "query"},
		tool.PrefixRule{Prefix: "search the web for", ArgKey: "query"},
		tool.PrefixRule{Prefix: "search google for", ArgKey: "query"},
		tool.PrefixRule{Prefix: "search for", ArgKey: "query"},
		tool.PrefixRule{Prefix: "search", ArgKey: "query"},
	}, utterance)
}

// Timeout lets searches run longer than the registry default.
func (x *Search) Timeout() time.Duration {
	return 30 * time.Second
}

func (x *Search) Execute(ctx context.Context, args tool.Args) *model.Result {
	endpoint := x.baseURL + "?q=" + url.QueryEscape(args["query"])

	body, err := x.client.fetch(ctx, endpoint)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to parse search results"))
	}

	var b strings.Builder
	count := 0
	doc.Find(".result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		link := s.Find("a.result__a")
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(s.Find("a.result__snippet").Text())
		if title == "" || href == "" {
			return true
		}

		count++
		fmt.Fprintf(&b, "%d. %s\n   %s\n", count, title, resolveRedirect(href))
		if snippet != "" {
			fmt.Fprintf(&b, "   %s\n", snippet)
		}
		return count < x.maxResults
	})

	if count == 0 {
		return model.NewResult(x.Name(), fmt.Sprintf("No results for %q", args["query"]))
	}
	return model.NewResult(x.Name(), strings.TrimRight(b.String(), "\n"))
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" {
		return "https:" + href
	}
	return href
}
