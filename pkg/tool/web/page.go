package web

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool"
)

// Scrape fetches a page and returns its visible text, truncated.
type Scrape struct {
	client   *Client
	maxChars int
}

func NewScrape(client *Client) *Scrape {
	return &Scrape{client: client, maxChars: 2000}
}

func (x *Scrape) Name() string {
	return "scrape_webpage"
}

func (x *Scrape) Description() string {
	return "Extract the visible text of a page: 'scrape https://example.com'"
}

func (x *Scrape) Schema() *jsonschema.Schema {
	return urlSchema()
}

func (x *Scrape) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "scrape webpage", ArgKey: "url"},
		tool.PrefixRule{Prefix: "scrape", ArgKey: "url"},
	}, utterance)
}

func (x *Scrape) Timeout() time.Duration {
	return 30 * time.Second
}

func (x *Scrape) Execute(ctx context.Context, args tool.Args) *model.Result {
	doc, err := x.client.document(ctx, args["url"])
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution, err)
	}

	doc.Find("script, style, noscript, nav, footer, header").Remove()
	text := normalizeWhitespace(doc.Find("body").Text())
	if text == "" {
		return model.NewResult(x.Name(), "Page has no visible text")
	}
	if len(text) > x.maxChars {
		text = text[:x.maxChars] + "\n[truncated]"
	}
	return model.NewResult(x.Name(), text)
}

// ReadPage extracts the main article content of a page, preferring
// article/main containers over the full body.
type ReadPage struct {
	client   *Client
	maxChars int
}

func NewReadPage(client *Client) *ReadPage {
	return &ReadPage{client: client, maxChars: 4000}
}

func (x *ReadPage) Name() string {
	return "read_webpage"
}

func (x *ReadPage) Description() string {
	return "Read the main content of a page: 'read webpage https://example.com/article'"
}

func (x *ReadPage) Schema() *jsonschema.Schema {
	return urlSchema()
}

func (x *ReadPage) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "read webpage", ArgKey: "url"},
		tool.PrefixRule{Prefix: "read page", ArgKey: "url"},
	}, utterance)
}

func (x *ReadPage) Timeout() time.Duration {
	return 30 * time.Second
}

func (x *ReadPage) Execute(ctx context.Context, args tool.Args) *model.Result {
	doc, err := x.client.document(ctx, args["url"])
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution, err)
	}

	doc.Find("script, style, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	var content string
	for _, selector := range []string{"article", "main", "#content", ".content"} {
		if s := doc.Find(selector).First(); s.Length() > 0 {
			content = normalizeWhitespace(s.Text())
			break
		}
	}
	if content == "" {
		var paragraphs []string
		doc.Find("p").Each(func(i int, s *goquery.Selection) {
			if p := strings.TrimSpace(s.Text()); p != "" {
				paragraphs = append(paragraphs, p)
			}
		})
		content = strings.Join(paragraphs, "\n\n")
	}
	if content == "" {
		return model.NewResult(x.Name(), "Could not find readable content on the page")
	}
	if len(content) > x.maxChars {
		content = content[:x.maxChars] + "\n[truncated]"
	}

	if title != "" {
		return model.NewResult(x.Name(), fmt.Sprintf("%s\n\n%s", title, content))
	}
	return model.NewResult(x.Name(), content)
}

func (x *Client) document(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := x.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse page", goerr.V("url", url))
	}
	return doc, nil
}

func urlSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"url": {Type: "string", Description: "Page URL"},
		},
		Required: []string{"url"},
	}
}

func normalizeWhitespace(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
