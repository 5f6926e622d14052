package system

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pkg/browser"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool"
)

var appNamePattern = regexp.MustCompile(`(?i)^open (?:app )?([a-zA-Z0-9_.-]+)$`)

// OpenApp launches a desktop application by name.
type OpenApp struct {
	// launch is swappable for tests; defaults to spawning the real process.
	launch func(ctx context.Context, name string) error
}

func NewOpenApp() *OpenApp {
	return &OpenApp{launch: launchApp}
}

// NewOpenAppWithLauncher injects a launcher, used by tests.
func NewOpenAppWithLauncher(launch func(ctx context.Context, name string) error) *OpenApp {
	return &OpenApp{launch: launch}
}

func (x *OpenApp) Name() string {
	return "open_app"
}

func (x *OpenApp) Description() string {
	return "Launch an application: 'open firefox'"
}

func (x *OpenApp) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"app": {Type: "string", Description: "Application name"},
		},
		Required: []string{"app"},
	}
}

func (x *OpenApp) Match(utterance string) (tool.Args, bool) {
	return tool.RegexpRule{Pattern: appNamePattern, Keys: []string{"app"}}.Match(utterance)
}

func (x *OpenApp) Execute(ctx context.Context, args tool.Args) *model.Result {
	app := args["app"]
	if err := x.launch(ctx, app); err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to launch application", goerr.V("app", app)))
	}
	result := model.NewResult(x.Name(), fmt.Sprintf("Opening %s", app))
	result.SideEffects = true
	return result
}

func launchApp(ctx context.Context, name string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", "-a", name)
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", "", name)
	default:
		cmd = exec.CommandContext(ctx, name)
	}
	return cmd.Start()
}

// OpenURL opens a URL in the default browser.
type OpenURL struct {
	open func(u string) error
}

func NewOpenURL() *OpenURL {
	return &OpenURL{open: browser.OpenURL}
}

// NewOpenURLWithOpener injects an opener, used by tests.
func NewOpenURLWithOpener(open func(u string) error) *OpenURL {
	return &OpenURL{open: open}
}

func (x *OpenURL) Name() string {
	return "open_url"
}

func (x *OpenURL) Description() string {
	return "Open a site in the browser: 'go to github.com'"
}

func (x *OpenURL) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"url": {Type: "string", Description: "URL or domain to open"},
		},
		Required: []string{"url"},
	}
}

func (x *OpenURL) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "go to", ArgKey: "url"},
		tool.PrefixRule{Prefix: "open url", ArgKey: "url"},
	}, utterance)
}

func (x *OpenURL) Execute(ctx context.Context, args tool.Args) *model.Result {
	target := args["url"]
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	if _, err := url.ParseRequestURI(target); err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument,
			goerr.Wrap(err, "invalid URL", goerr.V("url", args["url"])))
	}

	if err := x.open(target); err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to open browser", goerr.V("url", target)))
	}
	result := model.NewResult(x.Name(), fmt.Sprintf("Opening %s", target))
	result.SideEffects = true
	return result
}

// YouTubeSearch opens a YouTube search for the given query in the browser.
type YouTubeSearch struct {
	open func(u string) error
}

func NewYouTubeSearch() *YouTubeSearch {
	return &YouTubeSearch{open: browser.OpenURL}
}

// NewYouTubeSearchWithOpener injects an opener, used by tests.
func NewYouTubeSearchWithOpener(open func(u string) error) *YouTubeSearch {
	return &YouTubeSearch{open: open}
}

func (x *YouTubeSearch) Name() string {
	return "youtube_search"
}

func (x *YouTubeSearch) Description() string {
	return "Search YouTube in the browser: 'search youtube for lo-fi beats'"
}

func (x *YouTubeSearch) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {Type: "string", Description: "YouTube search query"},
		},
		Required: []string{"query"},
	}
}

func (x *YouTubeSearch) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "search youtube for", ArgKey: "query"},
		tool.PrefixRule{Prefix: "youtube", ArgKey: "query"},
	}, utterance)
}

func (x *YouTubeSearch) Execute(ctx context.Context, args tool.Args) *model.Result {
	target := "https://www.youtube.com/results?search_query=" + url.QueryEscape(args["query"])
	if err := x.open(target); err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to open browser", goerr.V("url", target)))
	}
	result := model.NewResult(x.Name(), fmt.Sprintf("Searching YouTube for %q", args["query"]))
	result.SideEffects = true
	return result
}
