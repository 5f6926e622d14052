package daily

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool"
)

const clipboardHistorySize = 10

// Clipboard copies, reads and clears the system clipboard, keeping a small
// in-process history of copied values.
type Clipboard struct {
	mu      sync.Mutex
	history []string
}

func NewClipboard() *Clipboard {
	return &Clipboard{}
}

func (x *Clipboard) Name() string {
	return "clipboard"
}

func (x *Clipboard) Description() string {
	return "Clipboard operations: 'copy <text>', 'paste', 'clipboard history', 'clear clipboard'"
}

func (x *Clipboard) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"action": {Type: "string", Description: "One of copy, paste, history, clear"},
			"text":   {Type: "string", Description: "Text to copy (copy action only)"},
		},
		Required: []string{"action"},
	}
}

func (x *Clipboard) Match(utterance string) (tool.Args, bool) {
	trimmed := strings.TrimSpace(utterance)
	lower := strings.ToLower(trimmed)

	switch lower {
	case "paste", "paste clipboard", "read clipboard":
		return tool.Args{"action": "paste"}, true
	case "clipboard history":
		return tool.Args{"action": "history"}, true
	case "clear clipboard", "clipboard clear":
		return tool.Args{"action": "clear"}, true
	}

	if args, ok := (tool.PrefixRule{Prefix: "copy to clipboard", ArgKey: "text"}).Match(trimmed); ok {
		args["action"] = "copy"
		return args, true
	}
	if args, ok := (tool.PrefixRule{Prefix: "copy", ArgKey: "text"}).Match(trimmed); ok {
		args["action"] = "copy"
		return args, true
	}
	return nil, false
}

func (x *Clipboard) Execute(ctx context.Context, args tool.Args) *model.Result {
	switch args["action"] {
	case "copy":
		if err := clipboard.WriteAll(args["text"]); err != nil {
			return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
				goerr.Wrap(err, "failed to write clipboard"))
		}
		x.remember(args["text"])
		result := model.NewResult(x.Name(), fmt.Sprintf("Copied %d characters to clipboard", len(args["text"])))
		result.SideEffects = true
		return result

	case "paste":
		text, err := clipboard.ReadAll()
		if err != nil {
			return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
				goerr.Wrap(err, "failed to read clipboard"))
		}
		if text == "" {
			return model.NewResult(x.Name(), "Clipboard is empty")
		}
		return model.NewResult(x.Name(), text)

	case "history":
		x.mu.Lock()
		defer x.mu.Unlock()
		if len(x.history) == 0 {
			return model.NewResult(x.Name(), "No clipboard history")
		}
		var b strings.Builder
		for i := len(x.history) - 1; i >= 0; i-- {
			fmt.Fprintf(&b, "%d. %s\n", len(x.history)-i, truncateLine(x.history[i], 80))
		}
		return model.NewResult(x.Name(), strings.TrimRight(b.String(), "\n"))

	case "clear":
		if err := clipboard.WriteAll(""); err != nil {
			return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
				goerr.Wrap(err, "failed to clear clipboard"))
		}
		result := model.NewResult(x.Name(), "Clipboard cleared")
		result.SideEffects = true
		return result

	default:
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument,
			goerr.New("unknown clipboard action", goerr.V("action", args["action"])))
	}
}

func (x *Clipboard) remember(text string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.history = append(x.history, text)
	if len(x.history) > clipboardHistorySize {
		x.history = x.history[len(x.history)-clipboardHistorySize:]
	}
}

func truncateLine(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
