package memoryq

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/warren/pkg/memory"
	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool"
)

// Search performs semantic lookup over stored conversations.
type Search struct {
	store *memory.Store
	topK  int
}

func NewSearch(store *memory.Store) *Search {
	return &Search{store: store, topK: 5}
}

func (x *Search) Name() string { return "search_memory" }

func (x *Search) Description() string {
	return "Find past conversations by meaning: 'search memory for the backup plan'"
}

func (x *Search) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {Type: "string", Description: "What to look for"},
		},
		Required: []string{"query"},
	}
}

func (x *Search) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "search memory for", ArgKey: "query"},
		tool.PrefixRule{Prefix: "search memory", ArgKey: "query"},
		tool.PrefixRule{Prefix: "do you remember", ArgKey: "query"},
	}, utterance)
}

func (x *Search) Execute(ctx context.Context, args tool.Args) *model.Result {
	result, err := x.store.Search(ctx, args["query"], x.topK)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "memory search failed"))
	}

	if len(result.Matches) == 0 {
		return model.NewResult(x.Name(), fmt.Sprintf("No conversations found for %q", args["query"]))
	}

	var b strings.Builder
	if result.Degraded {
		fmt.Fprintf(&b, "(%s)\n", result.Warning)
	}
	fmt.Fprintf(&b, "Found %d conversation(s):\n", len(result.Matches))
	for _, m := range result.Matches {
		fmt.Fprintf(&b, "- [%s, %.0f%%] User: %s / Assistant: %s\n",
			m.Turn.CreatedAt.Format("2006-01-02 15:04"), m.Similarity*100,
			snippet(m.Turn.UserText), snippet(m.Turn.AgentText))
	}
	return model.NewResult(x.Name(), strings.TrimRight(b.String(), "\n"))
}

var recentPattern = regexp.MustCompile(`(?i)^(?:recent conversations?|what did we (?:talk about|discuss))(?: (\d+))?$`)

const (
	defaultRecent = 10
	maxRecent     = 50
)

// Recent shows the last n stored turns, n clamped to [1, 50].
type Recent struct {
	store *memory.Store
}

func NewRecent(store *memory.Store) *Recent {
	return &Recent{store: store}
}

func (x *Recent) Name() string { return "recent_conversations" }

func (x *Recent) Description() string {
	return "Show recent history: 'recent conversations' or 'recent conversations 20'"
}

func (x *Recent) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"count": {Type: "string", Description: "How many turns, 1 to 50 (default 10)"},
		},
	}
}

func (x *Recent) Match(utterance string) (tool.Args, bool) {
	return tool.RegexpRule{Pattern: recentPattern, Keys: []string{"count"}}.Match(utterance)
}

func (x *Recent) Execute(ctx context.Context, args tool.Args) *model.Result {
	n := defaultRecent
	if raw := args["count"]; raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument,
				goerr.Wrap(err, "count must be a number", goerr.V("count", raw)))
		}
		n = parsed
	}
	if n < 1 {
		n = 1
	}
	if n > maxRecent {
		n = maxRecent
	}

	turns, err := x.store.Recent(ctx, n)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to load recent turns"))
	}
	if len(turns) == 0 {
		return model.NewResult(x.Name(), "No conversations stored yet")
	}
	return model.NewResult(x.Name(), renderTurns(turns))
}

var onDatePattern = regexp.MustCompile(`(?i)^conversations on (?:date )?(\d{4}-\d{2}-\d{2})$`)

// OnDate shows all turns recorded on a calendar day (local time).
type OnDate struct {
	store *memory.Store
}

func NewOnDate(store *memory.Store) *OnDate {
	return &OnDate{store: store}
}

func (x *OnDate) Name() string { return "conversations_on_date" }

func (x *OnDate) Description() string {
	return "Show history for a day: 'conversations on 2026-08-01'"
}

func (x *OnDate) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"date": {Type: "string", Description: "Day in YYYY-MM-DD"},
		},
		Required: []string{"date"},
	}
}

func (x *OnDate) Match(utterance string) (tool.Args, bool) {
	return tool.RegexpRule{Pattern: onDatePattern, Keys: []string{"date"}}.Match(utterance)
}

func (x *OnDate) Execute(ctx context.Context, args tool.Args) *model.Result {
	day, err := time.ParseInLocation("2006-01-02", args["date"], time.Local)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument,
			goerr.Wrap(err, "date must be YYYY-MM-DD", goerr.V("date", args["date"])))
	}

	turns, err := x.store.Range(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to load turns"))
	}
	if len(turns) == 0 {
		return model.NewResult(x.Name(), fmt.Sprintf("No conversations on %s", args["date"]))
	}
	return model.NewResult(x.Name(), renderTurns(turns))
}

// Stats reports how much history is stored and its span.
type Stats struct {
	store *memory.Store
}

func NewStats(store *memory.Store) *Stats {
	return &Stats{store: store}
}

func (x *Stats) Name() string { return "memory_stats" }

func (x *Stats) Description() string {
	return "History statistics: 'memory stats'"
}

func (x *Stats) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

func (x *Stats) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "memory stats", AllowEmpty: true},
		tool.PrefixRule{Prefix: "memory statistics", AllowEmpty: true},
	}, utterance)
}

func (x *Stats) Execute(ctx context.Context, args tool.Args) *model.Result {
	stats, err := x.store.Stats(ctx)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to load memory stats"))
	}
	if stats.Count == 0 {
		return model.NewResult(x.Name(), "No conversations stored yet")
	}
	return model.NewResult(x.Name(), fmt.Sprintf(
		"%d conversation(s) stored, from %s to %s",
		stats.Count,
		stats.Oldest.Format("2006-01-02 15:04"),
		stats.Newest.Format("2006-01-02 15:04")))
}

func renderTurns(turns []*model.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "[%s] User: %s\n  Assistant: %s\n",
			t.CreatedAt.Format("2006-01-02 15:04"), snippet(t.UserText), snippet(t.AgentText))
	}
	return strings.TrimRight(b.String(), "\n")
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
