package session

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/warren/pkg/memory"
	"github.com/m-mizutani/warren/pkg/model"
)

// DefaultContextBudget is the character budget for an assembled prompt.
const DefaultContextBudget = 8000

// ContextInput carries everything the assembler may include in the prompt.
type ContextInput struct {
	Utterance  string
	Recent     []*model.Turn // chronological
	Matches    []memory.Match
	ToolResult *model.Result
}

// Assembler builds the bounded prompt for the generative path. When the
// budget is exceeded it drops the oldest recent turns first, then the
// lowest-similarity memory matches. The current utterance and the tool
// result are always fully represented, even if that alone overruns the
// budget.
type Assembler struct {
	budget int
}

func NewAssembler(budget int) *Assembler {
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	return &Assembler{budget: budget}
}

const systemPreamble = "You are a helpful local assistant. Answer concisely using the conversation context below when relevant."

func (a *Assembler) Build(input ContextInput) string {
	recent := make([]*model.Turn, len(input.Recent))
	copy(recent, input.Recent)

	matches := make([]memory.Match, len(input.Matches))
	copy(matches, input.Matches)
	// Matches arrive ranked; keep the order so truncation removes the tail

	for {
		prompt := render(input.Utterance, recent, matches, input.ToolResult)
		if len(prompt) <= a.budget {
			return prompt
		}
		if len(recent) > 0 {
			recent = recent[1:] // oldest first
			continue
		}
		if len(matches) > 0 {
			matches = matches[:len(matches)-1] // lowest similarity last
			continue
		}
		return prompt
	}
}

func render(utterance string, recent []*model.Turn, matches []memory.Match, toolResult *model.Result) string {
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n")

	if len(matches) > 0 {
		b.WriteString("\nRelevant past conversations:\n")
		for _, m := range matches {
			fmt.Fprintf(&b, "- [%s] User: %s / Assistant: %s\n",
				m.Turn.CreatedAt.Format("2006-01-02"), m.Turn.UserText, m.Turn.AgentText)
		}
	}

	if len(recent) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, turn := range recent {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.UserText, turn.AgentText)
		}
	}

	if toolResult != nil {
		fmt.Fprintf(&b, "\nTool %s output:\n%s\n", toolResult.Tool, toolResult.Render())
	}

	fmt.Fprintf(&b, "\nUser: %s\nAssistant:", utterance)
	return b.String()
}
