package session_test

import (
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/warren/pkg/memory"
	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/usecase/session"
)

func turnAt(user, agent string, hour int) *model.Turn {
	return &model.Turn{
		UserText:  user,
		AgentText: agent,
		CreatedAt: time.Date(2025, 11, 5, hour, 0, 0, 0, time.UTC),
	}
}

func TestBuildIncludesAllSectionsWithinBudget(t *testing.T) {
	a := session.NewAssembler(8000)

	prompt := a.Build(session.ContextInput{
		Utterance: "what did we decide about the backup plan?",
		Recent:    []*model.Turn{turnAt("hello", "hi there", 9)},
		Matches: []memory.Match{
			{Turn: turnAt("backup plan", "nightly at 2am", 8), Similarity: 0.9},
		},
		ToolResult: model.NewResult("memory_stats", "42 conversations stored"),
	})

	gt.S(t, prompt).Contains("what did we decide about the backup plan?")
	gt.S(t, prompt).Contains("hello")
	gt.S(t, prompt).Contains("nightly at 2am")
	gt.S(t, prompt).Contains("42 conversations stored")
}

func TestBuildDropsOldestRecentTurnsFirst(t *testing.T) {
	recent := []*model.Turn{
		turnAt("oldest turn with some padding text to take space", "reply one", 8),
		turnAt("middle turn with some padding text to take space", "reply two", 9),
		turnAt("newest turn", "reply three", 10),
	}
	matches := []memory.Match{
		{Turn: turnAt("remembered fact", "kept in context", 7), Similarity: 0.8},
	}

	// A budget too small for everything, big enough for matches + newest turn
	base := session.NewAssembler(8000).Build(session.ContextInput{
		Utterance: "question",
		Matches:   matches,
	})
	budget := len(base) + 80

	prompt := session.NewAssembler(budget).Build(session.ContextInput{
		Utterance: "question",
		Recent:    recent,
		Matches:   matches,
	})

	gt.S(t, prompt).Contains("question")
	gt.S(t, prompt).Contains("remembered fact")
	gt.S(t, prompt).NotContains("oldest turn")
	gt.S(t, prompt).NotContains("middle turn")
	gt.S(t, prompt).Contains("newest turn")
}

func TestBuildDropsMatchesAfterRecentTurns(t *testing.T) {
	matches := []memory.Match{
		{Turn: turnAt("high similarity match", "kept", 7), Similarity: 0.9},
		{Turn: turnAt("low similarity match with extra padding text attached", "dropped", 6), Similarity: 0.2},
	}

	base := session.NewAssembler(8000).Build(session.ContextInput{Utterance: "question"})
	budget := len(base) + 100

	prompt := session.NewAssembler(budget).Build(session.ContextInput{
		Utterance: "question",
		Recent:    []*model.Turn{turnAt("some recent turn that will not fit the tight budget", "reply", 9)},
		Matches:   matches,
	})

	gt.S(t, prompt).Contains("question")
	gt.S(t, prompt).Contains("high similarity match")
	gt.S(t, prompt).NotContains("low similarity match")
}

func TestBuildNeverTruncatesUtteranceOrToolResult(t *testing.T) {
	utterance := strings.Repeat("important question ", 50)
	result := model.NewResult("download_file", strings.Repeat("payload ", 50))

	prompt := session.NewAssembler(100).Build(session.ContextInput{
		Utterance:  utterance,
		Recent:     []*model.Turn{turnAt("recent", "reply", 9)},
		ToolResult: result,
	})

	// Over budget, but the mandatory parts are fully represented
	gt.S(t, prompt).Contains(strings.TrimSpace(utterance))
	gt.S(t, prompt).Contains(strings.TrimSpace(result.Payload))
	gt.S(t, prompt).NotContains("recent")
}
