package memoryq_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/warren/pkg/memory"
	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/repository"
	"github.com/m-mizutani/warren/pkg/tool/memoryq"
)

type fixedEmbedder struct {
	vectors map[string][]float32
}

func (x *fixedEmbedder) Embedding(ctx context.Context, text string) ([]float32, error) {
	if v, ok := x.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func seedStore(t *testing.T, embedder memory.Embedder) *memory.Store {
	t.Helper()
	if embedder == nil {
		embedder = &fixedEmbedder{}
	}
	store := memory.New(repository.NewInMemory(), embedder)

	ctx := context.Background()
	turns := []*model.Turn{
		{UserText: "plan the backup", AgentText: "nightly at 2am", CreatedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.Local)},
		{UserText: "weather tomorrow", AgentText: "sunny", CreatedAt: time.Date(2026, 8, 2, 10, 0, 0, 0, time.Local)},
		{UserText: "lunch ideas", AgentText: "ramen", CreatedAt: time.Date(2026, 8, 2, 12, 0, 0, 0, time.Local)},
	}
	for _, turn := range turns {
		gt.NoError(t, store.Append(ctx, turn))
	}
	return store
}

func TestSearchMemory(t *testing.T) {
	ctx := context.Background()

	embedder := &fixedEmbedder{vectors: map[string][]float32{
		"backup plan": {1, 0, 0},
		"User: plan the backup\nAssistant: nightly at 2am": {1, 0, 0},
	}}
	store := seedStore(t, embedder)
	search := memoryq.NewSearch(store)

	args, ok := search.Match("search memory for backup plan")
	gt.True(t, ok)
	gt.Equal(t, args["query"], "backup plan")

	result := search.Execute(ctx, args)
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("plan the backup")
	gt.S(t, result.Payload).Contains("nightly at 2am")
}

func TestRecentConversations(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, nil)
	recent := memoryq.NewRecent(store)

	args, ok := recent.Match("recent conversations")
	gt.True(t, ok)

	result := recent.Execute(ctx, args)
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("lunch ideas")

	args, ok = recent.Match("recent conversations 2")
	gt.True(t, ok)
	gt.Equal(t, args["count"], "2")

	result = recent.Execute(ctx, args)
	gt.True(t, result.OK())
	gt.S(t, result.Payload).NotContains("plan the backup")
	gt.S(t, result.Payload).Contains("weather tomorrow")

	// Count is clamped, not rejected
	result = recent.Execute(ctx, map[string]string{"count": "500"})
	gt.True(t, result.OK())
}

func TestConversationsOnDate(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, nil)
	onDate := memoryq.NewOnDate(store)

	args, ok := onDate.Match("conversations on 2026-08-02")
	gt.True(t, ok)
	gt.Equal(t, args["date"], "2026-08-02")

	result := onDate.Execute(ctx, args)
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("weather tomorrow")
	gt.S(t, result.Payload).Contains("lunch ideas")
	gt.S(t, result.Payload).NotContains("plan the backup")

	result = onDate.Execute(ctx, map[string]string{"date": "2026-01-01"})
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("No conversations on 2026-01-01")

	result = onDate.Execute(ctx, map[string]string{"date": "yesterday"})
	gt.True(t, !result.OK())
	gt.Equal(t, result.Err.Kind, model.ErrorKindInvalidArgument)
}

func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, nil)
	stats := memoryq.NewStats(store)

	_, ok := stats.Match("memory stats")
	gt.True(t, ok)

	result := stats.Execute(ctx, nil)
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("3 conversation(s) stored")
	gt.S(t, result.Payload).Contains("2026-08-01")
}
