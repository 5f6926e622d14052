package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/repository"
)

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "warren.db")

	repo, err := repository.NewSQLite(ctx, path)
	gt.NoError(t, err)

	turn := &model.Turn{
		ID:        model.NewTurnID(),
		CreatedAt: time.Date(2025, 11, 5, 12, 30, 0, 123456789, time.UTC),
		UserText:  "calculate 2+2",
		AgentText: "2+2 = 4",
		Tools:     []string{"calculate"},
		Embedding: []float32{0.25, -1.5, 3.140625, 0},
	}
	gt.NoError(t, repo.PutTurn(ctx, turn))
	gt.NoError(t, repo.Close())

	// Reopen: everything must be recoverable bit-for-bit
	repo, err = repository.NewSQLite(ctx, path)
	gt.NoError(t, err)
	defer repo.Close()

	turns, err := repo.ListTurns(ctx, 0, 0)
	gt.NoError(t, err)
	gt.A(t, turns).Length(1)

	got := turns[0]
	gt.Equal(t, got.ID, turn.ID)
	gt.Equal(t, got.CreatedAt.UnixNano(), turn.CreatedAt.UnixNano())
	gt.Equal(t, got.UserText, turn.UserText)
	gt.Equal(t, got.AgentText, turn.AgentText)
	gt.Equal(t, got.Tools, turn.Tools)
	gt.Equal(t, got.Embedding, turn.Embedding)
}

func TestSQLiteNullEmbedding(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "warren.db")

	repo, err := repository.NewSQLite(ctx, path)
	gt.NoError(t, err)
	defer repo.Close()

	turn := &model.Turn{
		ID:        model.NewTurnID(),
		CreatedAt: time.Now(),
		UserText:  "hello",
		AgentText: "hi",
	}
	gt.NoError(t, repo.PutTurn(ctx, turn))

	turns, err := repo.ListTurns(ctx, 0, 0)
	gt.NoError(t, err)
	gt.A(t, turns).Length(1)
	gt.True(t, !turns[0].HasEmbedding())
}

func TestSQLiteRangeAndStats(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "warren.db")

	repo, err := repository.NewSQLite(ctx, path)
	gt.NoError(t, err)
	defer repo.Close()

	base := time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"a", "b", "c"} {
		turn := &model.Turn{
			ID:        model.NewTurnID(),
			CreatedAt: base.Add(time.Duration(i) * 12 * time.Hour),
			UserText:  text,
			AgentText: "ok",
		}
		gt.NoError(t, repo.PutTurn(ctx, turn))
	}

	// [day1, day2) holds the first two turns
	got, err := repo.ListTurnsByRange(ctx, base, base.Add(24*time.Hour))
	gt.NoError(t, err)
	gt.A(t, got).Length(2)
	gt.Equal(t, got[0].UserText, "a")
	gt.Equal(t, got[1].UserText, "b")

	stats, err := repo.Stats(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.Count, int64(3))
	gt.Equal(t, stats.Oldest.UnixNano(), base.UnixNano())
	gt.Equal(t, stats.Newest.UnixNano(), base.Add(24*time.Hour).UnixNano())

	gt.NoError(t, repo.DeleteOldestTurns(ctx, 2))
	remaining, err := repo.ListTurns(ctx, 0, 0)
	gt.NoError(t, err)
	gt.A(t, remaining).Length(1)
	gt.Equal(t, remaining[0].UserText, "c")
}
