package repository

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/warren/pkg/model"
)

// inMemoryRepo implements Repository in process memory. Used by tests and as
// a fallback when no database path is configured.
type inMemoryRepo struct {
	mu    sync.RWMutex
	turns []*model.Turn
}

// NewInMemory creates an ephemeral repository.
func NewInMemory() Repository {
	return &inMemoryRepo{}
}

func (r *inMemoryRepo) PutTurn(ctx context.Context, turn *model.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *turn
	r.turns = append(r.turns, &copied)
	return nil
}

func (r *inMemoryRepo) ListTurns(ctx context.Context, offset, limit int) ([]*model.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if offset >= len(r.turns) {
		return nil, nil
	}
	turns := r.turns[offset:]
	if limit > 0 && limit < len(turns) {
		turns = turns[:limit]
	}

	out := make([]*model.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (r *inMemoryRepo) ListTurnsByRange(ctx context.Context, start, end time.Time) ([]*model.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Turn
	for _, turn := range r.turns {
		if !turn.CreatedAt.Before(start) && turn.CreatedAt.Before(end) {
			out = append(out, turn)
		}
	}
	return out, nil
}

func (r *inMemoryRepo) RecentTurns(ctx context.Context, n int) ([]*model.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 {
		return nil, nil
	}
	if n > len(r.turns) {
		n = len(r.turns)
	}
	turns := r.turns[len(r.turns)-n:]
	out := make([]*model.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (r *inMemoryRepo) Stats(ctx context.Context) (*TurnStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &TurnStats{Count: int64(len(r.turns))}
	if len(r.turns) > 0 {
		stats.Oldest = r.turns[0].CreatedAt
		stats.Newest = r.turns[len(r.turns)-1].CreatedAt
	}
	return stats, nil
}

func (r *inMemoryRepo) DeleteOldestTurns(ctx context.Context, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 {
		return nil
	}
	if n >= len(r.turns) {
		r.turns = nil
		return nil
	}
	r.turns = r.turns[n:]
	return nil
}

func (r *inMemoryRepo) DeleteAllTurns(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = nil
	return nil
}

func (r *inMemoryRepo) Close() error {
	return nil
}
