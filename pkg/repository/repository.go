package repository

import (
	"context"
	"time"

	"github.com/m-mizutani/warren/pkg/model"
)

// TurnStats summarizes the persisted conversation history.
type TurnStats struct {
	Count  int64
	Oldest time.Time
	Newest time.Time
}

// Repository defines the interface for turn persistence. Implementations must
// keep the listing order identical to append order and must round-trip
// embedding vectors bit-for-bit across restarts.
type Repository interface {
	// PutTurn appends a turn. Turns are never updated.
	PutTurn(ctx context.Context, turn *model.Turn) error

	// ListTurns retrieves turns in chronological order. limit == 0 means no
	// limit.
	ListTurns(ctx context.Context, offset, limit int) ([]*model.Turn, error)

	// ListTurnsByRange retrieves turns with CreatedAt in [start, end) in
	// chronological order.
	ListTurnsByRange(ctx context.Context, start, end time.Time) ([]*model.Turn, error)

	// RecentTurns retrieves the newest n turns in chronological order.
	RecentTurns(ctx context.Context, n int) ([]*model.Turn, error)

	// Stats returns the turn count and timestamp range.
	Stats(ctx context.Context) (*TurnStats, error)

	// DeleteOldestTurns removes the n oldest turns. Used only by retention
	// pruning.
	DeleteOldestTurns(ctx context.Context, n int) error

	// DeleteAllTurns wipes the history. Used only by explicit clearing.
	DeleteAllTurns(ctx context.Context) error

	// Close flushes and releases the underlying storage.
	Close() error
}
