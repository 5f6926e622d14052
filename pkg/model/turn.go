package model

import (
	"time"

	"github.com/google/uuid"
)

type TurnID string

// NewTurnID generates a new unique TurnID
func NewTurnID() TurnID {
	return TurnID(uuid.New().String())
}

// Turn represents one complete user/agent exchange. A Turn is immutable once
// appended to the memory store; the only permitted deletion paths are the
// explicit history-clearing command and retention pruning.
type Turn struct {
	ID        TurnID
	CreatedAt time.Time
	UserText  string
	AgentText string

	// Tools holds the names of tools invoked for this turn, in invocation order.
	Tools []string

	// Embedding is nil when the embedding backend was unavailable at append
	// time. Such turns are excluded from semantic ranking but still count as
	// conversation history.
	Embedding []float32
}

// EmbeddingText returns the text the embedding vector is computed from.
func (x *Turn) EmbeddingText() string {
	return "User: " + x.UserText + "\nAssistant: " + x.AgentText
}

// HasEmbedding reports whether the turn carries a usable embedding vector.
func (x *Turn) HasEmbedding() bool {
	return len(x.Embedding) > 0
}
