package model

import "github.com/m-mizutani/goerr/v2"

// Shared sentinel errors. Callers classify with errors.Is; goerr wrapping
// preserves the chain.
var (
	// ErrDuplicateTool is returned when two tools register the same name.
	// This is a startup-fatal condition.
	ErrDuplicateTool = goerr.New("duplicate tool name")

	// ErrEmbeddingUnavailable indicates the embedding backend could not be
	// reached. The memory store degrades rather than losing history.
	ErrEmbeddingUnavailable = goerr.New("embedding backend unavailable")

	// ErrInvalidDelay is returned for reminder delays outside (0, 24h].
	ErrInvalidDelay = goerr.New("invalid reminder delay")

	// ErrReminderNotFound is returned when cancelling an unknown or already
	// fired reminder.
	ErrReminderNotFound = goerr.New("reminder not found")
)
