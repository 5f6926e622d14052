package model

import (
	"time"

	"github.com/google/uuid"
)

type ReminderID string

// NewReminderID generates a new unique ReminderID
func NewReminderID() ReminderID {
	return ReminderID(uuid.New().String())
}

type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderFired     ReminderStatus = "fired"
	ReminderCancelled ReminderStatus = "cancelled"
)

// Reminder is a one-shot delayed notification. Status transitions are
// pending->fired or pending->cancelled, both irreversible.
type Reminder struct {
	ID        ReminderID
	Message   string
	CreatedAt time.Time
	FireAt    time.Time
	Status    ReminderStatus
}
