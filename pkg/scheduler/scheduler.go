package scheduler

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/robfig/cron/v3"

	"github.com/m-mizutani/warren/pkg/adapter"
	"github.com/m-mizutani/warren/pkg/model"
)

// MaxDelay is the upper bound for a reminder delay (24 hours).
const MaxDelay = 24 * time.Hour

type entry struct {
	reminder *model.Reminder
	timer    *time.Timer
	doneAt   time.Time
}

// Scheduler owns all reminders: an in-memory arena keyed by ReminderID with
// cancellable handles. Timers fire on their own goroutines and never block
// the router's request path. A reminder fires exactly once and never before
// its fire time; firing delayed by load is coalesced, not dropped.
type Scheduler struct {
	mu       sync.Mutex
	entries  map[model.ReminderID]*entry
	notifier adapter.Notifier
	logger   *slog.Logger

	sweeper   *cron.Cron
	retention time.Duration
}

type Option func(*Scheduler)

// WithRetention controls how long fired/cancelled reminders stay visible in
// List before the sweep collects them.
func WithRetention(d time.Duration) Option {
	return func(s *Scheduler) {
		s.retention = d
	}
}

func New(notifier adapter.Notifier, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		entries:   make(map[model.ReminderID]*entry),
		notifier:  notifier,
		logger:    logger,
		retention: time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.sweeper = cron.New()
	if _, err := s.sweeper.AddFunc("@every 10m", s.sweep); err != nil {
		// The schedule expression is a constant; this cannot fail at runtime
		panic(err)
	}

	return s
}

// Start begins the background sweep. Reminder timers run regardless.
func (s *Scheduler) Start() {
	s.sweeper.Start()
}

// Stop halts the sweep and cancels all pending timers.
func (s *Scheduler) Stop() {
	<-s.sweeper.Stop().Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.reminder.Status == model.ReminderPending && e.timer != nil {
			e.timer.Stop()
		}
	}
}

// Schedule creates a pending reminder firing after delay. The delay must be
// in (0, 24h].
func (s *Scheduler) Schedule(message string, delay time.Duration) (*model.Reminder, error) {
	if delay <= 0 || delay > MaxDelay {
		return nil, goerr.Wrap(model.ErrInvalidDelay, "delay must be within (0, 24h]",
			goerr.V("delay", delay))
	}

	now := time.Now()
	reminder := &model.Reminder{
		ID:        model.NewReminderID(),
		Message:   message,
		CreatedAt: now,
		FireAt:    now.Add(delay),
		Status:    model.ReminderPending,
	}

	s.mu.Lock()
	e := &entry{reminder: reminder}
	e.timer = time.AfterFunc(delay, func() {
		s.fire(reminder.ID)
	})
	s.entries[reminder.ID] = e
	s.mu.Unlock()

	s.logger.Info("reminder scheduled",
		"reminder_id", reminder.ID, "fire_at", reminder.FireAt, "message", message)

	snapshot := *reminder
	return &snapshot, nil
}

// fire transitions pending->fired and delivers the notification. The status
// check under the lock guarantees exactly-once delivery even if the timer
// callback races a cancellation.
func (s *Scheduler) fire(id model.ReminderID) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok || e.reminder.Status != model.ReminderPending {
		s.mu.Unlock()
		return
	}
	e.reminder.Status = model.ReminderFired
	e.doneAt = time.Now()
	message := e.reminder.Message
	s.mu.Unlock()

	s.logger.Info("reminder fired", "reminder_id", id, "message", message)
	s.notifier.Notify("Reminder", message)
}

// Cancel transitions pending->cancelled. Cancelling an unknown or already
// fired reminder fails with ErrReminderNotFound.
func (s *Scheduler) Cancel(id model.ReminderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.reminder.Status != model.ReminderPending {
		return goerr.Wrap(model.ErrReminderNotFound, "no pending reminder with given ID",
			goerr.V("reminder_id", id))
	}

	e.timer.Stop()
	e.reminder.Status = model.ReminderCancelled
	e.doneAt = time.Now()
	s.logger.Info("reminder cancelled", "reminder_id", id)
	return nil
}

// List returns a snapshot of all known reminders ordered by fire time.
func (s *Scheduler) List() []*model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders := make([]*model.Reminder, 0, len(s.entries))
	for _, e := range s.entries {
		snapshot := *e.reminder
		reminders = append(reminders, &snapshot)
	}
	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].FireAt.Before(reminders[j].FireAt)
	})
	return reminders
}

// sweep garbage-collects fired and cancelled reminders past retention.
func (s *Scheduler) sweep() {
	cutoff := time.Now().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if e.reminder.Status == model.ReminderPending {
			continue
		}
		if e.doneAt.Before(cutoff) {
			delete(s.entries, id)
		}
	}
}
