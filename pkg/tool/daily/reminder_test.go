package daily_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/scheduler"
	"github.com/m-mizutani/warren/pkg/tool/daily"
)

type silentNotifier struct{}

func (x *silentNotifier) Notify(title, message string) {}

func newTestScheduler() *scheduler.Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return scheduler.New(&silentNotifier{}, logger)
}

func TestSetReminderMatch(t *testing.T) {
	sched := newTestScheduler()
	defer sched.Stop()
	setReminder := daily.NewSetReminder(sched)

	args, ok := setReminder.Match("remind me in 5 minutes to take a break")
	gt.True(t, ok)
	gt.Equal(t, args["minutes"], "5")
	gt.Equal(t, args["message"], "take a break")

	args, ok = setReminder.Match("set reminder 10 stand up")
	gt.True(t, ok)
	gt.Equal(t, args["minutes"], "10")
	gt.Equal(t, args["message"], "stand up")

	_, ok = setReminder.Match("set reminder")
	gt.True(t, !ok)
}

func TestSetReminderExecute(t *testing.T) {
	ctx := context.Background()
	sched := newTestScheduler()
	defer sched.Stop()
	setReminder := daily.NewSetReminder(sched)

	result := setReminder.Execute(ctx, map[string]string{"minutes": "5", "message": "take a break"})
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("take a break")
	gt.True(t, result.SideEffects)

	reminders := sched.List()
	gt.A(t, reminders).Length(1)
	gt.Equal(t, reminders[0].Message, "take a break")
}

func TestSetReminderRejectsInvalidDelay(t *testing.T) {
	ctx := context.Background()
	sched := newTestScheduler()
	defer sched.Stop()
	setReminder := daily.NewSetReminder(sched)

	for _, minutes := range []string{"0", "-5", "1441", "soon"} {
		result := setReminder.Execute(ctx, map[string]string{"minutes": minutes, "message": "x"})
		gt.True(t, !result.OK())
		gt.Equal(t, result.Err.Kind, model.ErrorKindInvalidArgument)
	}
	gt.A(t, sched.List()).Length(0)
}

func TestCancelReminder(t *testing.T) {
	ctx := context.Background()
	sched := newTestScheduler()
	defer sched.Stop()

	reminder, err := sched.Schedule("stretch", scheduler.MaxDelay)
	gt.NoError(t, err)

	cancel := daily.NewCancelReminder(sched)
	result := cancel.Execute(ctx, map[string]string{"id": string(reminder.ID)})
	gt.True(t, result.OK())

	result = cancel.Execute(ctx, map[string]string{"id": string(reminder.ID)})
	gt.True(t, !result.OK())
	gt.Equal(t, result.Err.Kind, model.ErrorKindNotFound)
}

func TestListReminders(t *testing.T) {
	ctx := context.Background()
	sched := newTestScheduler()
	defer sched.Stop()
	list := daily.NewListReminders(sched)

	result := list.Execute(ctx, nil)
	gt.True(t, result.OK())
	gt.Equal(t, result.Payload, "No reminders")

	_, err := sched.Schedule("stretch", scheduler.MaxDelay)
	gt.NoError(t, err)

	result = list.Execute(ctx, nil)
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("stretch")
	gt.True(t, strings.HasPrefix(result.Payload, "1 reminder(s):"))

	_, ok := list.Match("list reminders")
	gt.True(t, ok)
}
