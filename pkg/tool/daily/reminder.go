package daily

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/scheduler"
	"github.com/m-mizutani/warren/pkg/tool"
)

var remindMePattern = regexp.MustCompile(`(?i)^remind me in (\d+(?:\.\d+)?) ?(?:minutes?|mins?|m)? (?:to |that )?(.+)$`)

// SetReminder schedules a one-shot reminder through the background scheduler.
type SetReminder struct {
	sched *scheduler.Scheduler
}

func NewSetReminder(sched *scheduler.Scheduler) *SetReminder {
	return &SetReminder{sched: sched}
}

func (x *SetReminder) Name() string {
	return "set_reminder"
}

func (x *SetReminder) Description() string {
	return "Schedule a reminder: 'remind me in 5 minutes to take a break' or 'set reminder 5 take a break'"
}

func (x *SetReminder) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"minutes": {Type: "string", Description: "Delay in minutes, up to 1440"},
			"message": {Type: "string", Description: "Reminder text"},
		},
		Required: []string{"minutes", "message"},
	}
}

func (x *SetReminder) Match(utterance string) (tool.Args, bool) {
	if args, ok := (tool.RegexpRule{Pattern: remindMePattern, Keys: []string{"minutes", "message"}}).Match(utterance); ok {
		return args, true
	}

	// "set reminder <minutes> <message>" form
	args, ok := tool.PrefixRule{Prefix: "set reminder", ArgKey: "input"}.Match(utterance)
	if !ok {
		return nil, false
	}
	minutes, message, found := strings.Cut(args["input"], " ")
	if !found {
		return nil, false
	}
	return tool.Args{"minutes": minutes, "message": strings.TrimSpace(message)}, true
}

func (x *SetReminder) Execute(ctx context.Context, args tool.Args) *model.Result {
	minutes, err := strconv.ParseFloat(args["minutes"], 64)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument,
			goerr.Wrap(err, "minutes must be a number", goerr.V("minutes", args["minutes"])))
	}

	delay := time.Duration(minutes * float64(time.Minute))
	reminder, err := x.sched.Schedule(args["message"], delay)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument, err)
	}

	result := model.NewResult(x.Name(), fmt.Sprintf("Reminder set for %s (in %s): %s [id: %s]",
		reminder.FireAt.Format("15:04:05"), delay.Round(time.Second), reminder.Message, reminder.ID))
	result.SideEffects = true
	return result
}

// CancelReminder cancels a pending reminder by its ID.
type CancelReminder struct {
	sched *scheduler.Scheduler
}

func NewCancelReminder(sched *scheduler.Scheduler) *CancelReminder {
	return &CancelReminder{sched: sched}
}

func (x *CancelReminder) Name() string {
	return "cancel_reminder"
}

func (x *CancelReminder) Description() string {
	return "Cancel a pending reminder by ID: 'cancel reminder <id>'"
}

func (x *CancelReminder) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id": {Type: "string", Description: "Reminder ID"},
		},
		Required: []string{"id"},
	}
}

func (x *CancelReminder) Match(utterance string) (tool.Args, bool) {
	return tool.PrefixRule{Prefix: "cancel reminder", ArgKey: "id"}.Match(utterance)
}

func (x *CancelReminder) Execute(ctx context.Context, args tool.Args) *model.Result {
	if err := x.sched.Cancel(model.ReminderID(args["id"])); err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindNotFound, err)
	}
	result := model.NewResult(x.Name(), fmt.Sprintf("Cancelled reminder %s", args["id"]))
	result.SideEffects = true
	return result
}

// ListReminders shows all known reminders ordered by fire time.
type ListReminders struct {
	sched *scheduler.Scheduler
}

func NewListReminders(sched *scheduler.Scheduler) *ListReminders {
	return &ListReminders{sched: sched}
}

func (x *ListReminders) Name() string {
	return "list_reminders"
}

func (x *ListReminders) Description() string {
	return "List all reminders and their status"
}

func (x *ListReminders) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

func (x *ListReminders) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "list reminders", AllowEmpty: true},
		tool.PrefixRule{Prefix: "show reminders", AllowEmpty: true},
	}, utterance)
}

func (x *ListReminders) Execute(ctx context.Context, args tool.Args) *model.Result {
	reminders := x.sched.List()
	if len(reminders) == 0 {
		return model.NewResult(x.Name(), "No reminders")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d reminder(s):\n", len(reminders))
	for _, r := range reminders {
		fmt.Fprintf(&b, "- [%s] %s at %s: %s\n",
			r.Status, r.ID, r.FireAt.Format("15:04:05"), r.Message)
	}
	return model.NewResult(x.Name(), strings.TrimRight(b.String(), "\n"))
}
