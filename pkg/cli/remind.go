package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// remindCommand is a standalone timer: it schedules one reminder and blocks
// until it fires. Reminders are process-local; inside a chat session the
// set_reminder / cancel_reminder / list_reminders tools manage them instead.
func remindCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, sessionFlags(&cfg)...)

	return &cli.Command{
		Name:      "remind",
		Usage:     "Set a reminder and wait for it to fire",
		ArgsUsage: "<minutes> <message>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			args := c.Args().Slice()
			if len(args) < 2 {
				return goerr.New("usage: remind <minutes> <message>")
			}

			minutes, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return goerr.Wrap(err, "minutes must be a number")
			}
			message := strings.Join(args[1:], " ")

			logger := cfg.newLogger()
			sched := cfg.newScheduler(logger)
			sched.Start()
			defer sched.Stop()

			reminder, err := sched.Schedule(message, time.Duration(minutes*float64(time.Minute)))
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Reminder set for %s: %s\n",
				reminder.FireAt.Format("15:04:05"), reminder.Message)

			select {
			case <-time.After(time.Until(reminder.FireAt) + time.Second):
			case <-ctx.Done():
				return goerr.Wrap(ctx.Err(), "interrupted before the reminder fired")
			}
			return nil
		},
	}
}
