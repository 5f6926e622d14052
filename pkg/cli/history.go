package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/warren/pkg/model"
)

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect the stored conversation log",
		Commands: []*cli.Command{
			historyListCommand(),
			historySearchCommand(),
			historyRangeCommand(),
			historyStatsCommand(),
		},
	}
}

func historyListCommand() *cli.Command {
	var (
		cfg   config
		limit int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Show only the newest N turns (0 shows all)",
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List stored turns, oldest first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.newLogger()
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			var turns []*model.Turn
			if limit > 0 {
				turns, err = repo.RecentTurns(ctx, int(limit))
			} else {
				turns, err = repo.ListTurns(ctx, 0, 0)
			}
			if err != nil {
				return goerr.Wrap(err, "failed to list turns")
			}

			if len(turns) == 0 {
				fmt.Fprintf(c.Root().Writer, "No conversations stored\n")
				return nil
			}
			printTurns(c.Root().Writer, turns)
			return nil
		},
	}
}

func historySearchCommand() *cli.Command {
	var (
		cfg  config
		topK int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "top",
			Aliases:     []string{"k"},
			Usage:       "Number of results",
			Value:       5,
			Destination: &topK,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "search",
		Usage:     "Search the log by meaning",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("query is required")
			}

			cfg.newLogger()
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			store := cfg.newStore(repo, gemini)
			result, err := store.Search(ctx, query, int(topK))
			if err != nil {
				return goerr.Wrap(err, "search failed")
			}

			if result.Degraded {
				fmt.Fprintf(c.Root().Writer, "(%s)\n", result.Warning)
			}
			if len(result.Matches) == 0 {
				fmt.Fprintf(c.Root().Writer, "No matches for %q\n", query)
				return nil
			}
			for _, m := range result.Matches {
				fmt.Fprintf(c.Root().Writer, "%.3f\t[%s] User: %s / Assistant: %s\n",
					m.Similarity,
					m.Turn.CreatedAt.Format("2006-01-02 15:04"),
					m.Turn.UserText, m.Turn.AgentText)
			}
			return nil
		},
	}
}

func historyRangeCommand() *cli.Command {
	var (
		cfg   config
		start string
		end   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "start",
			Aliases:     []string{"s"},
			Usage:       "Start day (YYYY-MM-DD, inclusive)",
			Required:    true,
			Destination: &start,
		},
		&cli.StringFlag{
			Name:        "end",
			Aliases:     []string{"e"},
			Usage:       "End day (YYYY-MM-DD, exclusive; defaults to the day after start)",
			Destination: &end,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "range",
		Usage: "Show turns within a date range",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			startAt, err := time.ParseInLocation("2006-01-02", start, time.Local)
			if err != nil {
				return goerr.Wrap(err, "start must be YYYY-MM-DD")
			}
			endAt := startAt.AddDate(0, 0, 1)
			if end != "" {
				endAt, err = time.ParseInLocation("2006-01-02", end, time.Local)
				if err != nil {
					return goerr.Wrap(err, "end must be YYYY-MM-DD")
				}
			}

			cfg.newLogger()
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			turns, err := repo.ListTurnsByRange(ctx, startAt, endAt)
			if err != nil {
				return goerr.Wrap(err, "failed to load range")
			}

			if len(turns) == 0 {
				fmt.Fprintf(c.Root().Writer, "No conversations in range\n")
				return nil
			}
			printTurns(c.Root().Writer, turns)
			return nil
		},
	}
}

func historyStatsCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "stats",
		Usage: "Show how much history is stored",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.newLogger()
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			stats, err := repo.Stats(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to load stats")
			}

			if stats.Count == 0 {
				fmt.Fprintf(c.Root().Writer, "No conversations stored\n")
				return nil
			}
			fmt.Fprintf(c.Root().Writer, "Turns:  %d\nOldest: %s\nNewest: %s\n",
				stats.Count,
				stats.Oldest.Format("2006-01-02 15:04:05"),
				stats.Newest.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func printTurns(w io.Writer, turns []*model.Turn) {
	for _, t := range turns {
		tools := ""
		if len(t.Tools) > 0 {
			tools = " [" + strings.Join(t.Tools, ",") + "]"
		}
		fmt.Fprintf(w, "[%s]%s\n  User: %s\n  Assistant: %s\n",
			t.CreatedAt.Format("2006-01-02 15:04:05"), tools, t.UserText, t.AgentText)
	}
}
