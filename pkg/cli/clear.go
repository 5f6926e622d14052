package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func clearCommand() *cli.Command {
	var (
		cfg   config
		force bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "force",
			Aliases:     []string{"f"},
			Usage:       "Skip the confirmation prompt",
			Destination: &force,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "clear",
		Usage: "Delete all stored conversations",
		Flags: flags,
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
				fmt.Fprintf(c.Root().Writer, "Nothing to clear\n")
				return nil
			}

			if !force {
				fmt.Fprintf(c.Root().Writer, "Delete all %d stored conversation(s)? [y/N] ", stats.Count)
				scanner := bufio.NewScanner(os.Stdin)
				if !scanner.Scan() || strings.ToLower(strings.TrimSpace(scanner.Text())) != "y" {
					fmt.Fprintf(c.Root().Writer, "Aborted\n")
					return nil
				}
			}

			if err := repo.DeleteAllTurns(ctx); err != nil {
				return goerr.Wrap(err, "failed to clear history")
			}
			fmt.Fprintf(c.Root().Writer, "Deleted %d conversation(s)\n", stats.Count)
			return nil
		},
	}
}
