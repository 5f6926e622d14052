package cli

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, sessionFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Process a single utterance and exit",
		ArgsUsage: "<utterance>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			utterance := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if utterance == "" {
				return goerr.New("utterance is required")
			}

			rt, err := cfg.newRuntime(ctx, "ask")
			if err != nil {
				return err
			}
			defer rt.close()

			resp, err := rt.session.Submit(ctx, utterance)
			if err != nil {
				return goerr.Wrap(err, "failed to process utterance")
			}

			printResponse(c.Root().Writer, resp.Text, resp.Warning)
			return nil
		},
	}
}
