package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, sessionFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive assistant session",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := cfg.newRuntime(ctx, "chat")
			if err != nil {
				return err
			}
			defer rt.close()

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize terminal")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Chat session started. Type 'exit' to quit, 'tools' for available commands.\n")

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if err != nil { // io.EOF
					break
				}

				input := strings.TrimSpace(line)
				if input == "" {
					continue
				}
				if input == "exit" || input == "quit" {
					break
				}
				if input == "tools" {
					printToolTable(c.Root().Writer, rt.registry.List())
					continue
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
					spinner.WithWriter(c.Root().ErrWriter))
				sp.Start()
				resp, err := rt.session.Submit(ctx, input)
				sp.Stop()

				if err != nil {
					return goerr.Wrap(err, "failed to process input")
				}

				printResponse(c.Root().Writer, resp.Text, resp.Warning)
			}

			fmt.Fprintf(c.Root().Writer, "\nChat session completed\n")
			return nil
		},
	}
}

func printResponse(w io.Writer, text, warning string) {
	fmt.Fprintf(w, "%s\n", text)
	if warning != "" {
		fmt.Fprintf(w, "(note: %s)\n", warning)
	}
}
