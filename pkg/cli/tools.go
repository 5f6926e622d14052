package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/warren/pkg/memory"
	"github.com/m-mizutani/warren/pkg/repository"
	"github.com/m-mizutani/warren/pkg/tool"
	"github.com/m-mizutani/warren/pkg/tool/file"
	"github.com/m-mizutani/warren/pkg/tool/web"
)

// toolsCommand prints the effective priority table without touching the
// database or the LLM backend.
func toolsCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, sessionFlags(&cfg)...)

	return &cli.Command{
		Name:  "tools",
		Usage: "Show the tool priority table in resolution order",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := cfg.newLogger()

			fc, err := cfg.loadFileConfig()
			if err != nil {
				return err
			}

			// Listing only needs the tool metadata, not live backends
			registry, err := cfg.newRegistry(&toolDeps{
				store:     memory.New(repository.NewInMemory(), nil),
				sched:     cfg.newScheduler(logger),
				workspace: file.NewWorkspace(cfg.workspaceDir),
				web:       web.NewClient(),
			}, fc.Priorities)
			if err != nil {
				return err
			}

			printToolTable(c.Root().Writer, registry.List())
			return nil
		},
	}
}

func printToolTable(w io.Writer, infos []tool.Info) {
	fmt.Fprintf(w, "%-4s %-24s %s\n", "PRI", "TOOL", "DESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(w, "%-4d %-24s %s\n", info.Priority, info.Name, info.Description)
	}
}
