package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/warren/pkg/memory"
	"github.com/m-mizutani/warren/pkg/repository"
	"github.com/m-mizutani/warren/pkg/scheduler"
	"github.com/m-mizutani/warren/pkg/tool"
	"github.com/m-mizutani/warren/pkg/tool/file"
	"github.com/m-mizutani/warren/pkg/tool/web"
	"github.com/m-mizutani/warren/pkg/usecase/session"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "warren",
		Usage: "Local conversational assistant with tools and semantic memory",
		// Errors exit through the *Error contract in main, not through the
		// library's default os.Exit handler
		ExitErrHandler: func(ctx context.Context, c *cli.Command, err error) {},
		Commands: []*cli.Command{
			chatCommand(),
			askCommand(),
			historyCommand(),
			remindCommand(),
			clearCommand(),
			toolsCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

// runtime is everything a conversational command needs, built once per
// invocation.
type runtime struct {
	repo     repository.Repository
	store    *memory.Store
	sched    *scheduler.Scheduler
	registry *tool.Registry
	session  *session.Session
}

func (r *runtime) close() {
	r.sched.Stop()
	r.repo.Close()
}

// newRuntime wires repository, adapters, tool registry, scheduler and session
// from the config.
func (cfg *config) newRuntime(ctx context.Context, sessionID string) (*runtime, error) {
	logger := cfg.newLogger()

	fc, err := cfg.loadFileConfig()
	if err != nil {
		return nil, err
	}

	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}

	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		repo.Close()
		return nil, err
	}

	store := cfg.newStore(repo, gemini)
	sched := cfg.newScheduler(logger)

	registry, err := cfg.newRegistry(&toolDeps{
		store:     store,
		sched:     sched,
		workspace: file.NewWorkspace(cfg.workspaceDir),
		web:       web.NewClient(),
	}, fc.Priorities)
	if err != nil {
		repo.Close()
		return nil, err
	}

	sess, err := session.New(session.NewInput{
		ID:              sessionID,
		Registry:        registry,
		Store:           store,
		LLM:             gemini,
		ContextBudget:   int(cfg.contextBudget),
		RecentWindow:    int(cfg.recentWindow),
		WrapToolResults: cfg.wrapResults,
	})
	if err != nil {
		repo.Close()
		return nil, err
	}

	sched.Start()
	return &runtime{
		repo:     repo,
		store:    store,
		sched:    sched,
		registry: registry,
		session:  sess,
	}, nil
}
