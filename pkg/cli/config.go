package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/m-mizutani/warren/pkg/adapter"
	"github.com/m-mizutani/warren/pkg/memory"
	"github.com/m-mizutani/warren/pkg/repository"
	"github.com/m-mizutani/warren/pkg/scheduler"
	"github.com/m-mizutani/warren/pkg/tool"
	"github.com/m-mizutani/warren/pkg/tool/daily"
	"github.com/m-mizutani/warren/pkg/tool/file"
	"github.com/m-mizutani/warren/pkg/tool/memoryq"
	"github.com/m-mizutani/warren/pkg/tool/system"
	"github.com/m-mizutani/warren/pkg/tool/web"
	"github.com/m-mizutani/warren/pkg/utils/logging"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel string

	// Repository
	dbPath string

	// Adapters
	geminiProject   string
	geminiLocation  string
	generativeModel string
	embeddingModel  string
	weatherAPIKey   string

	// Tool directories
	downloadDir  string
	workspaceDir string

	// Behavior
	configPath    string
	maxTurns      int64
	contextBudget int64
	recentWindow  int64
	wrapResults   bool
	desktopNotify bool
}

// fileConfig is the optional YAML overlay: per-tool priority overrides and
// budget tuning that would be unwieldy as flags.
type fileConfig struct {
	Priorities    map[string]int `yaml:"priorities"`
	ContextBudget int            `yaml:"context_budget"`
	MaxTurns      int            `yaml:"max_turns"`
	RecentWindow  int            `yaml:"recent_window"`
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("WARREN_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "db",
			Aliases:     []string{"d"},
			Usage:       "Path to the SQLite conversation database",
			Value:       defaultDBPath(),
			Sources:     cli.EnvVars("WARREN_DB_PATH"),
			Destination: &cfg.dbPath,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML config with priority overrides",
			Sources:     cli.EnvVars("WARREN_CONFIG"),
			Destination: &cfg.configPath,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "generative-model",
			Usage:       "Model for response generation",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("WARREN_GENERATIVE_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Model for conversation embeddings",
			Value:       "gemini-embedding-001",
			Sources:     cli.EnvVars("WARREN_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
	}
}

// sessionFlags returns flags for the conversational commands
func sessionFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "weather-api-key",
			Usage:       "OpenWeatherMap API key",
			Sources:     cli.EnvVars("OPENWEATHER_API_KEY"),
			Destination: &cfg.weatherAPIKey,
		},
		&cli.StringFlag{
			Name:        "download-dir",
			Usage:       "Directory for downloaded files",
			Value:       defaultSubdir("downloads"),
			Sources:     cli.EnvVars("WARREN_DOWNLOAD_DIR"),
			Destination: &cfg.downloadDir,
		},
		&cli.StringFlag{
			Name:        "workspace-dir",
			Usage:       "Directory the file tools operate in",
			Value:       defaultSubdir("workspace"),
			Sources:     cli.EnvVars("WARREN_WORKSPACE_DIR"),
			Destination: &cfg.workspaceDir,
		},
		&cli.IntFlag{
			Name:        "max-turns",
			Usage:       "Retention cap for stored conversations",
			Value:       500,
			Sources:     cli.EnvVars("WARREN_MAX_TURNS"),
			Destination: &cfg.maxTurns,
		},
		&cli.IntFlag{
			Name:        "context-budget",
			Usage:       "Character budget for assembled prompts",
			Sources:     cli.EnvVars("WARREN_CONTEXT_BUDGET"),
			Destination: &cfg.contextBudget,
		},
		&cli.IntFlag{
			Name:        "recent-window",
			Usage:       "Recent turns included in generative context",
			Value:       10,
			Sources:     cli.EnvVars("WARREN_RECENT_WINDOW"),
			Destination: &cfg.recentWindow,
		},
		&cli.BoolFlag{
			Name:        "wrap-results",
			Usage:       "Rephrase successful tool output conversationally",
			Sources:     cli.EnvVars("WARREN_WRAP_RESULTS"),
			Destination: &cfg.wrapResults,
		},
		&cli.BoolFlag{
			Name:        "notify-desktop",
			Usage:       "Deliver reminders as desktop notifications",
			Sources:     cli.EnvVars("WARREN_NOTIFY_DESKTOP"),
			Destination: &cfg.desktopNotify,
		},
	}
}

func defaultDBPath() string {
	return defaultSubdir("warren.db")
}

func defaultSubdir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".warren", name)
	}
	return filepath.Join(home, ".warren", name)
}

// loadFileConfig reads the optional YAML overlay and folds it into cfg.
func (cfg *config) loadFileConfig() (*fileConfig, error) {
	if cfg.configPath == "" {
		return &fileConfig{}, nil
	}

	data, err := os.ReadFile(cfg.configPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", cfg.configPath))
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", cfg.configPath))
	}

	if fc.ContextBudget > 0 && cfg.contextBudget == 0 {
		cfg.contextBudget = int64(fc.ContextBudget)
	}
	if fc.MaxTurns > 0 {
		cfg.maxTurns = int64(fc.MaxTurns)
	}
	if fc.RecentWindow > 0 {
		cfg.recentWindow = int64(fc.RecentWindow)
	}
	return &fc, nil
}

// newLogger builds the process logger and installs it as default.
func (cfg *config) newLogger() *slog.Logger {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logger
}

// newRepository creates the SQLite-backed repository
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.dbPath == "" {
		return nil, goerr.New("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.dbPath), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create database directory")
	}

	repo, err := repository.NewSQLite(ctx, cfg.dbPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open repository")
	}
	return repo, nil
}

// newGemini creates the Gemini adapter
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
		adapter.WithGenerativeModel(cfg.generativeModel),
		adapter.WithEmbeddingModel(cfg.embeddingModel),
	)
}

// newStore wraps the repository in the embedding-indexed memory store.
func (cfg *config) newStore(repo repository.Repository, embedder memory.Embedder) *memory.Store {
	return memory.New(repo, embedder, memory.WithMaxTurns(int(cfg.maxTurns)))
}

// newScheduler builds the reminder scheduler with a console notifier.
func (cfg *config) newScheduler(logger *slog.Logger) *scheduler.Scheduler {
	var opts []adapter.NotifierOption
	if cfg.desktopNotify {
		opts = append(opts, adapter.WithDesktopNotification())
	}
	notifier := adapter.NewConsoleNotifier(os.Stdout, logger, opts...)
	return scheduler.New(notifier, logger)
}

// Default priorities. Higher wins; specific phrasings outrank the generic
// "search"/"download" catch-alls at the bottom.
var defaultPriorities = []struct {
	build    func(cfg *config, deps *toolDeps) tool.Tool
	priority int
}{
	{func(cfg *config, d *toolDeps) tool.Tool { return memoryq.NewSearch(d.store) }, 90},
	{func(cfg *config, d *toolDeps) tool.Tool { return memoryq.NewRecent(d.store) }, 90},
	{func(cfg *config, d *toolDeps) tool.Tool { return memoryq.NewOnDate(d.store) }, 90},
	{func(cfg *config, d *toolDeps) tool.Tool { return memoryq.NewStats(d.store) }, 90},

	{func(cfg *config, d *toolDeps) tool.Tool { return daily.NewSetReminder(d.sched) }, 85},
	{func(cfg *config, d *toolDeps) tool.Tool { return daily.NewCancelReminder(d.sched) }, 85},
	{func(cfg *config, d *toolDeps) tool.Tool { return daily.NewListReminders(d.sched) }, 85},
	{func(cfg *config, d *toolDeps) tool.Tool { return daily.NewCalculator() }, 80},
	{func(cfg *config, d *toolDeps) tool.Tool { return daily.NewClipboard() }, 75},
	{func(cfg *config, d *toolDeps) tool.Tool { return daily.NewWeather(cfg.weatherAPIKey) }, 70},

	{func(cfg *config, d *toolDeps) tool.Tool { return system.NewYouTubeSearch() }, 65},
	{func(cfg *config, d *toolDeps) tool.Tool { return system.NewOpenURL() }, 64},
	{func(cfg *config, d *toolDeps) tool.Tool { return system.NewOpenApp() }, 63},
	{func(cfg *config, d *toolDeps) tool.Tool { return system.NewKillProcess() }, 62},
	{func(cfg *config, d *toolDeps) tool.Tool { return system.NewSystemInfo() }, 60},
	{func(cfg *config, d *toolDeps) tool.Tool { return system.NewCPUUsage() }, 60},
	{func(cfg *config, d *toolDeps) tool.Tool { return system.NewMemoryUsage() }, 60},
	{func(cfg *config, d *toolDeps) tool.Tool { return system.NewDiskUsage("") }, 60},
	{func(cfg *config, d *toolDeps) tool.Tool { return system.NewListProcesses() }, 60},

	{func(cfg *config, d *toolDeps) tool.Tool { return file.NewRead(d.workspace) }, 50},
	{func(cfg *config, d *toolDeps) tool.Tool { return file.NewWrite(d.workspace) }, 50},
	{func(cfg *config, d *toolDeps) tool.Tool { return file.NewCreateFolder(d.workspace) }, 50},
	{func(cfg *config, d *toolDeps) tool.Tool { return file.NewList(d.workspace) }, 50},
	{func(cfg *config, d *toolDeps) tool.Tool { return file.NewDelete(d.workspace) }, 50},
	{func(cfg *config, d *toolDeps) tool.Tool { return file.NewSearch(d.workspace) }, 50},

	{func(cfg *config, d *toolDeps) tool.Tool { return web.NewScrape(d.web) }, 30},
	{func(cfg *config, d *toolDeps) tool.Tool { return web.NewReadPage(d.web) }, 30},
	{func(cfg *config, d *toolDeps) tool.Tool { return web.NewDownload(d.web, cfg.downloadDir) }, 30},
	{func(cfg *config, d *toolDeps) tool.Tool { return web.NewURLInfo(d.web) }, 30},
	{func(cfg *config, d *toolDeps) tool.Tool { return web.NewSearch(d.web) }, 20},
}

type toolDeps struct {
	store     *memory.Store
	sched     *scheduler.Scheduler
	workspace *file.Workspace
	web       *web.Client
}

// newRegistry registers the full tool set under the default priority table,
// with per-tool overrides from the YAML config applied on top.
func (cfg *config) newRegistry(deps *toolDeps, overrides map[string]int) (*tool.Registry, error) {
	registry := tool.NewRegistry()
	for _, entry := range defaultPriorities {
		t := entry.build(cfg, deps)
		priority := entry.priority
		if p, ok := overrides[t.Name()]; ok {
			priority = p
		}
		if err := registry.Register(t, priority); err != nil {
			return nil, goerr.Wrap(err, "failed to register tool", goerr.V("tool", t.Name()))
		}
	}
	return registry, nil
}
