package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/camlaunchgo/internal/ctxlog"
	"github.com/vk/camlaunchgo/internal/launch"
)

// Config holds the command-line configuration for an App instance. The
// environment snapshot remains the primary interface; flags exist for
// interactive use and override the corresponding environment values.
type Config struct {
	ProfilePath string
	ConfigDir   string
	DryRun      bool
	LogFormat   string
	LogLevel    string
}

// App encapsulates the orchestrator's dependencies and lifecycle: one
// environment snapshot, one logger, one starter.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	env     Environment
	dryRun  bool
	starter launch.Starter
}

// NewApp constructs the orchestrator. The environment is snapshotted here,
// exactly once, through lookup (os.LookupEnv in production). A nil starter
// selects the exec starter, or the dry-run starter when cfg.DryRun is set;
// tests inject their own.
func NewApp(outW io.Writer, cfg *Config, lookup func(string) (string, bool), starter launch.Starter) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	env := SnapshotEnvironment(ctx, lookup)
	if cfg.ProfilePath != "" {
		env.ProfilePath = cfg.ProfilePath
	}
	if cfg.ConfigDir != "" {
		env.ConfigDir = cfg.ConfigDir
	}

	if starter == nil {
		if cfg.DryRun {
			starter = &launch.DryRunStarter{Out: outW}
		} else {
			starter = launch.NewExecStarter()
		}
	}

	return &App{
		outW:    outW,
		logger:  logger,
		env:     env,
		dryRun:  cfg.DryRun,
		starter: starter,
	}
}

// Environment returns the immutable environment snapshot. This is primarily
// for testing.
func (a *App) Environment() Environment {
	return a.env
}
