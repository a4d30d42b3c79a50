package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/hookpilot/internal/config"
	"github.com/fakeyudi/hookpilot/internal/detect"
	"github.com/fakeyudi/hookpilot/internal/gitstate"
	"github.com/fakeyudi/hookpilot/internal/logging"
	"github.com/fakeyudi/hookpilot/internal/runner"
	"github.com/fakeyudi/hookpilot/internal/state"
)

// projectEnv names the project root the host exports to hook commands.
const projectEnv = "CLAUDE_PROJECT_DIR"

var (
	// projectFlag overrides project root discovery.
	projectFlag string

	// projectRoot, cfg and logger are populated in PersistentPreRunE.
	projectRoot string
	cfg         config.Config
	logger      = slog.Default()
	closeLog    = func() error { return nil }

	// stacks memoizes stack detection per root.
	stacks = detect.NewCache(16, 5*time.Minute)

	// execFn runs external commands; tests replace it.
	execFn runner.Exec = runner.SystemExec

	// exitCode is what Execute exits with after a successful run.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:           "hookpilot",
	Short:         "Hook-driven checkpoints, builds, tests and merges for coding agents",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		exitCode = 0
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		useProject(discoverRoot(wd), cmd)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "C", "", "project root (default: discovered from the working directory)")
}

// Execute runs the root command. Exits with code 1 on error, or with the
// exit code a hook run asked for.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hookpilot:", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// discoverRoot picks the project root for dir: the --project flag, then the
// host's project env var, then the enclosing git work tree, then dir itself.
func discoverRoot(dir string) string {
	if projectFlag != "" {
		if abs, err := filepath.Abs(projectFlag); err == nil {
			return abs
		}
		return projectFlag
	}
	if d := os.Getenv(projectEnv); d != "" {
		return d
	}
	if r, err := gitstate.Root(dir); err == nil {
		return r
	}
	return dir
}

// useProject resolves config and logging for root. Config errors are
// logged, never fatal: a broken file falls back to the other layers.
func useProject(root string, cmd *cobra.Command) {
	if err := closeLog(); err != nil {
		logger.Debug("closing log", "error", err)
	}
	projectRoot = root

	l, closeFn, err := logging.Setup(root, logging.Enabled(os.Getenv), cmd.ErrOrStderr())
	logger, closeLog = l, closeFn
	if err != nil {
		logger.Warn("debug log unavailable", "error", err)
	}

	var errs []error
	cfg, errs = config.Resolve(root, os.Getenv)
	for _, e := range errs {
		logger.Warn("config layer skipped", "error", e)
	}
}

// store returns the state store of the current project.
func store() state.Store {
	return state.NewStore(projectRoot, logger)
}

// withDetectedCommands fills commands the config leaves empty from the
// detected stack.
func withDetectedCommands(c config.Config) config.Config {
	return stacks.FillCommands(projectRoot, c)
}
