package cmd

import (
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/hookpilot/internal/gitstate"
	"github.com/fakeyudi/hookpilot/internal/hook"
	"github.com/fakeyudi/hookpilot/internal/memory"
	"github.com/fakeyudi/hookpilot/internal/recovery"
	"github.com/fakeyudi/hookpilot/internal/runner"
)

var hookCmd = &cobra.Command{
	Use:   "hook [event]",
	Short: "Handle one host hook event read from stdin",
	Long: `Reads the hook payload from stdin, updates the session record, runs any
due automation and writes the hook response to stdout.

The optional event argument overrides hook_event_name from the payload.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in hook.Input
		if !stdinIsTerminal(cmd) {
			in = hook.ReadInput(cmd.Context(), cmd.InOrStdin(), cfg.InputTimeout(), logger)
		}
		if len(args) == 1 {
			in.HookEventName = args[0]
		}

		// The payload's cwd names the project when nothing more specific does.
		if in.CWD != "" && projectFlag == "" && os.Getenv(projectEnv) == "" {
			if root := discoverRoot(in.CWD); root != projectRoot {
				useProject(root, cmd)
			}
		}

		lib := recovery.DefaultLibrary()
		p := &hook.Processor{
			Root:    projectRoot,
			Config:  cfg,
			Store:   store(),
			Library: lib,
			Stacks:  stacks,
			Branch:  gitstate.CurrentBranch,
			Logger:  logger,
			Runner: &runner.Runner{
				Root:     projectRoot,
				Exec:     execFn,
				Library:  lib,
				Failures: memory.New(projectRoot),
				Logger:   logger,
			},
		}
		resp := p.Process(cmd.Context(), in)
		if err := resp.Write(cmd.OutOrStdout()); err != nil {
			logger.Error("writing hook response", "error", err)
		}
		exitCode = resp.ExitCode()
		return nil
	},
}

// stdinIsTerminal reports whether the command's stdin is an interactive
// terminal, in which case no payload is coming.
func stdinIsTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func init() {
	rootCmd.AddCommand(hookCmd)
}
