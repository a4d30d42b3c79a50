package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/hookpilot/internal/setup"
)

var (
	setupYes    bool
	setupBinary string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Write the project config and register hookpilot's hooks",
	Long: `Writes .hookpilot/config.json and adds hookpilot's hook commands to the
host's project settings. Re-run anytime to edit the config; hooks are only
added once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		answers := setup.DefaultAnswers(withDetectedCommands(cfg))
		if !setupYes && stdinIsTerminal(cmd) {
			a, err := setup.Ask(cmd.InOrStdin(), cmd.OutOrStdout(), answers)
			if err != nil {
				return fmt.Errorf("setup cancelled: %w", err)
			}
			answers = a
		}

		path, err := setup.WriteConfig(projectRoot, answers)
		if err != nil {
			return err
		}
		cmd.Printf("  ✓ Config written to %s\n", path)

		binary := setupBinary
		if binary == "" {
			binary = defaultBinary()
		}
		timeout := cfg.Testing.TimeoutSeconds
		if cfg.Building.TimeoutSeconds > timeout {
			timeout = cfg.Building.TimeoutSeconds
		}
		added, err := setup.InstallHooks(projectRoot, binary, timeout+30)
		if err != nil {
			cmd.Printf("  ⚠ Hook install failed: %v\n", err)
			cmd.Println("    You can retry with: hookpilot setup")
			return nil
		}
		if added == 0 {
			cmd.Println("  ✓ Hooks already registered.")
		} else {
			cmd.Printf("  ✓ Registered %d hooks in %s\n", added, setup.SettingsPath)
		}
		return nil
	},
}

// defaultBinary is the path of the running executable, or the bare name
// when it cannot be resolved.
func defaultBinary() string {
	exe, err := os.Executable()
	if err != nil {
		return "hookpilot"
	}
	return exe
}

func init() {
	setupCmd.Flags().BoolVarP(&setupYes, "yes", "y", false, "accept detected defaults without prompting")
	setupCmd.Flags().StringVar(&setupBinary, "binary", "", "command the hooks should invoke (default: this executable)")
	rootCmd.AddCommand(setupCmd)
}
