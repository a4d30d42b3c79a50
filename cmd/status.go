package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fakeyudi/hookpilot/internal/report"
	"github.com/fakeyudi/hookpilot/internal/tui"
)

var (
	statusFormat string
	statusTUI    bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session record of the current project",
	RunE: func(cmd *cobra.Command, args []string) error {
		rec := store().Load()
		stack := stacks.Get(projectRoot)
		r := report.Build(projectRoot, rec, withDetectedCommands(cfg), &stack)

		if statusTUI {
			return tui.Run(r)
		}

		renderer, err := report.ForFormat(statusFormat)
		if err != nil {
			return err
		}
		out, err := renderer.Render(r)
		if err != nil {
			return err
		}
		cmd.Print(string(out))
		if statusFormat == report.FormatJSON {
			cmd.Println()
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusFormat, "format", "f", report.FormatText, "output format: text, json or markdown")
	statusCmd.Flags().BoolVar(&statusTUI, "tui", false, "browse the record interactively")
	rootCmd.AddCommand(statusCmd)
}
