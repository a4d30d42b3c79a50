package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/hookpilot/internal/state"
)

var resetAll bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start a fresh session record",
	Long: `Starts a fresh session record, keeping git and error history.
With --all the record is replaced by defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st := store()
		var next *state.SessionState
		if resetAll {
			next = state.Default()
		} else {
			next = state.ResetForNewSession(st.Load(), uuid.NewString())
		}
		if err := st.Save(next); err != nil {
			return fmt.Errorf("resetting state: %w", err)
		}
		cmd.Printf("reset %s\n", st.Path())
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "also forget git and error history")
	rootCmd.AddCommand(resetCmd)
}
