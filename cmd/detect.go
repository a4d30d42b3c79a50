package cmd

import (
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show the detected project stack and the commands hookpilot would run",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := stacks.Get(projectRoot)
		c := withDetectedCommands(cfg)
		cmd.Printf("project: %s\n", projectRoot)
		cmd.Printf("stack:   %s\n", s.String())
		cmd.Printf("test:    %s\n", orUnset(c.Testing.Command))
		cmd.Printf("build:   %s\n", orUnset(c.Building.Command))
		return nil
	},
}

func orUnset(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
