package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/hookpilot/internal/recovery"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify error output against the recovery pattern library",
	Long: `Classifies the given text, or stdin when no text is given, and prints the
matching category, severity, suggested fix and signature.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := strings.Join(args, " ")
		if raw == "" {
			data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<20))
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			raw = string(data)
		}
		if strings.TrimSpace(raw) == "" {
			return fmt.Errorf("nothing to classify")
		}

		sig, m := recovery.DefaultLibrary().SignatureOf(raw)
		if m == nil {
			cmd.Printf("category:  %s\n", recovery.Unclassified)
			cmd.Printf("signature: %s\n", sig)
			return nil
		}
		cmd.Printf("category:  %s\n", m.Pattern.Category)
		cmd.Printf("severity:  %s\n", m.Pattern.Severity)
		cmd.Printf("matched:   %s\n", m.Matched)
		cmd.Printf("fix:       %s\n", m.Pattern.Fix)
		cmd.Printf("signature: %s\n", sig)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
