package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/hookpilot/internal/watch"
)

var watchIgnore []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Record file changes made outside the agent until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := &watch.Watcher{
			Root:   projectRoot,
			Store:  store(),
			Ignore: watchIgnore,
			Logger: logger,
			OnRecord: func(rel string) {
				cmd.Printf("recorded %s\n", rel)
			},
		}
		cmd.Printf("watching %s (ctrl+c to stop)\n", projectRoot)
		return w.Run(ctx)
	},
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchIgnore, "ignore", nil, "extra glob patterns to ignore")
	rootCmd.AddCommand(watchCmd)
}
