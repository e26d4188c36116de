package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forPelevin/tamilshorts/internal/watch"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "watch",
		Short:        "Process every video dropped into an inbox directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, logger, err := newRunner(cmd)
			if err != nil {
				return err
			}
			inbox, _ := cmd.Flags().GetString("inbox")
			w, err := watch.New(inbox, runner, watch.Options{Logger: logger})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go runner.Start(ctx)
			return w.Run(ctx)
		},
	}
	cmd.Flags().String("inbox", "inbox", "Directory to watch")
	cmd.Flags().Int("queue", 8, "Maximum queued jobs")
	addPipelineFlags(cmd)
	addSelectionFlags(cmd)
	return cmd
}
