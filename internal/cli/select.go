package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forPelevin/tamilshorts/internal/pipeline"
)

func newSelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "select <transcript.json>",
		Short:        "Pick shorts from an existing transcript without touching video",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := selectionConfig(cmd)
			if err := cfg.ValidateSelection(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("config: stat transcript: %w", err)
			}
			out, _ := cmd.Flags().GetString("out")
			cfg.Logf = progressLogf(newLogger(cmd))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shorts, err := pipeline.Select(ctx, cfg, args[0], out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d shorts written to %s\n", len(shorts), out)
			return nil
		},
	}
	cmd.Flags().String("out", "shorts.json", "Where to write the validated shorts")
	addSelectionFlags(cmd)
	return cmd
}
