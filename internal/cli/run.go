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

func run(cmd *cobra.Command, input string) error {
	cfg, err := pipelineConfig(cmd, input)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := newLogger(cmd)
	cfg.Logf = progressLogf(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d shorts written to %s\n", len(res.Manifest.Clips), res.RunDir)
	for _, c := range res.Manifest.Clips {
		fmt.Fprintf(cmd.OutOrStdout(), "  #%d %s-%s %s  %s\n", c.ShortNumber, c.StartTime, c.EndTime, c.File, c.Description)
	}
	return nil
}
