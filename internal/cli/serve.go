package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forPelevin/tamilshorts/internal/jobs"
	"github.com/forPelevin/tamilshorts/internal/pipeline"
	"github.com/forPelevin/tamilshorts/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/tamilshorts/internal/watch"
	"github.com/forPelevin/tamilshorts/internal/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Serve the web UI and process submitted videos one at a time",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, logger, err := newRunner(cmd)
			if err != nil {
				return err
			}
			addr, _ := cmd.Flags().GetString("addr")
			uploads, _ := cmd.Flags().GetString("uploads")
			inbox, _ := cmd.Flags().GetString("inbox")

			srv, err := web.New(runner, web.Config{Addr: addr, UploadsDir: uploads}, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go runner.Start(ctx)

			if inbox != "" {
				w, err := watch.New(inbox, runner, watch.Options{Logger: logger})
				if err != nil {
					return err
				}
				go w.Run(ctx)
			}
			return srv.Start(ctx)
		},
	}
	cmd.Flags().String("addr", ":8000", "Listen address")
	cmd.Flags().String("uploads", "uploads", "Directory for uploaded videos")
	cmd.Flags().String("inbox", "", "Also watch this directory for new videos")
	cmd.Flags().Int("queue", 8, "Maximum queued jobs")
	addPipelineFlags(cmd)
	addSelectionFlags(cmd)
	return cmd
}

// newRunner validates everything that does not depend on the source and
// returns a runner that executes the pipeline per submitted source.
func newRunner(cmd *cobra.Command) (*jobs.Runner, *slog.Logger, error) {
	base, err := pipelineConfig(cmd, "")
	if err != nil {
		return nil, nil, err
	}
	if err := base.ValidateSelection(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if base.WhisperModel == "" {
		return nil, nil, fmt.Errorf("config: whisper model path is required")
	}
	queue, _ := cmd.Flags().GetInt("queue")
	logger := newLogger(cmd)

	runFn := func(ctx context.Context, source string, logf func(string, ...any)) (jobs.Result, error) {
		cfg := base
		cfg.Source = source
		if !ytdlp.IsURL(source) {
			if abs, err := filepath.Abs(source); err == nil {
				cfg.Source = abs
			}
		}
		if err := cfg.Validate(); err != nil {
			return jobs.Result{}, fmt.Errorf("config: %w", err)
		}
		cfgLog := progressLogf(logger, "source", source)
		cfg.Logf = func(format string, args ...any) {
			cfgLog(format, args...)
			logf(format, args...)
		}
		ctx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()

		res, err := pipeline.Run(ctx, cfg)
		if err != nil {
			return jobs.Result{}, err
		}
		return jobs.Result{
			RunDir:       res.RunDir,
			ManifestPath: res.ManifestPath,
			Manifest:     res.Manifest,
			Shorts:       res.Shorts,
		}, nil
	}
	return jobs.NewRunner(runFn, queue, logger), logger, nil
}
