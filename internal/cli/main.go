package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "tamilshorts <input-or-url>",
		Short:        "Turn a Tamil video into vertical shorts",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")
	addPipelineFlags(root)
	addSelectionFlags(root)

	root.AddCommand(newServeCmd(), newWatchCmd(), newSelectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("out", "out", "Output directory")
	cmd.Flags().Duration("chunk", defaultChunk, "Transcription chunk length")
	cmd.Flags().Int("asr-workers", 2, "Concurrent transcription workers")
	cmd.Flags().String("lang", "ta", "Speech language passed to whisper.cpp")
	cmd.Flags().Bool("burn-subs", false, "Burn transcript subtitles into the shorts")
}

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().Int("min", 10, "Shortest accepted short, seconds")
	cmd.Flags().Int("max", 180, "Longest accepted short, seconds")
	cmd.Flags().Int("prompt-min", 45, "Shortest duration asked of the model, seconds")
	cmd.Flags().Int("prompt-max", 180, "Longest duration asked of the model, seconds")
	cmd.Flags().String("prompt-file", "", "YAML prompt template overriding the built-in one")
	cmd.Flags().String("llm", "", "LLM provider: gemini or openrouter (default $LLM_PROVIDER or gemini)")

	// Hidden tuning flags (internal)
	_ = cmd.Flags().MarkHidden("prompt-min")
	_ = cmd.Flags().MarkHidden("prompt-max")
}
