package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/tamilshorts/internal/pipeline"
	"github.com/forPelevin/tamilshorts/internal/ports/adapters/gemini"
	"github.com/forPelevin/tamilshorts/internal/ports/adapters/openrouter"
	"github.com/forPelevin/tamilshorts/internal/ports/adapters/ytdlp"
)

const (
	defaultChunk   = time.Second
	runTimeout     = 3 * time.Hour
	defaultWhisper = ".cache/bin/whisper.cpp"
	defaultModel   = ".cache/models/ggml-small.bin"
)

// selectionConfig reads the flags and environment shared by every command
// that talks to the model.
func selectionConfig(cmd *cobra.Command) pipeline.Config {
	minSec, _ := cmd.Flags().GetInt("min")
	maxSec, _ := cmd.Flags().GetInt("max")
	promptMin, _ := cmd.Flags().GetInt("prompt-min")
	promptMax, _ := cmd.Flags().GetInt("prompt-max")
	promptFile, _ := cmd.Flags().GetString("prompt-file")
	provider, _ := cmd.Flags().GetString("llm")
	if provider == "" {
		provider = getenvDefault("LLM_PROVIDER", pipeline.ProviderGemini)
	}

	return pipeline.Config{
		MinSeconds: minSec,
		MaxSeconds: maxSec,
		PromptMin:  promptMin,
		PromptMax:  promptMax,
		PromptFile: promptFile,

		LLMProvider: provider,

		GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),
		GeminiModel:  getenvDefault("GEMINI_MODEL", gemini.DefaultModel),

		OpenRouterAPIKey:       os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:        getenvDefault("OPENROUTER_MODEL", openrouter.DefaultModel),
		OpenRouterBaseURL:      getenvDefault("OPENROUTER_BASE_URL", "https://openrouter.ai"),
		OpenRouterAllowedHosts: splitList(os.Getenv("OPENROUTER_ALLOWED_HOSTS")),
	}
}

// pipelineConfig adds the full-run flags to selectionConfig. source may be
// empty for long-running commands that receive sources later.
func pipelineConfig(cmd *cobra.Command, source string) (pipeline.Config, error) {
	cfg := selectionConfig(cmd)
	outDir, _ := cmd.Flags().GetString("out")
	chunk, _ := cmd.Flags().GetDuration("chunk")
	workers, _ := cmd.Flags().GetInt("asr-workers")
	lang, _ := cmd.Flags().GetString("lang")
	burn, _ := cmd.Flags().GetBool("burn-subs")

	if source != "" && !ytdlp.IsURL(source) {
		abs, err := filepath.Abs(source)
		if err != nil {
			return pipeline.Config{}, err
		}
		source = abs
	}

	cfg.Source = source
	cfg.OutDir = outDir
	cfg.Chunk = chunk
	cfg.ASRWorkers = workers
	cfg.Language = lang
	cfg.BurnSubtitles = burn

	cfg.FFmpegPath = getenvDefault("FFMPEG_BIN", "ffmpeg")
	cfg.FFprobePath = getenvDefault("FFPROBE_BIN", "ffprobe")
	cfg.YtDlpPath = getenvDefault("YTDLP_BIN", "yt-dlp")
	cfg.WhisperBin = getenvDefault("WHISPER_BIN", defaultWhisper)
	cfg.WhisperModel = getenvDefault("WHISPER_MODEL", defaultModel)
	return cfg, nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// progressLogf adapts the pipeline's printf-style progress callback to slog.
func progressLogf(logger *slog.Logger, attrs ...any) func(string, ...any) {
	l := logger.With(attrs...)
	return func(format string, args ...any) {
		l.Info(fmt.Sprintf(format, args...))
	}
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
