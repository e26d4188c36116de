package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/forPelevin/tamilshorts/internal/domain/prompt"
	"github.com/forPelevin/tamilshorts/internal/domain/segments"
	"github.com/forPelevin/tamilshorts/internal/domain/transcript"
	"github.com/forPelevin/tamilshorts/internal/ports"
	"github.com/forPelevin/tamilshorts/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/tamilshorts/internal/ports/adapters/gemini"
	"github.com/forPelevin/tamilshorts/internal/ports/adapters/openrouter"
	"github.com/forPelevin/tamilshorts/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/tamilshorts/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/tamilshorts/internal/types"
	"github.com/forPelevin/tamilshorts/internal/usecase"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"

	ManifestFile = "manifest.json"
)

type Config struct {
	// Source is a local video path or an http(s) video URL.
	Source        string
	OutDir        string
	Chunk         time.Duration
	ASRWorkers    int
	Language      string
	MinSeconds    int
	MaxSeconds    int
	PromptMin     int
	PromptMax     int
	PromptFile    string
	BurnSubtitles bool
	Logf          func(format string, args ...any)

	// CacheDir is the base directory for local artifacts (downloads, audio, chunks).
	// If empty, defaults to ".cache".
	CacheDir string

	FFmpegPath  string
	FFprobePath string
	YtDlpPath   string

	WhisperBin   string
	WhisperModel string

	LLMProvider string

	GoogleAPIKey string
	GeminiModel  string

	OpenRouterAPIKey       string
	OpenRouterModel        string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string
}

type Result struct {
	RunDir       string
	ManifestPath string
	Manifest     types.Manifest
	Shorts       []types.Short
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Source) == "" {
		return errors.New("input is empty")
	}
	if !ytdlp.IsURL(c.Source) {
		if _, err := os.Stat(c.Source); err != nil {
			return fmt.Errorf("stat input: %w", err)
		}
	}
	if c.Chunk <= 0 {
		return errors.New("chunk must be > 0")
	}
	if c.ASRWorkers < 0 {
		return errors.New("asr workers must be >= 0")
	}
	if c.WhisperModel == "" {
		return errors.New("whisper model path is required")
	}
	return c.ValidateSelection()
}

// ValidateSelection checks only what segment selection needs.
func (c Config) ValidateSelection() error {
	if err := c.bounds().Validate(); err != nil {
		return err
	}
	if c.PromptMin < 0 || c.PromptMax < 0 {
		return errors.New("prompt window must be >= 0")
	}
	if c.PromptMin > 0 && c.PromptMax > 0 && c.PromptMin > c.PromptMax {
		return errors.New("prompt min must be <= prompt max")
	}
	if c.PromptFile != "" {
		if _, err := os.Stat(c.PromptFile); err != nil {
			return fmt.Errorf("stat prompt file: %w", err)
		}
	}
	switch c.provider() {
	case ProviderGemini:
		if strings.TrimSpace(c.GoogleAPIKey) == "" {
			return errors.New("GOOGLE_API_KEY is required for the gemini provider")
		}
		return nil
	case ProviderOpenRouter:
		if strings.TrimSpace(c.OpenRouterAPIKey) == "" {
			return errors.New("OPENROUTER_API_KEY is required for the openrouter provider")
		}
		return openrouter.ValidateBaseURL(c.OpenRouterBaseURL, c.OpenRouterAllowedHosts)
	default:
		return fmt.Errorf("unknown LLM provider %q (want %s or %s)", c.LLMProvider, ProviderGemini, ProviderOpenRouter)
	}
}

func (c Config) provider() string {
	p := strings.ToLower(strings.TrimSpace(c.LLMProvider))
	if p == "" {
		return ProviderGemini
	}
	return p
}

func (c Config) bounds() segments.Bounds {
	b := segments.Bounds{MinSeconds: c.MinSeconds, MaxSeconds: c.MaxSeconds}
	if b == (segments.Bounds{}) {
		return segments.DefaultBounds
	}
	return b
}

func (c Config) logf() func(string, ...any) {
	if c.Logf == nil {
		return func(string, ...any) {}
	}
	return c.Logf
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	logf := cfg.logf()

	tpl, err := loadPrompt(cfg.PromptFile)
	if err != nil {
		return Result{}, err
	}
	llm, closeLLM, err := newTextGenerator(ctx, cfg)
	if err != nil {
		return Result{}, err
	}
	defer closeLLM()

	// adapters
	deps := usecase.Deps{
		Video: ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath),
		ASR:   whispercpp.New(cfg.WhisperBin, cfg.WhisperModel, cfg.Language),
		LLM:   llm,
		Fetch: ytdlp.New(cfg.YtDlpPath, ""),
	}
	uc := usecase.New(deps)

	jobID := hash(cfg.Source)
	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	cacheDir := filepath.Join(baseCache, "runs", jobID)
	logf("preparing workspace")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return Result{}, err
	}
	logf("cache: %s", cacheDir)

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOutDir := buildRunOutDir(outDir, cfg.Source, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return Result{}, err
	}
	logf("output run dir: %s", runOutDir)

	res, err := uc.Run(ctx, usecase.Input{
		Source:        cfg.Source,
		Remote:        ytdlp.IsURL(cfg.Source),
		Chunk:         cfg.Chunk,
		ASRWorkers:    cfg.ASRWorkers,
		Prompt:        tpl,
		PromptMin:     cfg.PromptMin,
		PromptMax:     cfg.PromptMax,
		Bounds:        cfg.bounds(),
		BurnSubtitles: cfg.BurnSubtitles,
		CacheDir:      cacheDir,
		OutDir:        runOutDir,
		Logf:          logf,
	})
	if err != nil {
		return Result{}, err
	}

	b, err := transcript.MarshalIndent(res.Manifest)
	if err != nil {
		return Result{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, ManifestFile)
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return Result{}, err
	}
	logf("manifest written (%d clips): %s", len(res.Manifest.Clips), manifestPath)
	return Result{RunDir: runOutDir, ManifestPath: manifestPath, Manifest: res.Manifest, Shorts: res.Shorts}, nil
}

// Select runs segment selection alone over a transcript JSON file and writes
// the validated shorts to outPath.
func Select(ctx context.Context, cfg Config, transcriptPath, outPath string) ([]types.Short, error) {
	tpl, err := loadPrompt(cfg.PromptFile)
	if err != nil {
		return nil, err
	}
	llm, closeLLM, err := newTextGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeLLM()

	ex := segments.NewExtractor(llm, segments.Options{
		Prompt:    tpl,
		PromptMin: cfg.PromptMin,
		PromptMax: cfg.PromptMax,
		Bounds:    cfg.bounds(),
		Logf:      cfg.logf(),
	})
	return ex.ExtractFile(ctx, transcriptPath, outPath)
}

func loadPrompt(path string) (*prompt.Template, error) {
	if path == "" {
		return prompt.Default(), nil
	}
	return prompt.LoadFile(path)
}

func newTextGenerator(ctx context.Context, cfg Config) (ports.TextGenerator, func(), error) {
	switch cfg.provider() {
	case ProviderOpenRouter:
		a := openrouter.New(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterBaseURL)
		cfg.logf()("llm: openrouter %s", a.Model())
		return a, func() {}, nil
	case ProviderGemini:
		a, err := gemini.New(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		cfg.logf()("llm: gemini %s", a.Model())
		return a, func() { _ = a.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

func buildRunOutDir(outRoot, source string, now time.Time) string {
	name := normalizePathSegment(sourceName(source))
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", source, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

// sourceName picks a human readable stem: the file name for local paths,
// the video id or last path element for URLs.
func sourceName(source string) string {
	if ytdlp.IsURL(source) {
		u, err := url.Parse(strings.TrimSpace(source))
		if err != nil {
			return ""
		}
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		if p := strings.Trim(u.Path, "/"); p != "" {
			return path.Base(p)
		}
		return u.Hostname()
	}
	return strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.Is(unicode.Mn, r), unicode.Is(unicode.Mc, r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.TextGenerator = (*gemini.Adapter)(nil)
var _ ports.TextGenerator = (*openrouter.Adapter)(nil)
var _ ports.Downloader = (*ytdlp.Adapter)(nil)
