package segments

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forPelevin/tamilshorts/internal/domain/prompt"
	"github.com/forPelevin/tamilshorts/internal/domain/transcript"
	"github.com/forPelevin/tamilshorts/internal/ports"
	"github.com/forPelevin/tamilshorts/internal/types"
)

type Options struct {
	Prompt *prompt.Template
	// PromptMin and PromptMax are the window stated to the model.
	PromptMin int
	PromptMax int
	// Bounds is the window enforced on the response.
	Bounds Bounds
	Logf   func(format string, args ...any)
}

type Extractor struct {
	gen  ports.TextGenerator
	opts Options
}

func NewExtractor(gen ports.TextGenerator, opts Options) *Extractor {
	if opts.Prompt == nil {
		opts.Prompt = prompt.Default()
	}
	if opts.PromptMin <= 0 {
		opts.PromptMin = prompt.DefaultMinSeconds
	}
	if opts.PromptMax <= 0 {
		opts.PromptMax = prompt.DefaultMaxSeconds
	}
	if opts.Bounds == (Bounds{}) {
		opts.Bounds = DefaultBounds
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}
	return &Extractor{gen: gen, opts: opts}
}

// Extract asks the model for shorts over a formatted transcript and
// validates the answer. When outPath is non-empty the result is written
// there; nothing is written on failure.
func (e *Extractor) Extract(ctx context.Context, transcriptText, outPath string) ([]types.Short, error) {
	p, err := e.opts.Prompt.Render(prompt.Data{
		MinSeconds: e.opts.PromptMin,
		MaxSeconds: e.opts.PromptMax,
		Transcript: transcriptText,
	})
	if err != nil {
		return nil, err
	}

	e.opts.Logf("requesting segments with prompt %q (%d bytes)", e.opts.Prompt.Name(), len(p))
	raw, err := e.gen.Generate(ctx, p)
	if err != nil {
		return nil, err
	}
	e.opts.Logf("model response preview: %s", truncate(raw, 300))

	items, err := ParseCandidates(raw)
	if err != nil {
		return nil, err
	}
	shorts, skipped := Select(items, e.opts.Bounds)
	for _, s := range skipped {
		e.opts.Logf("skipped candidate %d: %s", s.Index+1, s.Reason)
	}
	if len(shorts) == 0 {
		return nil, &NoValidSegmentsError{Candidates: len(items), Bounds: e.opts.Bounds}
	}
	e.opts.Logf("kept %d of %d candidates", len(shorts), len(items))

	if outPath != "" {
		if err := Save(outPath, shorts); err != nil {
			return nil, fmt.Errorf("save shorts: %w", err)
		}
	}
	return shorts, nil
}

// ExtractFile runs Extract over a persisted transcript artifact.
func (e *Extractor) ExtractFile(ctx context.Context, transcriptPath, outPath string) ([]types.Short, error) {
	lines, err := transcript.Load(transcriptPath)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, transcript.Format(lines), outPath)
}

// Save writes shorts as indented JSON through a temp file so a failed write
// never leaves a partial artifact behind.
func Save(path string, shorts []types.Short) error {
	if len(shorts) == 0 {
		return errors.New("refusing to write empty shorts list")
	}
	b, err := transcript.MarshalIndent(shorts)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
