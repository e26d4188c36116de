package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forPelevin/tamilshorts/internal/audio"
	"github.com/forPelevin/tamilshorts/internal/domain/prompt"
	"github.com/forPelevin/tamilshorts/internal/domain/segments"
	"github.com/forPelevin/tamilshorts/internal/domain/subtitles"
	"github.com/forPelevin/tamilshorts/internal/domain/transcript"
	"github.com/forPelevin/tamilshorts/internal/ports"
	"github.com/forPelevin/tamilshorts/internal/types"
)

const (
	TranscriptFile = "transcript.json"
	ShortsFile     = "shorts.json"
)

type Deps struct {
	Video ports.VideoTool
	ASR   ports.ASR
	LLM   ports.TextGenerator
	Fetch ports.Downloader
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	// Source is a local video path, or a URL when Remote is set.
	Source string
	Remote bool

	Chunk      time.Duration
	ASRWorkers int

	Prompt    *prompt.Template
	PromptMin int
	PromptMax int
	Bounds    segments.Bounds

	BurnSubtitles bool
	CacheDir      string
	OutDir        string
	Logf          func(format string, args ...any)
}

type Result struct {
	Manifest   types.Manifest
	Transcript []types.TranscriptLine
	Shorts     []types.Short
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	logf := in.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if in.Chunk <= 0 {
		in.Chunk = time.Second
	}

	inputMP4, err := u.resolveSource(ctx, in, logf)
	if err != nil {
		return Result{}, err
	}

	logf("extracting audio")
	wav := filepath.Join(in.CacheDir, "audio.wav")
	if err := u.d.Video.ExtractAudioMono16k(ctx, inputMP4, wav); err != nil {
		return Result{}, err
	}

	chunks, err := audio.Split(wav, in.Chunk, filepath.Join(in.CacheDir, "chunks"))
	if err != nil {
		return Result{}, fmt.Errorf("split audio: %w", err)
	}
	logf("transcribing %d chunks of %s", len(chunks), in.Chunk)
	lines, err := u.transcribe(ctx, chunks, in.ASRWorkers, logf)
	if err != nil {
		return Result{}, err
	}
	transcriptPath := filepath.Join(in.OutDir, TranscriptFile)
	if err := transcript.Save(transcriptPath, lines); err != nil {
		return Result{}, fmt.Errorf("save transcript: %w", err)
	}
	logf("transcript written: %s", transcriptPath)

	ex := segments.NewExtractor(u.d.LLM, segments.Options{
		Prompt:    in.Prompt,
		PromptMin: in.PromptMin,
		PromptMax: in.PromptMax,
		Bounds:    in.Bounds,
		Logf:      logf,
	})
	shorts, err := ex.Extract(ctx, transcript.Format(lines), filepath.Join(in.OutDir, ShortsFile))
	if err != nil {
		return Result{}, err
	}

	m := types.Manifest{
		Input:      inputMP4,
		Transcript: TranscriptFile,
		Shorts:     ShortsFile,
	}
	if in.Remote {
		m.SourceURL = in.Source
	}
	clips, err := u.cut(ctx, inputMP4, shorts, lines, in, logf)
	if err != nil {
		return Result{}, err
	}
	m.Clips = clips

	return Result{Manifest: m, Transcript: lines, Shorts: shorts}, nil
}

func (u Usecase) resolveSource(ctx context.Context, in Input, logf func(string, ...any)) (string, error) {
	if !in.Remote {
		return in.Source, nil
	}
	if u.d.Fetch == nil {
		return "", errors.New("no downloader configured for remote source")
	}
	out := filepath.Join(in.CacheDir, "source.mp4")
	if st, err := os.Stat(out); err == nil && st.Size() > 0 {
		logf("reusing cached download: %s", out)
		return out, nil
	}
	logf("downloading %s", in.Source)
	if err := u.d.Fetch.Download(ctx, in.Source, out); err != nil {
		return "", err
	}
	return out, nil
}

// cut renders every short that starts inside the source. Ends past the
// source are clamped to its duration.
func (u Usecase) cut(
	ctx context.Context,
	inputMP4 string,
	shorts []types.Short,
	lines []types.TranscriptLine,
	in Input,
	logf func(string, ...any),
) ([]types.ManifestClip, error) {
	total, err := u.d.Video.ProbeDuration(ctx, inputMP4)
	if err != nil {
		return nil, err
	}
	clipsDir := filepath.Join(in.OutDir, "clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return nil, err
	}
	subsDir := filepath.Join(in.OutDir, "subtitles")
	if in.BurnSubtitles {
		if err := os.MkdirAll(subsDir, 0o755); err != nil {
			return nil, err
		}
	}

	out := make([]types.ManifestClip, 0, len(shorts))
	for _, s := range shorts {
		st, en, err := shortRange(s)
		if err != nil {
			return nil, err
		}
		if st >= total {
			logf("short %d skipped: starts at %s, video is %s", s.ShortNumber, s.StartTime, total.Round(time.Second))
			continue
		}
		if en > total {
			logf("short %d end clamped from %s to %s", s.ShortNumber, s.EndTime, total.Round(time.Millisecond))
			en = total
		}

		name := fmt.Sprintf("short_%d", s.ShortNumber)
		clipPath := filepath.Join(clipsDir, name+".mp4")
		burnASS := ""
		subsRel := ""
		if in.BurnSubtitles {
			ass, n := subtitles.RenderASS(lines, st, en)
			if n > 0 {
				burnASS = filepath.Join(subsDir, name+".ass")
				if err := os.WriteFile(burnASS, []byte(ass), 0o644); err != nil {
					return nil, err
				}
				subsRel = filepath.ToSlash(filepath.Join("subtitles", name+".ass"))
			} else {
				logf("short %d: no transcript text in range, rendering without subtitles", s.ShortNumber)
			}
		}

		logf("rendering short %d (%s - %s)", s.ShortNumber, s.StartTime, s.EndTime)
		if err := u.d.Video.RenderVertical(ctx, inputMP4, st, en, clipPath, burnASS); err != nil {
			return nil, err
		}
		out = append(out, types.ManifestClip{
			ShortNumber: s.ShortNumber,
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
			StartSec:    st.Seconds(),
			EndSec:      en.Seconds(),
			Description: s.Description,
			File:        filepath.ToSlash(filepath.Join("clips", name+".mp4")),
			Subtitles:   subsRel,
		})
	}
	logf("rendered %d of %d shorts", len(out), len(shorts))
	return out, nil
}

func shortRange(s types.Short) (time.Duration, time.Duration, error) {
	st, err := transcript.ParseHMS(s.StartTime)
	if err != nil {
		return 0, 0, fmt.Errorf("short %d start: %w", s.ShortNumber, err)
	}
	en, err := transcript.ParseHMS(s.EndTime)
	if err != nil {
		return 0, 0, fmt.Errorf("short %d end: %w", s.ShortNumber, err)
	}
	return time.Duration(st) * time.Second, time.Duration(en) * time.Second, nil
}
