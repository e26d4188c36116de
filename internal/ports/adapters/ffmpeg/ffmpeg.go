package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inVideo, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inVideo,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, inVideo string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inVideo,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func (a *Adapter) ProbeDimensions(ctx context.Context, inVideo string) (int, int, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		inVideo,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe dimensions: %w\n%s", err, string(b))
	}
	return parseDimensions(string(b))
}

func parseDimensions(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	// some containers report one line per side-data entry
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("parse dimensions %q", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(ws))
	if err != nil {
		return 0, 0, fmt.Errorf("parse width %q: %w", ws, err)
	}
	h, err := strconv.Atoi(strings.TrimRight(strings.TrimSpace(hs), "x"))
	if err != nil {
		return 0, 0, fmt.Errorf("parse height %q: %w", hs, err)
	}
	return w, h, nil
}

// RenderVertical cuts [start, end) from inVideo and renders a 1080x1920
// short, optionally burning in an ASS subtitle file.
func (a *Adapter) RenderVertical(ctx context.Context, inVideo string, start, end time.Duration, outMP4 string, burnASS string) error {
	w, h, err := a.ProbeDimensions(ctx, inVideo)
	if err != nil {
		return err
	}
	plan, err := PlanVertical(w, h, ShortWidth, ShortHeight)
	if err != nil {
		return errors.Wrap(err, "plan vertical crop")
	}
	args := renderArgs(inVideo, start, end, outMP4, burnASS, plan)

	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "ffmpeg render clip %s\n%s", outMP4, string(b))
	}
	return nil
}

func renderArgs(inVideo string, start, end time.Duration, outMP4, burnASS string, plan VerticalPlan) []string {
	in := ffmpeggo.Input(inVideo, ffmpeggo.KwArgs{
		"ss": fmtSeconds(start),
		"to": fmtSeconds(end),
	})
	v := in.Video().Filter("scale", ffmpeggo.Args{fmt.Sprintf("%d:%d", plan.ScaleW, plan.ScaleH)})
	if plan.CropW > 0 {
		// crop centers by default
		v = v.Filter("crop", ffmpeggo.Args{fmt.Sprintf("%d:%d", plan.CropW, plan.CropH)})
	}
	v = v.Filter("setsar", ffmpeggo.Args{"1"})
	if burnASS != "" {
		v = v.Filter("subtitles", ffmpeggo.Args{burnASS})
	}
	out := ffmpeggo.Output([]*ffmpeggo.Stream{v, in.Audio()}, outMP4, ffmpeggo.KwArgs{
		"c:v":      "libx264",
		"preset":   "veryfast",
		"crf":      "18",
		"r":        "30",
		"pix_fmt":  "yuv420p",
		"c:a":      "aac",
		"b:a":      "192k",
		"movflags": "+faststart",
	}).OverWriteOutput()
	return out.GetArgs()
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
