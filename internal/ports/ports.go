package ports

import (
	"context"
	"time"
)

// VideoTool covers the ffmpeg work of a run. RenderVertical produces a
// 1080x1920 H.264/AAC clip; burnASS is optional.
type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, inVideo, outWav string) error
	ProbeDuration(ctx context.Context, inVideo string) (time.Duration, error)
	RenderVertical(ctx context.Context, inVideo string, start, end time.Duration, outMP4 string, burnASS string) error
}

// ASR transcribes a single audio chunk and returns its text.
type ASR interface {
	Transcribe(ctx context.Context, wavPath, outPrefix string) (string, error)
}

// TextGenerator sends a free-text instruction to a hosted model and returns
// the raw response text. No structure is guaranteed.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Downloader fetches a remote video into a local mp4 file.
type Downloader interface {
	Download(ctx context.Context, url, outMP4 string) error
}
