package usecase

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forPelevin/tamilshorts/internal/domain/segments"
	"github.com/forPelevin/tamilshorts/internal/domain/transcript"
	"github.com/forPelevin/tamilshorts/internal/types"
)

const threeShorts = "```json\n[\n" +
	`{"start_time":"00:00:00","end_time":"00:00:12","description":"opening"},` + "\n" +
	`{"start_time":"00:00:02","end_time":"00:00:05","description":"too short"},` + "\n" +
	`{"start_time":"00:00:04","end_time":"00:00:20","description":"past the end"},` + "\n" +
	`{"start_time":"00:00:19","end_time":"00:00:40","description":"after the end"},` + "\n" +
	"]\n```"

func loadShorts(path string) ([]types.Short, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var shorts []types.Short
	err = json.Unmarshal(b, &shorts)
	return shorts, err
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	video := &fakeVideoTool{seconds: 5, duration: 15 * time.Second}
	asr := &fakeASR{}
	llm := &fakeLLM{resp: threeShorts}
	uc := New(Deps{Video: video, ASR: asr, LLM: llm})

	in := testInput(tmp)
	res, err := uc.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(res.Transcript) != 5 {
		t.Fatalf("expected 5 transcript lines, got %d", len(res.Transcript))
	}
	for i, ln := range res.Transcript {
		if want := transcript.FormatHMS(time.Duration(i) * time.Second); ln.StartTime != want {
			t.Fatalf("line %d start=%s, want %s", i, ln.StartTime, want)
		}
		if !strings.HasPrefix(ln.Text, "chunk_") {
			t.Fatalf("line %d text=%q", i, ln.Text)
		}
	}

	if !strings.Contains(llm.prompt, "[00:00:00 - 00:00:01] chunk_00000") {
		t.Fatalf("prompt is missing formatted transcript:\n%s", llm.prompt)
	}

	// "too short" fails the filter; survivors are numbered 1..3.
	if len(res.Shorts) != 3 {
		t.Fatalf("expected 3 shorts, got %+v", res.Shorts)
	}
	// short 3 starts after the 15s source and is not rendered.
	if len(res.Manifest.Clips) != 2 {
		t.Fatalf("expected 2 clips, got %+v", res.Manifest.Clips)
	}
	c1, c2 := res.Manifest.Clips[0], res.Manifest.Clips[1]
	if c1.File != "clips/short_1.mp4" || c2.File != "clips/short_2.mp4" {
		t.Fatalf("unexpected clip files: %s %s", c1.File, c2.File)
	}
	if c2.EndSec != 15 {
		t.Fatalf("expected clamped end 15s, got %v", c2.EndSec)
	}
	if video.renders[1].end != 15*time.Second {
		t.Fatalf("render end not clamped: %s", video.renders[1].end)
	}
	if res.Manifest.Transcript != TranscriptFile || res.Manifest.Shorts != ShortsFile {
		t.Fatalf("unexpected manifest artifacts: %+v", res.Manifest)
	}

	saved, err := loadShorts(filepath.Join(in.OutDir, ShortsFile))
	if err != nil {
		t.Fatalf("load shorts: %v", err)
	}
	if len(saved) != 3 || saved[2].ShortNumber != 3 {
		t.Fatalf("unexpected saved shorts: %+v", saved)
	}
	if _, err := transcript.Load(filepath.Join(in.OutDir, TranscriptFile)); err != nil {
		t.Fatalf("load transcript: %v", err)
	}
}

func TestRun_BurnSubtitlesToggle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		burnSubtitles bool
	}{
		{name: "disabled", burnSubtitles: false},
		{name: "enabled", burnSubtitles: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tmp := t.TempDir()
			video := &fakeVideoTool{seconds: 12, duration: time.Minute}
			uc := New(Deps{
				Video: video,
				ASR:   &fakeASR{},
				LLM:   &fakeLLM{resp: `[{"start_time":"00:00:00","end_time":"00:00:11","description":"d"}]`},
			})
			in := testInput(tmp)
			in.BurnSubtitles = tc.burnSubtitles

			res, err := uc.Run(context.Background(), in)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if len(video.renders) != 1 {
				t.Fatalf("expected 1 rendered clip, got %d", len(video.renders))
			}

			subtitlesPath := filepath.Join(in.OutDir, "subtitles", "short_1.ass")
			manifestSubtitles := res.Manifest.Clips[0].Subtitles
			if tc.burnSubtitles {
				if video.renders[0].burnASS != subtitlesPath {
					t.Fatalf("unexpected burnASS path: %q", video.renders[0].burnASS)
				}
				if manifestSubtitles != "subtitles/short_1.ass" {
					t.Fatalf("unexpected manifest subtitles path: %q", manifestSubtitles)
				}
				b, err := os.ReadFile(subtitlesPath)
				if err != nil {
					t.Fatalf("read subtitles: %v", err)
				}
				if !strings.Contains(string(b), "Dialogue: ") {
					t.Fatalf("expected dialogue events in generated subtitles")
				}
				return
			}

			if video.renders[0].burnASS != "" {
				t.Fatalf("expected empty burnASS path, got %q", video.renders[0].burnASS)
			}
			if manifestSubtitles != "" {
				t.Fatalf("expected empty manifest subtitles path, got %q", manifestSubtitles)
			}
			if _, err := os.Stat(subtitlesPath); !os.IsNotExist(err) {
				t.Fatalf("expected no subtitle file, stat err=%v", err)
			}
		})
	}
}

func TestRun_NoValidSegmentsStopsBeforeRender(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	video := &fakeVideoTool{seconds: 3, duration: time.Minute}
	uc := New(Deps{
		Video: video,
		ASR:   &fakeASR{},
		LLM:   &fakeLLM{resp: `[{"start_time":"00:00:00","end_time":"00:00:05"}]`},
	})
	in := testInput(tmp)
	_, err := uc.Run(context.Background(), in)

	var nv *segments.NoValidSegmentsError
	if !errors.As(err, &nv) {
		t.Fatalf("expected NoValidSegmentsError, got %v", err)
	}
	if len(video.renders) != 0 {
		t.Fatalf("expected no renders, got %d", len(video.renders))
	}
	if _, err := os.Stat(filepath.Join(in.OutDir, ShortsFile)); !os.IsNotExist(err) {
		t.Fatalf("expected no shorts file, stat err=%v", err)
	}
}

func TestRun_ASRFailureIsReported(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	llm := &fakeLLM{resp: "[]"}
	uc := New(Deps{
		Video: &fakeVideoTool{seconds: 6, duration: time.Minute},
		ASR:   &fakeASR{failAt: 3},
		LLM:   llm,
	})
	_, err := uc.Run(context.Background(), testInput(tmp))
	if err == nil || !strings.Contains(err.Error(), "transcribe chunk 3") {
		t.Fatalf("expected chunk 3 failure, got %v", err)
	}
	if llm.prompt != "" {
		t.Fatalf("model must not be called after ASR failure")
	}
}

func TestRun_RemoteSourceDownloadsOnce(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	fetch := &fakeDownloader{}
	video := &fakeVideoTool{seconds: 12, duration: time.Minute}
	uc := New(Deps{
		Video: video,
		ASR:   &fakeASR{},
		LLM:   &fakeLLM{resp: `[{"start_time":"00:00:00","end_time":"00:00:11"}]`},
		Fetch: fetch,
	})
	in := testInput(tmp)
	in.Source = "https://youtu.be/abc"
	in.Remote = true

	res, err := uc.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Manifest.SourceURL != in.Source {
		t.Fatalf("source url=%q", res.Manifest.SourceURL)
	}
	if want := filepath.Join(in.CacheDir, "source.mp4"); res.Manifest.Input != want || video.extractedFrom != want {
		t.Fatalf("expected downloaded file as input, got %q / %q", res.Manifest.Input, video.extractedFrom)
	}

	in.OutDir = filepath.Join(tmp, "out2")
	if err := os.MkdirAll(in.OutDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := uc.Run(context.Background(), in); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if fetch.calls != 1 {
		t.Fatalf("expected cached download reuse, got %d downloads", fetch.calls)
	}
}

func TestRun_RemoteSourceWithoutDownloader(t *testing.T) {
	t.Parallel()

	in := testInput(t.TempDir())
	in.Remote = true
	uc := New(Deps{Video: &fakeVideoTool{}, ASR: &fakeASR{}, LLM: &fakeLLM{}})
	if _, err := uc.Run(context.Background(), in); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTranscribe_KeepsChunkOrder(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	uc := New(Deps{
		Video: &fakeVideoTool{seconds: 20, duration: time.Minute},
		ASR:   &fakeASR{slowEven: true},
		LLM:   &fakeLLM{resp: `[{"start_time":"00:00:00","end_time":"00:00:11"}]`},
	})
	in := testInput(tmp)
	in.ASRWorkers = 4
	res, err := uc.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, ln := range res.Transcript {
		if want := fmt.Sprintf("chunk_%05d", i); ln.Text != want {
			t.Fatalf("line %d text=%q, want %q", i, ln.Text, want)
		}
	}
}

func testInput(tmp string) Input {
	out := filepath.Join(tmp, "out")
	if err := os.MkdirAll(out, 0o755); err != nil {
		panic(err)
	}
	cache := filepath.Join(tmp, "cache")
	if err := os.MkdirAll(cache, 0o755); err != nil {
		panic(err)
	}
	return Input{
		Source:   filepath.Join(tmp, "in.mp4"),
		Chunk:    time.Second,
		CacheDir: cache,
		OutDir:   out,
	}
}

type render struct {
	start, end time.Duration
	out        string
	burnASS    string
}

// fakeVideoTool writes a silent 16 kHz mono WAV of the given length instead
// of decoding video.
type fakeVideoTool struct {
	seconds  int
	duration time.Duration

	mu            sync.Mutex
	extractedFrom string
	renders       []render
}

func (f *fakeVideoTool) ExtractAudioMono16k(_ context.Context, in, outWav string) error {
	f.extractedFrom = in
	return writeSilence(outWav, f.seconds*16000)
}

func (f *fakeVideoTool) ProbeDuration(_ context.Context, _ string) (time.Duration, error) {
	return f.duration, nil
}

func (f *fakeVideoTool) RenderVertical(_ context.Context, _ string, start, end time.Duration, out, burnASS string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders = append(f.renders, render{start: start, end: end, out: out, burnASS: burnASS})
	return os.WriteFile(out, []byte("mp4"), 0o644)
}

type fakeASR struct {
	failAt   int
	slowEven bool
}

func (f *fakeASR) Transcribe(ctx context.Context, wavPath, _ string) (string, error) {
	name := strings.TrimSuffix(filepath.Base(wavPath), ".wav")
	if f.failAt > 0 && name == fmt.Sprintf("chunk_%05d", f.failAt) {
		return "", errors.New("whisper crashed")
	}
	if f.slowEven && strings.ContainsAny(name[len(name)-1:], "02468") {
		select {
		case <-time.After(5 * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return " " + name + " ", nil
}

type fakeLLM struct {
	resp   string
	prompt string
}

func (f *fakeLLM) Generate(_ context.Context, p string) (string, error) {
	f.prompt = p
	return f.resp, nil
}

type fakeDownloader struct{ calls int }

func (f *fakeDownloader) Download(_ context.Context, _, out string) error {
	f.calls++
	return os.WriteFile(out, []byte("video"), 0o644)
}

// writeSilence writes a canonical 44-byte-header PCM WAV.
func writeSilence(path string, samples int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dataLen := uint32(samples * 2)
	hdr := []any{
		[]byte("RIFF"), 36 + dataLen, []byte("WAVE"),
		[]byte("fmt "), uint32(16), uint16(1), uint16(1), uint32(16000), uint32(32000), uint16(2), uint16(16),
		[]byte("data"), dataLen,
	}
	for _, v := range hdr {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	_, err = f.Write(make([]byte, dataLen))
	return err
}
