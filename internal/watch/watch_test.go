package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/tamilshorts/internal/jobs"
)

func TestIsVideoFile(t *testing.T) {
	tests := map[string]bool{
		"talk.mp4":          true,
		"/inbox/TALK.MOV":   true,
		"clip.mkv":          true,
		"clip.webm":         true,
		"notes.txt":         false,
		".hidden.mp4":       false,
		"talk.mp4.part":     false,
		"talk.mp4.tmp":      false,
		"talk.download.tmp": false,
		"mp4":               false,
	}
	for in, want := range tests {
		if got := IsVideoFile(in); got != want {
			t.Errorf("IsVideoFile(%q)=%v, want %v", in, got, want)
		}
	}
}

type recordingSubmitter struct {
	mu      sync.Mutex
	sources []string
	got     chan string
}

func (r *recordingSubmitter) Submit(source string) (jobs.Job, error) {
	r.mu.Lock()
	r.sources = append(r.sources, source)
	r.mu.Unlock()
	r.got <- source
	return jobs.Job{ID: uuid.New(), Source: source, Status: jobs.StatusQueued}, nil
}

func TestWatcher_SubmitsStableVideos(t *testing.T) {
	dir := t.TempDir()
	sub := &recordingSubmitter{got: make(chan string, 4)}
	w, err := New(dir, sub, Options{
		Poll:      10 * time.Millisecond,
		StableFor: 30 * time.Millisecond,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	for _, name := range []string{"notes.txt", ".partial.mp4", "talk.mp4.part"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	video := filepath.Join(dir, "talk.mp4")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-sub.got:
		if got != video {
			t.Fatalf("submitted %q, want %q", got, video)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("video was not submitted")
	}

	// give ignored files a chance to show up
	time.Sleep(100 * time.Millisecond)
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if len(sub.sources) != 1 {
		t.Fatalf("expected exactly one submission, got %v", sub.sources)
	}
}

func TestWatcher_DropsVanishedFile(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, &recordingSubmitter{got: make(chan string, 1)}, Options{Poll: 5 * time.Millisecond, StableFor: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.fsw.Close()
	if err := w.waitStable(context.Background(), filepath.Join(dir, "gone.mp4")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
