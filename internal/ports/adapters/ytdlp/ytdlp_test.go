package ytdlp

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"
)

func TestIsURL(t *testing.T) {
	cases := map[string]bool{
		"https://www.youtube.com/watch?v=abc": true,
		"http://example.com/v.mp4":            true,
		" https://youtu.be/abc ":              true,
		"ftp://example.com/v.mp4":             false,
		"video.mp4":                           false,
		"/tmp/video.mp4":                      false,
		"https://":                            false,
		"":                                    false,
	}
	for in, want := range cases {
		if got := IsURL(in); got != want {
			t.Errorf("IsURL(%q)=%v, want %v", in, got, want)
		}
	}
}

func TestArgs(t *testing.T) {
	a := New("", "")
	args := a.args("https://youtu.be/abc", "/tmp/source.download.%(ext)s")
	if !slices.Contains(args, DefaultFormat) {
		t.Fatalf("missing default format: %v", args)
	}
	if args[len(args)-1] != "https://youtu.be/abc" {
		t.Fatalf("url must be last: %v", args)
	}
	if i := slices.Index(args, "-o"); i < 0 || args[i+1] != "/tmp/source.download.%(ext)s" {
		t.Fatalf("missing output template: %v", args)
	}
}

func TestPartialPaths(t *testing.T) {
	tmpl, tmp := partialPaths("/runs/x/source.mp4")
	if tmpl != "/runs/x/source.download.%(ext)s" || tmp != "/runs/x/source.download.mp4" {
		t.Fatalf("got %q %q", tmpl, tmp)
	}
}

func TestDownload_RejectsLocalPath(t *testing.T) {
	a := New("yt-dlp", "")
	if err := a.Download(context.Background(), "movie.mp4", filepath.Join(t.TempDir(), "out.mp4")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDownload_FailingBinaryLeavesNoOutput(t *testing.T) {
	falseBin, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}
	out := filepath.Join(t.TempDir(), "source.mp4")
	a := New(falseBin, "")
	if err := a.Download(context.Background(), "https://youtu.be/abc", out); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, stat err=%v", err)
	}
}
