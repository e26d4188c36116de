//go:build integration

package itest

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// silentSample renders a short black 1280x720 clip with a silent audio track.
func silentSample(t *testing.T, seconds string) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "sample.mp4")
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi", "-i", "color=c=black:s=1280x720:d="+seconds,
		"-f", "lavfi", "-i", "anullsrc=r=16000:cl=mono",
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		out,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
	return out
}

func textFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "not-media.txt")
	if err := os.WriteFile(p, []byte("this is not a video\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}
