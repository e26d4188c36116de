package ytdlp

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const DefaultFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/mp4"

type Adapter struct {
	bin    string
	format string
}

func New(binPath, format string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	if format == "" {
		format = DefaultFormat
	}
	return &Adapter{bin: binPath, format: format}
}

// IsURL reports whether s looks like a remote video link rather than a local path.
func IsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Download fetches rawURL into outMP4. The file appears at outMP4 only after
// yt-dlp has finished merging streams.
func (a *Adapter) Download(ctx context.Context, rawURL, outMP4 string) error {
	if !IsURL(rawURL) {
		return fmt.Errorf("yt-dlp: not a http(s) URL: %q", rawURL)
	}
	if err := os.MkdirAll(filepath.Dir(outMP4), 0o755); err != nil {
		return err
	}
	tmpl, tmp := partialPaths(outMP4)
	cmd := exec.CommandContext(ctx, a.bin, a.args(rawURL, tmpl)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("yt-dlp failed: %w\n%s", err, tail(string(b), 2000))
	}
	if _, err := os.Stat(tmp); err != nil {
		return fmt.Errorf("yt-dlp finished without producing %s: %w", filepath.Base(tmp), err)
	}
	return os.Rename(tmp, outMP4)
}

func (a *Adapter) args(rawURL, outTemplate string) []string {
	return []string{
		"-f", a.format,
		"--merge-output-format", "mp4",
		"--no-playlist",
		"--no-progress",
		"-o", outTemplate,
		rawURL,
	}
}

// partialPaths returns the yt-dlp output template and the file it resolves
// to once streams are merged into mp4.
func partialPaths(outMP4 string) (string, string) {
	base := strings.TrimSuffix(outMP4, filepath.Ext(outMP4)) + ".download"
	return base + ".%(ext)s", base + ".mp4"
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
