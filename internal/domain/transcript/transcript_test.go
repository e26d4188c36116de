package transcript

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/tamilshorts/internal/types"
)

func TestFormat_PreservesOrderAndShape(t *testing.T) {
	lines := []types.TranscriptLine{
		{StartTime: "00:00:00", EndTime: "00:00:01", Text: "வணக்கம்"},
		{StartTime: "00:00:01", EndTime: "00:00:02", Text: ""},
		{StartTime: "00:00:02", EndTime: "00:00:03", Text: "நன்றி"},
		{StartTime: "00:00:02", EndTime: "00:00:03", Text: "நன்றி"},
	}
	got := Format(lines)
	rows := strings.Split(got, "\n")
	if len(rows) != len(lines) {
		t.Fatalf("expected %d rows, got %d:\n%s", len(lines), len(rows), got)
	}
	shape := regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2} - \d{2}:\d{2}:\d{2}\] `)
	for i, r := range rows {
		if !shape.MatchString(r) {
			t.Fatalf("row %d has unexpected shape: %q", i, r)
		}
		want := "[" + lines[i].StartTime + " - " + lines[i].EndTime + "] " + lines[i].Text
		if r != want {
			t.Fatalf("row %d = %q, want %q", i, r, want)
		}
	}
}

func TestFormat_Empty(t *testing.T) {
	if got := Format(nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestParseHMS(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00:00", 0, false},
		{"00:01:05", 65, false},
		{"1:02:03", 3723, false},
		{" 00:00:10 ", 10, false},
		{"00:90:00", 5400, false},
		{"01:00", 0, true},
		{"00:00:0a", 0, true},
		{"00:00:1.5", 0, true},
		{"00:-1:00", 0, true},
		{"", 0, true},
		{"00:00:00:00", 0, true},
		{"1000000:00:00", 3600000000, false},
		{"1000001:00:00", 0, true},
		{"5124095576030431:00:20", 0, true},
		{"00:00:99999999999", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHMS(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseHMS(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatHMS(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{1500 * time.Millisecond, "00:00:01"},
		{61 * time.Second, "00:01:01"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "02:03:04"},
		{-time.Second, "00:00:00"},
	}
	for _, tt := range tests {
		if got := FormatHMS(tt.in); got != tt.want {
			t.Fatalf("FormatHMS(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSaveLoad_KeepsTamilLiteral(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	lines := []types.TranscriptLine{{StartTime: "00:00:00", EndTime: "00:00:01", Text: "அன்பு <3"}}
	if err := Save(path, lines); err != nil {
		t.Fatalf("save: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "அன்பு <3") {
		t.Fatalf("expected literal text in artifact, got:\n%s", b)
	}
	if !strings.Contains(string(b), "\n  {") {
		t.Fatalf("expected indented artifact, got:\n%s", b)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0] != lines[0] {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}
