package subtitles

import (
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/tamilshorts/internal/domain/transcript"
	"github.com/forPelevin/tamilshorts/internal/types"
)

func tl(start, end, text string) types.TranscriptLine {
	return types.TranscriptLine{StartTime: start, EndTime: end, Text: text}
}

func dialogues(ass string) []string {
	var out []string
	for _, l := range strings.Split(ass, "\n") {
		if strings.HasPrefix(l, "Dialogue: ") {
			out = append(out, l)
		}
	}
	return out
}

func TestRenderASS_ClipRelativeAndMerged(t *testing.T) {
	lines := []types.TranscriptLine{
		tl("00:00:09", "00:00:10", "முன்"),
		tl("00:00:10", "00:00:11", "வணக்கம்"),
		tl("00:00:11", "00:00:12", "நண்பர்களே"),
		tl("00:00:12", "00:00:13", ""),
		tl("00:00:13", "00:00:14", "இன்று"),
		tl("00:00:20", "00:00:21", "பின்"),
	}
	ass, n := RenderASS(lines, 10*time.Second, 15*time.Second)
	if n != 2 {
		t.Fatalf("expected 2 events, got %d:\n%s", n, ass)
	}
	d := dialogues(ass)
	if len(d) != 2 {
		t.Fatalf("dialogues=%v", d)
	}
	if !strings.HasPrefix(d[0], "Dialogue: 0,0:00:00.00,0:00:02.00,Short,") || !strings.HasSuffix(d[0], "வணக்கம் நண்பர்களே") {
		t.Fatalf("unexpected first event: %q", d[0])
	}
	if !strings.HasPrefix(d[1], "Dialogue: 0,0:00:03.00,0:00:04.00,") || !strings.HasSuffix(d[1], "இன்று") {
		t.Fatalf("unexpected second event: %q", d[1])
	}
	if !strings.Contains(ass, "PlayResX: 1080") || !strings.Contains(ass, "PlayResY: 1920") {
		t.Fatalf("expected vertical play resolution:\n%s", ass)
	}
}

func TestRenderASS_SplitsLongRuns(t *testing.T) {
	var lines []types.TranscriptLine
	for i := 0; i < 6; i++ {
		s := time.Duration(i) * time.Second
		lines = append(lines, types.TranscriptLine{
			StartTime: transcript.FormatHMS(s),
			EndTime:   transcript.FormatHMS(s + time.Second),
			Text:      "word",
		})
	}
	_, n := RenderASS(lines, 0, 6*time.Second)
	if n != 2 {
		t.Fatalf("expected 3s cues to give 2 events, got %d", n)
	}
}

func TestRenderASS_NothingInRange(t *testing.T) {
	lines := []types.TranscriptLine{tl("00:00:01", "00:00:02", "x"), tl("bad", "00:00:40", "y")}
	ass, n := RenderASS(lines, 30*time.Second, 60*time.Second)
	if n != 0 || ass != "" {
		t.Fatalf("expected no events, got %d:\n%s", n, ass)
	}
}

func TestRenderASS_ZeroLengthLineGetsOneSecond(t *testing.T) {
	ass, n := RenderASS([]types.TranscriptLine{tl("00:00:02", "00:00:02", "tail")}, 0, 10*time.Second)
	if n != 1 || !strings.Contains(ass, "0:00:02.00,0:00:03.00") {
		t.Fatalf("unexpected output %d:\n%s", n, ass)
	}
}

func TestSanitizeASS(t *testing.T) {
	got := sanitizeASS(" {\\b1}hi\nthere ")
	if got != `(\\b1)hi there` {
		t.Fatalf("got %q", got)
	}
}

func TestAssTime_Format(t *testing.T) {
	got := assTime(61*time.Second + 234*time.Millisecond)
	if got != "0:01:01.23" {
		t.Fatalf("unexpected assTime: %s", got)
	}
}
