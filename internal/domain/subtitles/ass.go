package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/tamilshorts/internal/domain/transcript"
	"github.com/forPelevin/tamilshorts/internal/types"
)

const (
	charBudget = 42
	maxCueSpan = 3 * time.Second
)

type cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// RenderASS builds a 1080x1920 ASS document for the clip [start, end) from
// transcript lines. Event times are relative to the clip start. The second
// return value is the number of dialogue events; zero means there is nothing
// worth burning in.
func RenderASS(lines []types.TranscriptLine, start, end time.Duration) (string, int) {
	cues := packCues(collectCues(lines, start, end))
	if len(cues) == 0 {
		return "", 0
	}
	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range cues {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(c.Start))
		b.WriteString(",")
		b.WriteString(assTime(c.End))
		b.WriteString(",Short,,0,0,0,,")
		b.WriteString(c.Text)
		b.WriteString("\n")
	}
	return b.String(), len(cues)
}

// collectCues keeps non-empty lines overlapping the clip. Lines whose
// timestamps do not parse are dropped.
func collectCues(lines []types.TranscriptLine, start, end time.Duration) []cue {
	var out []cue
	for _, ln := range lines {
		text := sanitizeASS(ln.Text)
		if text == "" {
			continue
		}
		ss, err := transcript.ParseHMS(ln.StartTime)
		if err != nil {
			continue
		}
		es, err := transcript.ParseHMS(ln.EndTime)
		if err != nil {
			continue
		}
		ls := time.Duration(ss) * time.Second
		le := time.Duration(es) * time.Second
		// whole-second stamps collapse short chunks to zero length
		if le <= ls {
			le = ls + time.Second
		}
		if le <= start || ls >= end {
			continue
		}
		if ls < start {
			ls = start
		}
		if le > end {
			le = end
		}
		out = append(out, cue{Start: ls - start, End: le - start, Text: text})
	}
	return out
}

// packCues merges adjacent cues while the result stays readable on a
// vertical frame.
func packCues(cues []cue) []cue {
	var out []cue
	for _, c := range cues {
		if n := len(out); n > 0 {
			last := &out[n-1]
			merged := last.Text + " " + c.Text
			if c.Start <= last.End && c.End-last.Start <= maxCueSpan && len([]rune(merged)) <= charBudget {
				last.Text = merged
				if c.End > last.End {
					last.End = c.End
				}
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1080
PlayResY: 1920
WrapStyle: 0
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Short, Noto Sans Tamil, 72, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,6,2,2, 70,70,320,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
