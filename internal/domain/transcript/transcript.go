package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/tamilshorts/internal/types"
)

// Format renders lines as a prompt-ready block, one "[start - end] text" line
// per input line, in input order.
func Format(lines []types.TranscriptLine) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("[")
		b.WriteString(l.StartTime)
		b.WriteString(" - ")
		b.WriteString(l.EndTime)
		b.WriteString("] ")
		b.WriteString(l.Text)
	}
	return b.String()
}

// FormatHMS renders d as zero-padded HH:MM:SS, truncating sub-second parts.
func FormatHMS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

var errHMSFields = errors.New("want HH:MM:SS")

// maxHMSField bounds each field so the total cannot overflow.
const maxHMSField = 1_000_000

// ParseHMS converts "HH:MM:SS" into whole seconds. Each field must be a
// non-negative integer; minutes and seconds are not range-checked.
func ParseHMS(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("parse time %q: %w", s, errHMSFields)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, fmt.Errorf("parse time %q: %w", s, err)
		}
		if v < 0 {
			return 0, fmt.Errorf("parse time %q: negative field", s)
		}
		if v > maxHMSField {
			return 0, fmt.Errorf("parse time %q: field %d out of range", s, v)
		}
		n[i] = v
	}
	return n[0]*3600 + n[1]*60 + n[2], nil
}

// Load reads a transcript artifact: a JSON array of start_time/end_time/text objects.
func Load(path string) ([]types.TranscriptLine, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []types.TranscriptLine
	if err := json.Unmarshal(b, &lines); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", path, err)
	}
	return lines, nil
}

// Save writes lines as indented JSON with non-ASCII text kept literal.
func Save(path string, lines []types.TranscriptLine) error {
	if lines == nil {
		lines = []types.TranscriptLine{}
	}
	b, err := MarshalIndent(lines)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// MarshalIndent encodes v the way every JSON artifact of a run is written.
func MarshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
