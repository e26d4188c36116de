package segments

import (
	"errors"
	"fmt"

	"github.com/forPelevin/tamilshorts/internal/domain/transcript"
	"github.com/forPelevin/tamilshorts/internal/types"
)

// Bounds is the inclusive duration window, in seconds, a short must fit.
type Bounds struct {
	MinSeconds int
	MaxSeconds int
}

// DefaultBounds is the window enforced on model output. It is wider at the
// low end than the window the prompt asks for.
var DefaultBounds = Bounds{MinSeconds: 10, MaxSeconds: 180}

func (b Bounds) Validate() error {
	if b.MinSeconds < 0 || b.MaxSeconds <= 0 {
		return errors.New("duration bounds must be positive")
	}
	if b.MinSeconds > b.MaxSeconds {
		return fmt.Errorf("min duration %ds exceeds max %ds", b.MinSeconds, b.MaxSeconds)
	}
	return nil
}

func (b Bounds) contains(d int) bool { return d >= b.MinSeconds && d <= b.MaxSeconds }

// Candidate is a model suggestion whose times parsed cleanly.
type Candidate struct {
	StartTime   string
	EndTime     string
	Description string
	Start       int
	End         int
}

func (c Candidate) Duration() int { return c.End - c.Start }

// Skipped records why a candidate at Index was dropped.
type Skipped struct {
	Index  int
	Reason string
}

// Convert turns one untrusted array element into a Candidate. A non-nil
// error is the reason to skip the element; it never aborts a batch.
func Convert(v any) (Candidate, error) {
	item, ok := v.(map[string]any)
	if !ok || item == nil {
		return Candidate{}, fmt.Errorf("not an object (%T)", v)
	}
	st, err := stringField(item, "start_time")
	if err != nil {
		return Candidate{}, err
	}
	en, err := stringField(item, "end_time")
	if err != nil {
		return Candidate{}, err
	}
	start, err := transcript.ParseHMS(st)
	if err != nil {
		return Candidate{}, err
	}
	end, err := transcript.ParseHMS(en)
	if err != nil {
		return Candidate{}, err
	}
	desc := describe(item["description"])
	return Candidate{StartTime: st, EndTime: en, Description: desc, Start: start, End: end}, nil
}

// describe keeps a non-string description as its printed value.
func describe(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		return fmt.Sprint(d)
	}
}

func stringField(item map[string]any, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s is %T, want string", key, v)
	}
	return s, nil
}

// Select scans items in order, keeps candidates whose duration lies within
// b and numbers them 1..K in survival order.
func Select(items []any, b Bounds) ([]types.Short, []Skipped) {
	var (
		out     []types.Short
		skipped []Skipped
	)
	for i, item := range items {
		c, err := Convert(item)
		if err != nil {
			skipped = append(skipped, Skipped{Index: i, Reason: err.Error()})
			continue
		}
		if d := c.Duration(); !b.contains(d) {
			skipped = append(skipped, Skipped{Index: i, Reason: fmt.Sprintf("duration %ds outside %d-%ds", d, b.MinSeconds, b.MaxSeconds)})
			continue
		}
		out = append(out, types.Short{
			StartTime:   c.StartTime,
			EndTime:     c.EndTime,
			Description: c.Description,
			ShortNumber: len(out) + 1,
		})
	}
	return out, skipped
}
