package segments

import (
	"errors"
	"fmt"
)

var errNotArray = errors.New("not a JSON array")

// GenerationParseError means the model returned nothing that decodes as a
// JSON array of objects. Terminal for the run.
type GenerationParseError struct {
	Reason  string
	Preview string
}

func (e *GenerationParseError) Error() string {
	if e.Preview == "" {
		return "model returned no usable JSON array: " + e.Reason
	}
	return fmt.Sprintf("model returned no usable JSON array: %s (response starts %q)", e.Reason, e.Preview)
}

// NoValidSegmentsError means a JSON array was found but no candidate survived
// validation. Terminal for the run; nothing is persisted.
type NoValidSegmentsError struct {
	Candidates int
	Bounds     Bounds
}

func (e *NoValidSegmentsError) Error() string {
	return fmt.Sprintf("no valid shorts found among %d candidates (must be %d-%ds)",
		e.Candidates, e.Bounds.MinSeconds, e.Bounds.MaxSeconds)
}
