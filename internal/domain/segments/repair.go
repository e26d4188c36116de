package segments

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceRE         = regexp.MustCompile("(?i)```(?:json)?")
	trailingCommaRE = regexp.MustCompile(`(?:,\s*)+([\]}])`)
)

// StripFences removes markdown code-fence markers, including ```json.
func StripFences(s string) string {
	return fenceRE.ReplaceAllString(s, "")
}

// RemoveTrailingCommas drops commas that directly precede a closing ] or }.
// Runs of commas are removed together, so applying it twice is a no-op.
func RemoveTrailingCommas(s string) string {
	return trailingCommaRE.ReplaceAllString(s, "$1")
}

// Repair strips fences, drops trailing commas and trims whitespace, in that order.
func Repair(s string) string {
	return strings.TrimSpace(RemoveTrailingCommas(StripFences(s)))
}

// ParseCandidates decodes a model response into loosely typed array
// elements. It tries the repaired text as a whole first and then the first
// embedded array that holds at least one object. Elements are not checked
// here; Convert decides per element. Failure of both is a
// *GenerationParseError.
func ParseCandidates(raw string) ([]any, error) {
	cleaned := Repair(raw)
	items, err := decodeArray(cleaned)
	if err == nil {
		return items, nil
	}

	items, ok := firstEmbeddedArray(cleaned)
	if !ok {
		return nil, &GenerationParseError{Reason: "no JSON array found", Preview: truncate(cleaned, 200)}
	}
	return items, nil
}

func decodeArray(s string) ([]any, error) {
	var items []any
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, err
	}
	if items == nil {
		return nil, errNotArray
	}
	return items, nil
}

// firstEmbeddedArray decodes the first JSON array starting at some '[' in s
// that contains an object. Text after the array is ignored.
func firstEmbeddedArray(s string) ([]any, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '[' {
			continue
		}
		var items []any
		if err := json.NewDecoder(strings.NewReader(s[i:])).Decode(&items); err != nil {
			continue
		}
		if hasObject(items) {
			return items, true
		}
	}
	return nil, false
}

func hasObject(items []any) bool {
	for _, it := range items {
		if _, ok := it.(map[string]any); ok {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
