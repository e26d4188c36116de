package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const DefaultLanguage = "ta"

type Adapter struct {
	bin      string
	model    string
	language string
}

func New(binPath, modelPath, language string) *Adapter {
	if language == "" {
		language = DefaultLanguage
	}
	return &Adapter{bin: binPath, model: modelPath, language: language}
}

// result mirrors the parts of whisper.cpp's -oj output we read.
type result struct {
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe runs whisper.cpp over one WAV file and returns its text.
// Intermediate JSON is written to outPrefix + ".json".
func (a *Adapter) Transcribe(ctx context.Context, wavPath, outPrefix string) (string, error) {
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-l", a.language,
		"-nt",
		"-np",
		"-oj",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return "", err
	}
	return parseResult(jb)
}

func parseResult(b []byte) (string, error) {
	var r result
	if err := json.Unmarshal(b, &r); err != nil {
		return "", fmt.Errorf("decode whisper.cpp output: %w", err)
	}
	parts := make([]string, 0, len(r.Transcription))
	for _, s := range r.Transcription {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}
