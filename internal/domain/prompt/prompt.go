package prompt

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMinSeconds = 45
	DefaultMaxSeconds = 180
)

const defaultText = `You are given a Tamil video transcript split into 1-second chunks.

TASK:
Find potential Shorts (highlight segments) that are:
- Emotionally powerful
- Spiritually or philosophically deep
- Thematically strong

STRICT RULES:
1. Each segment must be at least {{.MinSeconds}} seconds and at most {{.MaxSeconds}} seconds long.
2. Do NOT return any segment outside that time range.
3. Merge nearby transcript lines into meaningful segments.
4. Do NOT include any segment where the speaker repeats the same phrase or idea without meaningful variation.
5. No markdown, no commentary, no timestamp quoting. Return pure JSON only.

JSON format (strict):
[
  {
    "start_time": "HH:MM:SS",
    "end_time": "HH:MM:SS",
    "description": "Why this clip is powerful (in 1-2 lines)."
  }
]

Transcription:
{{.Transcript}}
`

// Data is what a prompt template is executed with.
type Data struct {
	MinSeconds int
	MaxSeconds int
	Transcript string
}

// File is the YAML shape of a custom prompt template.
type File struct {
	Title  string `yaml:"title"`
	Role   string `yaml:"role"`
	Prompt string `yaml:"prompt"`
}

type Template struct {
	name string
	role string
	tpl  *template.Template
}

// Default returns the built-in Shorts selection instruction.
func Default() *Template {
	return &Template{
		name: "default",
		tpl:  template.Must(template.New("default").Option("missingkey=error").Parse(defaultText)),
	}
}

// Parse builds a template from raw text/template source.
func Parse(name, role, text string) (*Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("prompt %q: empty template", name)
	}
	tpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("prompt %q: %w", name, err)
	}
	return &Template{name: name, role: strings.TrimSpace(role), tpl: tpl}, nil
}

// LoadFile reads a YAML prompt file with title, role and prompt keys.
func LoadFile(path string) (*Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse prompt file %s: %w", path, err)
	}
	name := f.Title
	if name == "" {
		name = path
	}
	return Parse(name, f.Role, f.Prompt)
}

func (t *Template) Name() string { return t.name }

// Render executes the template. The transcript must already be formatted.
func (t *Template) Render(d Data) (string, error) {
	if d.MinSeconds <= 0 {
		d.MinSeconds = DefaultMinSeconds
	}
	if d.MaxSeconds <= 0 {
		d.MaxSeconds = DefaultMaxSeconds
	}
	var b bytes.Buffer
	if t.role != "" {
		b.WriteString(t.role)
		b.WriteString("\n\n")
	}
	if err := t.tpl.Execute(&b, d); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", t.name, err)
	}
	return b.String(), nil
}
