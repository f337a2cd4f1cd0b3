// Package prompts holds the model prompt templates for lecture generation and
// video analysis. The embedded prompts.yaml can be replaced at runtime with
// PROMPTS_FILE.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const promptsFileEnv = "PROMPTS_FILE"

//go:embed prompts.yaml
var promptsFS embed.FS

type yamlPrompts struct {
	Version  int    `yaml:"version"`
	Lecture  string `yaml:"lecture"`
	Analysis string `yaml:"analysis"`
}

type Set struct {
	lecture  *template.Template
	analysis *template.Template
}

type LectureInput struct {
	Text              string
	Language          string
	MaxNarrationWords int
}

type AnalysisInput struct {
	InteractionPoints int
}

// Load reads PROMPTS_FILE when set, the embedded defaults otherwise.
func Load() (*Set, error) {
	data, err := read()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// MustDefault parses the embedded prompts. It panics only if the embedded
// file is broken.
func MustDefault() *Set {
	data, err := promptsFS.ReadFile("prompts.yaml")
	if err != nil {
		panic(err)
	}
	s, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return s
}

func Parse(data []byte) (*Set, error) {
	var raw yamlPrompts
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("prompts: %w", err)
	}
	if strings.TrimSpace(raw.Lecture) == "" {
		return nil, errors.New("prompts: lecture prompt is required")
	}
	if strings.TrimSpace(raw.Analysis) == "" {
		return nil, errors.New("prompts: analysis prompt is required")
	}
	lt, err := template.New("lecture").Option("missingkey=error").Parse(raw.Lecture)
	if err != nil {
		return nil, fmt.Errorf("prompts: lecture: %w", err)
	}
	at, err := template.New("analysis").Option("missingkey=error").Parse(raw.Analysis)
	if err != nil {
		return nil, fmt.Errorf("prompts: analysis: %w", err)
	}
	return &Set{lecture: lt, analysis: at}, nil
}

func (s *Set) Lecture(in LectureInput) (string, error) {
	if in.Language == "" {
		in.Language = "English"
	}
	if in.MaxNarrationWords <= 0 {
		in.MaxNarrationWords = 900
	}
	return execute(s.lecture, in)
}

func (s *Set) Analysis(in AnalysisInput) (string, error) {
	if in.InteractionPoints <= 0 {
		in.InteractionPoints = 3
	}
	return execute(s.analysis, in)
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompts: render %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func read() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(promptsFileEnv)); path != "" {
		return os.ReadFile(path)
	}
	return promptsFS.ReadFile("prompts.yaml")
}
