package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]any{
		"api_key", "sk-123",
		"module_id", "mod_1",
		"instructor_id", "inst_42",
		"dangling",
	})
	if len(out) != 7 {
		t.Fatalf("len: want=7 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("api_key: want=[REDACTED] got=%v", out[1])
	}
	if out[3] != "mod_1" {
		t.Fatalf("module_id: want=mod_1 got=%v", out[3])
	}
	hashed, _ := out[5].(string)
	if !strings.HasPrefix(hashed, "hash:") || strings.Contains(hashed, "inst_42") {
		t.Fatalf("instructor_id: want hashed value got=%v", out[5])
	}
	if out[6] != "dangling" {
		t.Fatalf("odd trailing key: want kept got=%v", out[6])
	}
}

func TestSanitizeNestedMap(t *testing.T) {
	v := sanitizeValue("payload", map[string]any{"secret": "x", "stage": "Rendering"})
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("want map got=%T", v)
	}
	if m["secret"] != "[REDACTED]" || m["stage"] != "Rendering" {
		t.Fatalf("nested sanitize: got=%v", m)
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"development", "production", "test"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.With("service", "x").Debug("hello", "k", "v")
	}
}

func TestScrubSignedURLs(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://storage.googleapis.com/b/courses/c1/v.mp4?X-Goog-Signature=abc&X-Goog-Expires=900", "https://storage.googleapis.com/b/courses/c1/v.mp4?[REDACTED]"},
		{"https://generativelanguage.googleapis.com/v1beta/files?key=AIza", "https://generativelanguage.googleapis.com/v1beta/files?[REDACTED]"},
		{"https://cdn.example/courses/c1/v.mp4?v=2", "https://cdn.example/courses/c1/v.mp4?v=2"},
		{"Rendering video...", "Rendering video..."},
	}
	for _, tc := range cases {
		if got := sanitizeValue("video_url", tc.in); got != tc.want {
			t.Fatalf("scrub %q: want=%q got=%q", tc.in, tc.want, got)
		}
	}
}

func TestLogLevelOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	l, err := New("development")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.SugaredLogger.Desugar().Core().Enabled(zapcore.WarnLevel) {
		t.Fatalf("LOG_LEVEL=error should disable warn")
	}

	t.Setenv("LOG_LEVEL", "loud")
	if _, err := New("development"); err == nil {
		t.Fatalf("bad LOG_LEVEL should fail")
	}
}
