package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	temp := 0.2
	c, err := NewClient(logger.Nop(), Config{
		APIKey:      "sk-test",
		BaseURL:     srv.URL,
		Model:       "test-model",
		Timeout:     5 * time.Second,
		MaxRetries:  2,
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func writeOutput(w http.ResponseWriter, text string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"output": []any{map[string]any{
			"type": "message",
			"role": "assistant",
			"content": []any{
				map[string]any{"type": "output_text", "text": text},
			},
		}},
	})
}

func TestGenerateStructuredRequest(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" || r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeOutput(w, `{"title":"x"}`)
	})

	out, err := c.Generate(context.Background(), "make a lecture", true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `{"title":"x"}` {
		t.Fatalf("output: got %q", out)
	}
	format, _ := got["text"].(map[string]any)["format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("format: want json_object got %v", got["text"])
	}
	input := got["input"].([]any)
	if len(input) != 2 || input[1].(map[string]any)["content"] != "make a lecture" {
		t.Fatalf("input: got %v", input)
	}
}

func TestGenerateRetriesThenSucceeds(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeOutput(w, "ok")
	})
	out, err := c.Generate(context.Background(), "p", false)
	if err != nil || out != "ok" {
		t.Fatalf("Generate: out=%q err=%v", out, err)
	}
	if calls != 2 {
		t.Fatalf("calls: want=2 got=%d", calls)
	}
}

func TestGenerateDropsRejectedTemperature(t *testing.T) {
	var withTemp, withoutTemp int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["temperature"]; ok {
			atomic.AddInt32(&withTemp, 1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Unsupported parameter: 'temperature'"}}`))
			return
		}
		atomic.AddInt32(&withoutTemp, 1)
		writeOutput(w, "ok")
	})
	for i := 0; i < 2; i++ {
		if _, err := c.Generate(context.Background(), "p", false); err != nil {
			t.Fatalf("Generate: %v", err)
		}
	}
	if withTemp != 1 || withoutTemp != 2 {
		t.Fatalf("temperature fallback: withTemp=%d withoutTemp=%d", withTemp, withoutTemp)
	}
}

func TestGenerateClientErrorNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	if _, err := c.Generate(context.Background(), "p", false); err == nil {
		t.Fatalf("want error")
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestSynthesizeAppendsChunks(t *testing.T) {
	var inputs []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		var body speechRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		inputs = append(inputs, body.Input)
		_, _ = w.Write([]byte("[" + body.Voice + "]"))
	})
	text := strings.Repeat("A sentence of narration. ", 400)
	out := filepath.Join(t.TempDir(), "narration.mp3")
	if err := c.Synthesize(context.Background(), text, "en", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(inputs) < 2 {
		t.Fatalf("want chunked requests got %d", len(inputs))
	}
	b, _ := os.ReadFile(out)
	if string(b) != strings.Repeat("[alloy]", len(inputs)) {
		t.Fatalf("audio: got %q", string(b))
	}
}

func TestSynthesizeFailureRemovesFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	out := filepath.Join(t.TempDir(), "narration.mp3")
	if err := c.Synthesize(context.Background(), "hello", "en", out); err == nil {
		t.Fatalf("want error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("partial audio should be removed, stat err=%v", err)
	}
}

func TestSplitSpeech(t *testing.T) {
	chunks := splitSpeech("One. Two three four. Five", 12)
	for _, c := range chunks {
		if len([]rune(c)) > 12 {
			t.Fatalf("chunk too long: %q", c)
		}
	}
	if strings.Join(chunks, " ") != "One. Two three four. Five" {
		t.Fatalf("chunks lost text: %q", chunks)
	}
	if got := splitSpeech("   ", 10); len(got) != 0 {
		t.Fatalf("blank: want none got %q", got)
	}
}
