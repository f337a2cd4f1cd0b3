package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"
)

// maxSpeechChars stays under the endpoint's 4096 character input limit.
const maxSpeechChars = 4000

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// Synthesize writes narration for text to outPath. Long scripts are split on
// sentence boundaries and the returned mp3 segments appended in order. The
// voice is multilingual so language only appears in logs.
func (c *Client) Synthesize(ctx context.Context, text, language, outPath string) error {
	chunks := splitSpeech(text, maxSpeechChars)
	if len(chunks) == 0 {
		return fmt.Errorf("empty narration")
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	for i, chunk := range chunks {
		audio, err := c.do(ctx, http.MethodPost, "/v1/audio/speech", &speechRequest{
			Model:          c.cfg.TTSModel,
			Voice:          c.cfg.TTSVoice,
			Input:          chunk,
			ResponseFormat: c.cfg.TTSFormat,
		})
		if err != nil {
			_ = f.Close()
			_ = os.Remove(outPath)
			return fmt.Errorf("speech chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if _, err := f.Write(audio); err != nil {
			_ = f.Close()
			_ = os.Remove(outPath)
			return err
		}
	}
	c.log.Debug("narration synthesized", "chunks", len(chunks), "language", language, "voice", c.cfg.TTSVoice)
	return f.Close()
}

// splitSpeech breaks text into pieces of at most max runes, preferring sentence
// ends, then whitespace.
func splitSpeech(text string, max int) []string {
	text = strings.TrimSpace(text)
	var out []string
	for text != "" {
		if utf8.RuneCountInString(text) <= max {
			out = append(out, text)
			break
		}
		r := []rune(text)
		window := string(r[:max])
		cut := strings.LastIndexAny(window, ".!?\n")
		if cut < len(window)/2 {
			if ws := strings.LastIndexAny(window, " \t"); ws > 0 {
				cut = ws
			} else {
				cut = len(window) - 1
			}
		}
		out = append(out, strings.TrimSpace(window[:cut+1]))
		text = strings.TrimSpace(text[cut+1:])
	}
	return out
}
