package edgetts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/coursemedia-backend/internal/platform/httpx"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

type Config struct {
	// Command is the edge-tts executable.
	Command string
	// Voice overrides the per-language default.
	Voice    string
	Attempts int
}

var defaultVoices = map[string]string{
	"en": "en-US-GuyNeural",
	"es": "es-ES-AlvaroNeural",
	"fr": "fr-FR-HenriNeural",
	"de": "de-DE-ConradNeural",
	"it": "it-IT-DiegoNeural",
	"pt": "pt-BR-AntonioNeural",
	"nl": "nl-NL-MaartenNeural",
	"hi": "hi-IN-MadhurNeural",
	"ja": "ja-JP-KeitaNeural",
	"zh": "zh-CN-YunxiNeural",
}

// Synthesizer narrates through the edge-tts command line tool.
type Synthesizer struct {
	log *logger.Logger
	cfg Config
}

func New(log *logger.Logger, cfg Config) *Synthesizer {
	if cfg.Command == "" {
		cfg.Command = "edge-tts"
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	return &Synthesizer{log: log.With("service", "EdgeTTS"), cfg: cfg}
}

func (s *Synthesizer) AssertReady() error {
	if _, err := exec.LookPath(s.cfg.Command); err != nil {
		return fmt.Errorf("%s not found: install with `pip install edge-tts`", s.cfg.Command)
	}
	return nil
}

// VoiceFor picks the configured voice or a default for the language's
// primary subtag, falling back to English.
func (s *Synthesizer) VoiceFor(language string) string {
	if s.cfg.Voice != "" {
		return s.cfg.Voice
	}
	lang := strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if v, ok := defaultVoices[lang]; ok {
		return v
	}
	return defaultVoices["en"]
}

// Synthesize passes the script through a file so long narrations stay clear
// of argv limits.
func (s *Synthesizer) Synthesize(ctx context.Context, text, language, outPath string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty narration")
	}
	textFile := filepath.Join(filepath.Dir(outPath), "narration.txt")
	if err := os.WriteFile(textFile, []byte(text), 0o644); err != nil {
		return err
	}
	defer os.Remove(textFile)

	voice := s.VoiceFor(language)
	var lastErr error
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		var stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, s.cfg.Command,
			"--voice", voice,
			"--file", textFile,
			"--write-media", outPath,
		)
		cmd.Stderr = &stderr
		err := cmd.Run()
		if err == nil {
			if info, statErr := os.Stat(outPath); statErr == nil && info.Size() > 0 {
				return nil
			}
			err = fmt.Errorf("no audio written")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = fmt.Errorf("edge-tts: %w: %s", err, strings.TrimSpace(stderr.String()))
		s.log.Warn("TTS attempt failed", "attempt", attempt, "voice", voice, "error", lastErr)
		if attempt < s.cfg.Attempts {
			if err := httpx.Sleep(ctx, time.Duration(attempt)*time.Second); err != nil {
				return err
			}
		}
	}
	_ = os.Remove(outPath)
	return lastErr
}
