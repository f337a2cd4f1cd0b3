package localmedia

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/coursemedia-backend/internal/modules/content"
	"github.com/yungbote/coursemedia-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

// Tools is the glue around system binaries.
//
// REQUIRED BINARIES in the worker runtime:
// - ffmpeg for compositing the narrated scrolling video
// - ffprobe for media durations
// - libreoffice (soffice), optional, for DOCX/PPTX -> PDF
//
// Calls are synchronous and should run from background jobs, not request
// handlers.
type Tools struct {
	log *logger.Logger

	ffmpegPath  string
	ffprobePath string
	sofficePath string

	frameRate      int
	preset         string
	defaultTimeout time.Duration
}

type Config struct {
	FFmpegPath  string
	FFprobePath string
	SofficePath string
	FrameRate   int
	// Preset is the libx264 preset.
	Preset  string
	Timeout time.Duration
}

func New(log *logger.Logger, cfg Config) *Tools {
	t := &Tools{
		log:            log.With("service", "MediaTools"),
		ffmpegPath:     firstNonEmpty(cfg.FFmpegPath, "ffmpeg"),
		ffprobePath:    firstNonEmpty(cfg.FFprobePath, "ffprobe"),
		sofficePath:    firstNonEmpty(cfg.SofficePath, "soffice"),
		frameRate:      cfg.FrameRate,
		preset:         firstNonEmpty(cfg.Preset, "veryfast"),
		defaultTimeout: cfg.Timeout,
	}
	if t.frameRate <= 0 {
		t.frameRate = 25
	}
	if t.defaultTimeout <= 0 {
		t.defaultTimeout = 20 * time.Minute
	}
	return t
}

// AssertReady checks that ffmpeg and ffprobe are on PATH. soffice is optional.
func (m *Tools) AssertReady(ctx context.Context) error {
	for _, bin := range []string{m.ffmpegPath, m.ffprobePath} {
		if err := m.assertBinary(bin); err != nil {
			return err
		}
	}
	if err := m.assertBinary(m.sofficePath); err != nil {
		m.log.Info("office conversion unavailable", "binary", m.sofficePath)
	}
	return nil
}

func (m *Tools) assertBinary(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", name, err)
	}
	return nil
}

// ProbeDuration returns the container duration of path in seconds.
func (m *Tools) ProbeDuration(ctx context.Context, path string) (float64, error) {
	ctx = ctxutil.Default(ctx)
	if path == "" {
		return 0, fmt.Errorf("path required")
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w; out=%s", err, string(out))
	}
	return parseDuration(string(out))
}

func parseDuration(out string) (float64, error) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "N/A" {
			continue
		}
		d, err := strconv.ParseFloat(line, 64)
		if err != nil || d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		return d, nil
	}
	return 0, fmt.Errorf("ffprobe output has no duration: %q", strings.TrimSpace(out))
}

// ComposeScrolling encodes spec.ImagePath scrolling top to bottom over the
// audio track, for exactly spec.Duration seconds.
func (m *Tools) ComposeScrolling(ctx context.Context, spec content.ScrollSpec) error {
	ctx = ctxutil.Default(ctx)
	args, err := m.composeArgs(spec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(spec.OutPath), 0o755); err != nil {
		return fmt.Errorf("mkdir out dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg compose failed: %w; out=%s", err, tail(string(out), 2000))
	}
	if fi, err := os.Stat(spec.OutPath); err != nil || fi.Size() == 0 {
		return fmt.Errorf("video output missing at %s", spec.OutPath)
	}
	m.log.Debug("composite encoded", "out", spec.OutPath, "duration_s", spec.Duration, "took", time.Since(start).String())
	return nil
}

func (m *Tools) composeArgs(spec content.ScrollSpec) ([]string, error) {
	if spec.ImagePath == "" || spec.AudioPath == "" || spec.OutPath == "" {
		return nil, fmt.Errorf("image, audio and out paths are required")
	}
	if spec.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %v", spec.Duration)
	}
	vw, vh := even(spec.ViewportWidth), even(spec.ViewportHeight)
	if vw <= 0 || vh <= 0 || spec.ImageWidth <= 0 || spec.ImageHeight <= 0 {
		return nil, fmt.Errorf("invalid geometry image=%dx%d viewport=%dx%d",
			spec.ImageWidth, spec.ImageHeight, spec.ViewportWidth, spec.ViewportHeight)
	}

	var filters []string
	imageH := spec.ImageHeight
	if spec.ImageWidth != vw {
		imageH = even(int(math.Round(float64(spec.ImageHeight) * float64(vw) / float64(spec.ImageWidth))))
		filters = append(filters, fmt.Sprintf("scale=%d:%d", vw, imageH))
	}
	if imageH < vh {
		filters = append(filters, fmt.Sprintf("pad=%d:%d:0:0:color=white", vw, vh))
		imageH = vh
	}
	filters = append(filters,
		fmt.Sprintf("crop=%d:%d:0:%s", vw, vh, content.ScrollCropExpr(spec.Duration, imageH, vh)),
		"format=yuv420p",
	)
	duration := strconv.FormatFloat(spec.Duration, 'f', 3, 64)

	return []string{
		"-y",
		"-loop", "1",
		"-framerate", strconv.Itoa(m.frameRate),
		"-i", spec.ImagePath,
		"-i", spec.AudioPath,
		"-filter_complex", "[0:v]" + strings.Join(filters, ",") + "[v]",
		"-map", "[v]",
		"-map", "1:a",
		"-c:v", "libx264",
		"-preset", m.preset,
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", "128k",
		"-t", duration,
		"-shortest",
		"-movflags", "+faststart",
		spec.OutPath,
	}, nil
}

// ConvertOfficeToPDF converts a DOCX/PPTX/ODT file with LibreOffice and
// returns the PDF path inside outDir.
func (m *Tools) ConvertOfficeToPDF(ctx context.Context, inputPath string, outDir string) (string, error) {
	ctx = ctxutil.Default(ctx)
	if err := m.assertBinary(m.sofficePath); err != nil {
		return "", err
	}
	if inputPath == "" {
		return "", fmt.Errorf("inputPath required")
	}
	if outDir == "" {
		return "", fmt.Errorf("outDir required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir outDir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.sofficePath,
		"--headless",
		"--nologo",
		"--nolockcheck",
		"--nodefault",
		"--norestore",
		"--convert-to", "pdf",
		"--outdir", outDir,
		inputPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("soffice convert failed: %w; out=%s", err, string(out))
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	pdfPath := filepath.Join(outDir, base+".pdf")
	if _, statErr := os.Stat(pdfPath); statErr != nil {
		pdfPath2, err2 := newestFileWithExt(outDir, ".pdf")
		if err2 != nil {
			return "", fmt.Errorf("pdf output not found at %s and scan failed: %v; soffice out=%s", pdfPath, err2, string(out))
		}
		pdfPath = pdfPath2
	}
	return pdfPath, nil
}

// ---------- helpers ----------

func newestFileWithExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || strings.ToLower(filepath.Ext(e.Name())) != ext {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, e.Name())
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no %s files in %s", ext, dir)
	}
	return newest, nil
}

func even(n int) int { return n - n%2 }

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
