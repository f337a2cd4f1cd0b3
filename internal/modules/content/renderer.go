package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

type RendererConfig struct {
	ViewportWidth  int
	ViewportHeight int
	Language       string
	// WorkDir is where per-render scratch directories are created.
	WorkDir string
}

// NarratedVideoRenderer turns a Lecture into a video: narration audio, a
// full-height snapshot of the lecture page, and a composite that scrolls the
// snapshot over the audio. Every intermediate file lives in a scratch
// directory that is removed before Render returns.
type NarratedVideoRenderer struct {
	log   *logger.Logger
	tts   SpeechSynthesizer
	html  HTMLRenderer
	probe MediaProber
	comp  Compositor
	cfg   RendererConfig
}

func NewNarratedVideoRenderer(log *logger.Logger, tts SpeechSynthesizer, html HTMLRenderer, probe MediaProber, comp Compositor, cfg RendererConfig) *NarratedVideoRenderer {
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1280
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 720
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &NarratedVideoRenderer{
		log:   log.With("service", "NarratedVideoRenderer"),
		tts:   tts,
		html:  html,
		probe: probe,
		comp:  comp,
		cfg:   cfg,
	}
}

// Render writes the video to outPath. Any stage failure aborts the render.
func (r *NarratedVideoRenderer) Render(ctx context.Context, lec Lecture, outPath string) (RenderResult, error) {
	work, err := os.MkdirTemp(r.cfg.WorkDir, "render-*")
	if err != nil {
		return RenderResult{}, newError(KindRender, "render", fmt.Errorf("scratch dir: %w", err))
	}
	defer func() {
		if rmErr := os.RemoveAll(work); rmErr != nil {
			r.log.Warn("render scratch cleanup failed", "dir", work, "error", rmErr)
		}
	}()

	audioPath, duration, err := r.synthesizeAudio(ctx, lec, work)
	if err != nil {
		return RenderResult{}, err
	}
	snap, err := r.renderSnapshot(ctx, lec, work)
	if err != nil {
		return RenderResult{}, err
	}
	if err := r.composite(ctx, snap, audioPath, duration, outPath); err != nil {
		return RenderResult{}, err
	}
	r.log.Info("lecture video rendered",
		"duration_s", duration,
		"snapshot_h", snap.Height,
		"fallback_lecture", lec.Fallback,
	)
	return RenderResult{VideoPath: outPath, AudioDuration: duration}, nil
}

func (r *NarratedVideoRenderer) synthesizeAudio(ctx context.Context, lec Lecture, work string) (string, float64, error) {
	script := strings.TrimSpace(lec.NarrationScript)
	if script == "" {
		return "", 0, errorf(KindSpeechSynthesis, "synthesize_audio", "empty narration script")
	}
	if r.tts == nil {
		return "", 0, errorf(KindSpeechSynthesis, "synthesize_audio", "no speech synthesizer configured")
	}
	audioPath := filepath.Join(work, "narration.mp3")
	if err := r.tts.Synthesize(ctx, script, r.cfg.Language, audioPath); err != nil {
		return "", 0, newError(KindSpeechSynthesis, "synthesize_audio", err)
	}
	if fi, err := os.Stat(audioPath); err != nil || fi.Size() == 0 {
		return "", 0, errorf(KindSpeechSynthesis, "synthesize_audio", "no audio written")
	}
	d, err := r.probe.ProbeDuration(ctx, audioPath)
	if err != nil {
		return "", 0, newError(KindSpeechSynthesis, "synthesize_audio", fmt.Errorf("probe duration: %w", err))
	}
	if d <= 0 {
		return "", 0, errorf(KindSpeechSynthesis, "synthesize_audio", "audio has no duration")
	}
	return audioPath, d, nil
}

func (r *NarratedVideoRenderer) renderSnapshot(ctx context.Context, lec Lecture, work string) (Snapshot, error) {
	if r.html == nil {
		return Snapshot{}, errorf(KindRender, "render_snapshot", "no html renderer configured")
	}
	page, err := LecturePage(lec, r.cfg.ViewportWidth)
	if err != nil {
		return Snapshot{}, newError(KindRender, "render_snapshot", err)
	}
	snap, err := r.html.RenderToImage(ctx, page, r.cfg.ViewportWidth, r.cfg.ViewportHeight, filepath.Join(work, "snapshot.png"))
	if err != nil {
		return Snapshot{}, newError(KindRender, "render_snapshot", err)
	}
	if snap.Width <= 0 || snap.Height <= 0 {
		return Snapshot{}, errorf(KindRender, "render_snapshot", "empty snapshot %dx%d", snap.Width, snap.Height)
	}
	return snap, nil
}

func (r *NarratedVideoRenderer) composite(ctx context.Context, snap Snapshot, audioPath string, d float64, outPath string) error {
	err := r.comp.ComposeScrolling(ctx, ScrollSpec{
		ImagePath:      snap.Path,
		ImageWidth:     snap.Width,
		ImageHeight:    snap.Height,
		AudioPath:      audioPath,
		Duration:       d,
		ViewportWidth:  r.cfg.ViewportWidth,
		ViewportHeight: r.cfg.ViewportHeight,
		OutPath:        outPath,
	})
	if err != nil {
		_ = os.Remove(outPath)
		return newError(KindRender, "composite", err)
	}
	return nil
}
