package content

import (
	"context"
	"time"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/modules/content/llmjson"
	"github.com/yungbote/coursemedia-backend/internal/modules/content/prompts"
	"github.com/yungbote/coursemedia-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

type AnalyzerConfig struct {
	PollInterval      time.Duration
	Timeout           time.Duration
	InteractionPoints int
	// ReleaseTimeout bounds the handle release call, which runs even when
	// the analysis context is done.
	ReleaseTimeout time.Duration
}

// VideoAnalyzer uploads a video to the video-understanding provider, waits
// for it to become ready, asks for interaction points and study materials, and
// persists them. The remote handle is always released.
type VideoAnalyzer struct {
	log     *logger.Logger
	vu      VideoUnderstanding
	courses CourseRepository
	probe   MediaProber
	prompts *prompts.Set
	cfg     AnalyzerConfig

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func NewVideoAnalyzer(log *logger.Logger, vu VideoUnderstanding, courses CourseRepository, probe MediaProber, p *prompts.Set, cfg AnalyzerConfig) *VideoAnalyzer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.ReleaseTimeout <= 0 {
		cfg.ReleaseTimeout = 30 * time.Second
	}
	if p == nil {
		p = prompts.MustDefault()
	}
	return &VideoAnalyzer{
		log:     log.With("service", "VideoAnalyzer"),
		vu:      vu,
		courses: courses,
		probe:   probe,
		prompts: p,
		cfg:     cfg,
		now:     time.Now,
		after:   time.After,
	}
}

// Analyze runs Uploading, Processing, Active validation, Analyzing and
// Completed in order. Unparseable model output degrades to an empty analysis;
// a processing timeout or a non-ready terminal state fails.
func (a *VideoAnalyzer) Analyze(ctx context.Context, req AnalyzeRequest) (Analysis, error) {
	progress := req.Progress
	if progress == nil {
		progress = func(course.Stage, string, int) {}
	}
	log := a.log.With("course_id", req.CourseID, "module_id", req.ModuleID)

	// Uploading
	progress(course.StageAnalyzing, "Uploading video for AI analysis...", 65)
	h, err := a.vu.Upload(ctx, req.VideoPath, req.MimeType)
	if err != nil {
		return Analysis{}, newError(KindAnalysisFailed, "upload", err)
	}
	defer a.release(ctx, log, h)

	// Processing
	progress(course.StageAnalyzing, "Waiting for AI to process video...", 70)
	state, err := a.waitReady(ctx, h)
	if err != nil {
		return Analysis{}, err
	}

	// Active
	if state != VideoStateActive {
		return Analysis{}, errorf(KindAnalysisFailed, "processing", "video ended in state %s", state)
	}

	// Analyzing
	progress(course.StageAnalyzing, "Generating questions and study materials...", 80)
	prompt, err := a.prompts.Analysis(prompts.AnalysisInput{InteractionPoints: a.cfg.InteractionPoints})
	if err != nil {
		return Analysis{}, newError(KindAnalysisFailed, "analyze", err)
	}
	raw, err := a.vu.Analyze(ctx, h, prompt, true)
	if err != nil {
		return Analysis{}, newError(KindAnalysisFailed, "analyze", err)
	}
	var duration float64
	if a.probe != nil {
		if d, perr := a.probe.ProbeDuration(ctx, req.VideoPath); perr == nil {
			duration = d
		}
	}
	result := Analysis{}
	obj, perr := llmjson.Parse(raw)
	if perr != nil {
		log.Warn("analysis output unrecoverable, continuing with empty materials",
			"error", newError(KindGeneration, "analyze", perr))
		result.Degraded = true
	} else {
		result = DecodeAnalysis(obj, duration)
	}

	// Completed
	progress(course.StageAnalyzing, "Saving learning materials...", 95)
	if a.courses != nil {
		if err := a.courses.SetModuleAnalysis(ctx, req.CourseID, req.ModuleID, result.InteractionPoints, result.Materials); err != nil {
			return Analysis{}, newError(KindStorage, "save_analysis", err)
		}
	}
	log.Info("video analysis complete",
		"interaction_points", len(result.InteractionPoints),
		"notes", len(result.Materials.SmartNotes),
		"flashcards", len(result.Materials.Flashcards),
		"degraded", result.Degraded,
	)
	return result, nil
}

// waitReady polls until the handle leaves PROCESSING. It never polls past the
// timeout: once the deadline is reached a still-processing handle fails with
// ErrTimeout.
func (a *VideoAnalyzer) waitReady(ctx context.Context, h VideoHandle) (VideoState, error) {
	deadline := a.now().Add(a.cfg.Timeout)
	polls := 0
	for {
		state, err := a.vu.Status(ctx, h)
		polls++
		if err != nil {
			return "", newError(KindAnalysisFailed, "processing", err)
		}
		if state != VideoStateProcessing {
			return state, nil
		}
		remaining := deadline.Sub(a.now())
		if remaining <= 0 {
			return "", errorf(KindTimeout, "processing", "still processing after %s (%d polls)", a.cfg.Timeout, polls)
		}
		wait := a.cfg.PollInterval
		if wait > remaining {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return "", newError(KindAnalysisFailed, "processing", ctx.Err())
		case <-a.after(wait):
		}
	}
}

func (a *VideoAnalyzer) release(ctx context.Context, log *logger.Logger, h VideoHandle) {
	rctx, cancel := context.WithTimeout(ctxutil.Detached(ctx), a.cfg.ReleaseTimeout)
	defer cancel()
	if err := a.vu.Release(rctx, h); err != nil {
		log.Warn("video handle release failed", "handle", h.Name, "error", err)
		return
	}
	log.Debug("video handle released", "handle", h.Name)
}
