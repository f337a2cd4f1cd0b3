package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/observability"
	"github.com/yungbote/coursemedia-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

type PipelineConfig struct {
	// WorkDir holds per-job scratch directories for generated media.
	WorkDir string
}

type PipelineDeps struct {
	Store     MediaStore
	Status    *StatusReporter
	Courses   CourseRepository
	Converter *DocumentConverter
	Renderer  *NarratedVideoRenderer
	Analyzer  *VideoAnalyzer
	// Notes renders the companion PDF for document uploads. Optional.
	Notes HTMLRenderer
}

// Pipeline routes one upload through storage, optional document-to-video
// conversion and video analysis. Process never returns an error: every
// outcome is reported through the StatusReporter and the CourseRepository.
type Pipeline struct {
	log    *logger.Logger
	deps   PipelineDeps
	cfg    PipelineConfig
	tracer trace.Tracer
}

func NewPipeline(log *logger.Logger, deps PipelineDeps, cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		log:    log.With("service", "ContentPipeline"),
		deps:   deps,
		cfg:    cfg,
		tracer: otel.Tracer("coursemedia/content"),
	}
}

// Process runs the job for u to completion. u.LocalPath is removed before
// Process returns, whatever the outcome.
func (p *Pipeline) Process(ctx context.Context, u Upload) {
	ctx = ctxutil.Default(ctx)
	jobID := u.JobID()
	log := p.log.With("course_id", u.CourseID, "module_id", u.ModuleID, "job_id", jobID)

	ctx, span := p.tracer.Start(ctx, "content.process", trace.WithAttributes(
		attribute.String("course_id", u.CourseID),
		attribute.String("module_id", u.ModuleID),
		attribute.String("mime_type", u.MimeType),
	))
	defer span.End()
	defer removeFile(log, u.LocalPath)

	start := time.Now()
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
			log.Error("pipeline panic", "panic", r)
		}
		if err != nil {
			p.fail(ctx, log, u, span, err)
		}
		kind := ClassifyMedia(ResolveMimeType(u.MimeType, u.OriginalFilename)).String()
		observability.Current().ObserveJob(kind, outcomeLabel(err), time.Since(start))
	}()

	err = p.run(ctx, log, u)
}

func (p *Pipeline) run(ctx context.Context, log *logger.Logger, u Upload) error {
	jobID := u.JobID()
	mimeType := ResolveMimeType(u.MimeType, u.OriginalFilename)
	kind := ClassifyMedia(mimeType)
	if kind == MediaUnsupported {
		return errorf(KindUnsupportedMedia, "classify", "%q is neither video nor document", mimeType)
	}
	if p.deps.Courses != nil {
		m, err := p.deps.Courses.GetModule(ctx, u.CourseID, u.ModuleID)
		if err != nil {
			return fmt.Errorf("load module: %w", err)
		}
		if m == nil {
			return fmt.Errorf("module %s not found in course %s", u.ModuleID, u.CourseID)
		}
	}
	log.Info("processing started", "kind", kind.String(), "mime_type", mimeType)
	p.report(ctx, jobID, course.StageReceived, "Processing started", 5)

	var err error
	switch kind {
	case MediaVideo:
		err = p.runVideo(ctx, u, mimeType)
	default:
		err = p.runDocument(ctx, log, u, mimeType)
	}
	if err != nil {
		return err
	}

	if p.deps.Courses != nil {
		if err := p.deps.Courses.SetModuleState(ctx, u.CourseID, u.ModuleID, course.ModuleStatusReadyForReview); err != nil {
			log.Warn("module state update failed", "error", err)
		}
	}
	p.deps.Status.Complete(ctx, jobID, "Completed")
	log.Info("processing completed")
	return nil
}

// runVideo stores the upload, publishes its URL right away and analyzes the
// local copy.
func (p *Pipeline) runVideo(ctx context.Context, u Upload, mimeType string) error {
	jobID := u.JobID()
	err := p.inStage(ctx, u, course.StageStoring, func(ctx context.Context) error {
		p.report(ctx, jobID, course.StageStoring, "Uploading video to storage...", 10)
		url, err := p.store(ctx, u.LocalPath, StorageKey(u.CourseID, u.ModuleID, u.OriginalFilename), mimeType)
		if err != nil {
			return err
		}
		if err := p.recordVideoURL(ctx, u, url); err != nil {
			return err
		}
		p.report(ctx, jobID, course.StageStoring, "Video stored", 20)
		return nil
	})
	if err != nil {
		return err
	}
	return p.analyze(ctx, u, u.LocalPath, mimeType)
}

// runDocument converts the document into a lecture, renders the narrated
// video and the notes PDF side by side, stores both and analyzes the video.
func (p *Pipeline) runDocument(ctx context.Context, log *logger.Logger, u Upload, mimeType string) error {
	jobID := u.JobID()

	err := p.inStage(ctx, u, course.StageStoring, func(ctx context.Context) error {
		p.report(ctx, jobID, course.StageStoring, "Uploading source document...", 10)
		url, err := p.store(ctx, u.LocalPath, StorageKey(u.CourseID, u.ModuleID, u.OriginalFilename), mimeType)
		if err != nil {
			return err
		}
		if p.deps.Courses != nil {
			if err := p.deps.Courses.SetModuleSourceURL(ctx, u.CourseID, u.ModuleID, url); err != nil {
				return newError(KindStorage, "record_source_url", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var lec Lecture
	err = p.inStage(ctx, u, course.StageConverting, func(ctx context.Context) error {
		p.report(ctx, jobID, course.StageConverting, "Reading document...", 20)
		text, err := p.deps.Converter.ExtractText(ctx, u.LocalPath, mimeType)
		if err != nil {
			return err
		}
		p.report(ctx, jobID, course.StageConverting, "Writing lecture script...", 30)
		lec, err = p.deps.Converter.ToLecture(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("lecture generation failed, using fallback lecture", "error", err)
			lec = p.deps.Converter.FallbackLecture(text)
		}
		return nil
	})
	if err != nil {
		return err
	}

	work, err := os.MkdirTemp(p.cfg.WorkDir, "job-"+SanitizeFilename(u.ModuleID)+"-*")
	if err != nil {
		return newError(KindRender, "scratch_dir", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(work); rmErr != nil {
			log.Warn("job scratch cleanup failed", "dir", work, "error", rmErr)
		}
	}()
	videoPath := filepath.Join(work, "lecture.mp4")
	notesPath := filepath.Join(work, "notes.pdf")

	var notesErr error
	err = p.inStage(ctx, u, course.StageRendering, func(ctx context.Context) error {
		p.report(ctx, jobID, course.StageRendering, "Rendering narrated video and notes...", 40)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			_, err := p.deps.Renderer.Render(gctx, lec, videoPath)
			return err
		})
		if p.deps.Notes != nil {
			g.Go(func() error {
				notesErr = p.renderNotes(gctx, lec, notesPath)
				return nil
			})
		} else {
			notesErr = errNoNotesRenderer
		}
		if err := g.Wait(); err != nil {
			return err
		}

		p.report(ctx, jobID, course.StageRendering, "Uploading generated lecture...", 60)
		url, err := p.store(ctx, videoPath, StorageKey(u.CourseID, u.ModuleID, "lecture.mp4"), "video/mp4")
		if err != nil {
			return err
		}
		if err := p.recordVideoURL(ctx, u, url); err != nil {
			return err
		}
		p.storeNotes(ctx, log, u, notesPath, notesErr)
		return nil
	})
	if err != nil {
		return err
	}
	return p.analyze(ctx, u, videoPath, "video/mp4")
}

var errNoNotesRenderer = fmt.Errorf("no notes renderer configured")

func (p *Pipeline) renderNotes(ctx context.Context, lec Lecture, outPath string) error {
	page, err := LecturePage(lec, 0)
	if err != nil {
		return err
	}
	return p.deps.Notes.RenderToPDF(ctx, page, outPath)
}

// storeNotes publishes the notes PDF. Notes are a companion export: failures
// are logged and the job continues with the video.
func (p *Pipeline) storeNotes(ctx context.Context, log *logger.Logger, u Upload, notesPath string, renderErr error) {
	if renderErr != nil {
		if renderErr != errNoNotesRenderer {
			log.Warn("notes export failed, continuing without notes", "error", renderErr)
		}
		return
	}
	url, err := p.store(ctx, notesPath, StorageKey(u.CourseID, u.ModuleID, "notes.pdf"), "application/pdf")
	if err != nil {
		log.Warn("notes upload failed, continuing without notes", "error", err)
		return
	}
	if p.deps.Courses != nil {
		if err := p.deps.Courses.SetModuleNotesURL(ctx, u.CourseID, u.ModuleID, url); err != nil {
			log.Warn("notes url update failed", "error", err)
		}
	}
}

func (p *Pipeline) analyze(ctx context.Context, u Upload, videoPath, mimeType string) error {
	jobID := u.JobID()
	return p.inStage(ctx, u, course.StageAnalyzing, func(ctx context.Context) error {
		_, err := p.deps.Analyzer.Analyze(ctx, AnalyzeRequest{
			CourseID:  u.CourseID,
			ModuleID:  u.ModuleID,
			VideoPath: videoPath,
			MimeType:  mimeType,
			Progress: func(stage course.Stage, message string, pct int) {
				p.report(ctx, jobID, stage, message, pct)
			},
		})
		return err
	})
}

func (p *Pipeline) store(ctx context.Context, localPath, key, contentType string) (string, error) {
	url, err := p.deps.Store.Store(ctx, localPath, key, contentType)
	if err != nil {
		return "", newError(KindStorage, "store "+key, err)
	}
	return url, nil
}

func (p *Pipeline) recordVideoURL(ctx context.Context, u Upload, url string) error {
	if p.deps.Courses != nil {
		if err := p.deps.Courses.SetModuleVideoURL(ctx, u.CourseID, u.ModuleID, url); err != nil {
			return newError(KindStorage, "record_video_url", err)
		}
	}
	p.deps.Status.SetVideoURL(ctx, u.JobID(), url)
	return nil
}

func (p *Pipeline) report(ctx context.Context, jobID string, stage course.Stage, message string, pct int) {
	p.deps.Status.Report(ctx, jobID, stage, message, pct)
}

func (p *Pipeline) fail(ctx context.Context, log *logger.Logger, u Upload, span trace.Span, err error) {
	// Status and module writes must land even if ctx was cancelled.
	ctx = ctxutil.Detached(ctx)
	log.Error("processing failed", "kind", string(KindOf(err)), "error", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.deps.Status.Fail(ctx, u.JobID(), err)
	if p.deps.Courses != nil {
		if serr := p.deps.Courses.SetModuleState(ctx, u.CourseID, u.ModuleID, course.ModuleStatusError); serr != nil {
			log.Warn("module state update failed", "error", serr)
		}
	}
}

func (p *Pipeline) inStage(ctx context.Context, u Upload, stage course.Stage, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "content."+strings.ToLower(string(stage)), trace.WithAttributes(
		attribute.String("course_id", u.CourseID),
		attribute.String("module_id", u.ModuleID),
	))
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	observability.Current().ObserveStage(string(stage), err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func outcomeLabel(err error) string {
	if k := KindOf(err); k != "" {
		return string(k)
	}
	if err != nil {
		return "error"
	}
	return "ok"
}

func removeFile(log *logger.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("upload cleanup failed", "path", path, "error", err)
	}
}
