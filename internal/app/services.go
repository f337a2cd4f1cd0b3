package app

import (
	"fmt"
	"os"

	"github.com/yungbote/coursemedia-backend/internal/jobs/admission"
	"github.com/yungbote/coursemedia-backend/internal/jobs/worker"
	"github.com/yungbote/coursemedia-backend/internal/modules/content"
	"github.com/yungbote/coursemedia-backend/internal/modules/content/prompts"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
	"github.com/yungbote/coursemedia-backend/internal/realtime"
	"github.com/yungbote/coursemedia-backend/internal/realtime/bus"
)

type Services struct {
	Bus      bus.Bus
	Hub      *realtime.Hub
	Guard    admission.Guard
	Pool     *worker.Pool
	Status   *content.StatusReporter
	Pipeline *content.Pipeline
	Content  *content.Service
}

func wireServices(log *logger.Logger, cfg Config, cl Clients, caps Capabilities, r Repos, media mediaBackend) (Services, error) {
	log.Info("Wiring services...")

	for _, dir := range []string{cfg.UploadDir, cfg.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Services{}, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	p, err := prompts.Load()
	if err != nil {
		return Services{}, fmt.Errorf("load prompts: %w", err)
	}

	// Status fan-out and admission are shared across replicas through Redis
	// when it is configured.
	var (
		b     bus.Bus
		guard admission.Guard
	)
	if cl.Redis != nil {
		b, err = bus.NewRedisBus(log, cl.Redis, cfg.RedisChannel)
		if err != nil {
			return Services{}, fmt.Errorf("init redis bus: %w", err)
		}
		guard = admission.NewRedis(cl.Redis, "coursemedia:job:", cfg.AdmissionTTL)
	} else {
		b = bus.NewMemoryBus()
		guard = admission.NewMemory()
	}

	status := content.NewStatusReporter(log, r.Status, bus.NewStatusPublisher(b))

	converter := content.NewDocumentConverter(log, caps.TextGen, p, content.ConverterConfig{
		MaxInputChars: cfg.LectureMaxInputChars,
		Language:      cfg.LectureLanguage,
	}).WithOfficeConverter(caps.Tools)

	renderer := content.NewNarratedVideoRenderer(log, caps.Speech, caps.HTML, caps.Tools, caps.Tools, content.RendererConfig{
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
		Language:       cfg.NarrationLanguage,
		WorkDir:        cfg.WorkDir,
	})

	analyzer := content.NewVideoAnalyzer(log, caps.Video, r.Courses, caps.Tools, p, content.AnalyzerConfig{
		PollInterval:      cfg.AnalysisPoll,
		Timeout:           cfg.AnalysisTimeout,
		InteractionPoints: cfg.InteractionPoints,
	})

	pipeline := content.NewPipeline(log, content.PipelineDeps{
		Store:     media.Store,
		Status:    status,
		Courses:   r.Courses,
		Converter: converter,
		Renderer:  renderer,
		Analyzer:  analyzer,
		Notes:     caps.HTML,
	}, content.PipelineConfig{WorkDir: cfg.WorkDir})

	pool := worker.NewPool(log, cfg.Workers, cfg.QueueSize)

	return Services{
		Bus:      b,
		Hub:      realtime.NewHub(log),
		Guard:    guard,
		Pool:     pool,
		Status:   status,
		Pipeline: pipeline,
		Content:  content.NewService(log, pipeline, status, r.Courses, guard, pool),
	}, nil
}
